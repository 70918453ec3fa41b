package sim

import "time"

const (
	DefaultMapSize       = 20
	DefaultTickRate      = 60
	DefaultQueueCapacity = 32
	DefaultSeed          = "arena"
	DefaultFireCost      = 1.0
)

// Config holds the simulation tunables. The zero value is usable once
// normalized; non-positive fields fall back to the defaults.
type Config struct {
	MapSize       int     `json:"mapSize"`
	TickRate      int     `json:"tickRate"`
	QueueCapacity int     `json:"queueCapacity"`
	Seed          string  `json:"seed"`
	FireCost      float64 `json:"fireCost"`
	// Baseline stats for freshly spawned ships. A spawned ship starts at MaxHP.
	Baseline ShipStats `json:"baseline"`
	// ClampRepair caps repair at max hp. Off by default, repair may overshoot.
	ClampRepair bool `json:"clampRepair"`
	// StatCeiling caps each stat after an enchantment. Zero fields are uncapped.
	StatCeiling ShipStats `json:"statCeiling"`
	// SpawnAttempts bounds rejection sampling before falling back to a scan.
	SpawnAttempts   int  `json:"spawnAttempts"`
	CheckInvariants bool `json:"checkInvariants"`
}

func DefaultBaseline() ShipStats {
	return ShipStats{
		TurnRate:    0.5,
		V:           0.2,
		RepairRate:  0.01,
		MaxHP:       100,
		BulletTTL:   1.0,
		BulletSpeed: 0.2,
		BulletHP:    10,
	}
}

func DefaultConfig() Config {
	return Config{
		MapSize:       DefaultMapSize,
		TickRate:      DefaultTickRate,
		QueueCapacity: DefaultQueueCapacity,
		Seed:          DefaultSeed,
		FireCost:      DefaultFireCost,
		Baseline:      DefaultBaseline(),
		SpawnAttempts: 4 * DefaultMapSize * DefaultMapSize,
	}
}

// Normalized returns a copy with every unset or invalid field replaced by its default.
func (c Config) Normalized() Config {
	def := DefaultConfig()
	if c.MapSize <= 0 {
		c.MapSize = def.MapSize
	}
	if c.TickRate <= 0 {
		c.TickRate = def.TickRate
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = def.QueueCapacity
	}
	if c.Seed == "" {
		c.Seed = def.Seed
	}
	if c.FireCost <= 0 {
		c.FireCost = def.FireCost
	}
	c.Baseline = c.Baseline.withDefaults(def.Baseline)
	if c.SpawnAttempts <= 0 {
		c.SpawnAttempts = 4 * c.MapSize * c.MapSize
	}
	return c
}

// TickPeriod is the wall-clock budget of one tick.
func (c Config) TickPeriod() time.Duration {
	rate := c.TickRate
	if rate <= 0 {
		rate = DefaultTickRate
	}
	return time.Second / time.Duration(rate)
}

// TickSeconds is the simulated time that elapses per tick.
func (c Config) TickSeconds() float64 {
	rate := c.TickRate
	if rate <= 0 {
		rate = DefaultTickRate
	}
	return 1 / float64(rate)
}

func (s ShipStats) withDefaults(def ShipStats) ShipStats {
	if s == (ShipStats{}) {
		return def
	}
	if s.TurnRate <= 0 {
		s.TurnRate = def.TurnRate
	}
	if s.V < 0 {
		s.V = def.V
	}
	if s.RepairRate < 0 {
		s.RepairRate = def.RepairRate
	}
	if s.MaxHP <= 0 {
		s.MaxHP = def.MaxHP
	}
	if s.BulletTTL <= 0 {
		s.BulletTTL = def.BulletTTL
	}
	if s.BulletSpeed < 0 {
		s.BulletSpeed = def.BulletSpeed
	}
	if s.BulletHP <= 0 {
		s.BulletHP = def.BulletHP
	}
	return s
}
