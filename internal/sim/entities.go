package sim

import (
	"fmt"
	"math"
	"strconv"
)

type ShipID uint64

type BulletID uint64

// ShipStats are the upgradeable capabilities of a ship.
type ShipStats struct {
	TurnRate    float64 `json:"turn_rate"`
	V           float64 `json:"v"`
	RepairRate  float64 `json:"repair_rate"`
	MaxHP       float64 `json:"max_hp"`
	BulletTTL   float64 `json:"bullet_ttl"`
	BulletSpeed float64 `json:"bullet_speed"`
	BulletHP    float64 `json:"bullet_hp"`
}

// Ship is one player's vessel. Angle is the target heading; CurrentAngle is
// where the ship actually points while it turns toward Angle.
type Ship struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	CurrentAngle float64 `json:"current_angle"`
	HP           float64 `json:"hp"`
	Angle        float64 `json:"angle"`
	ShipStats
}

func (s Ship) Alive() bool { return s.HP > 0 }

// Aligned reports whether the ship has finished turning.
func (s Ship) Aligned() bool { return s.CurrentAngle == s.Angle }

type Bullet struct {
	Owner ShipID  `json:"ship_id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
	V     float64 `json:"v"`
	TTL   float64 `json:"ttl"`
	HP    float64 `json:"hp"`
}

func (b Bullet) Expired() bool { return b.TTL <= 0 || b.HP <= 0 }

// Category tags what occupies a grid cell.
type Category uint8

const (
	CategoryNone Category = iota
	CategoryShip
	CategoryBullet
	CategoryUpgrade
)

func (c Category) Valid() bool { return c <= CategoryUpgrade }

func (c Category) String() string {
	switch c {
	case CategoryNone:
		return "none"
	case CategoryShip:
		return "ship"
	case CategoryBullet:
		return "bullet"
	case CategoryUpgrade:
		return "upgrade"
	default:
		return "category(" + strconv.Itoa(int(c)) + ")"
	}
}

// MarshalJSON keeps categories numeric. Without it a []Category would be
// encoded as a base64 byte string.
func (c Category) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(c))), nil
}

func (c *Category) UnmarshalJSON(data []byte) error {
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("category: %w", err)
	}
	if n < int(CategoryNone) || n > int(CategoryUpgrade) {
		return fmt.Errorf("category: unknown value %d", n)
	}
	*c = Category(n)
	return nil
}

// Upgrade is an enchantment lying on the grid, held for its target ship.
type Upgrade struct {
	Target      ShipID      `json:"target"`
	X           int         `json:"x"`
	Y           int         `json:"y"`
	Enchantment Enchantment `json:"enchantment"`
}

// DamageRecord is one combat interaction of the current tick.
type DamageRecord struct {
	Attacker ShipID
	Victim   ShipID
	VictimHP float64
}

func (d DamageRecord) Lethal() bool { return d.VictimHP <= 0 }

// wrap maps a coordinate onto [0, size).
func wrap(v, size float64) float64 {
	m := math.Mod(v, size)
	if m < 0 {
		m += size
	}
	if m >= size {
		m = 0
	}
	return m
}

// normalizeAngle maps a rotation onto (-pi, pi].
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
