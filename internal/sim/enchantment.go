package sim

import "math/rand"

// Enchantment is a bundle of stat deltas. Applying one only ever adds.
type Enchantment ShipStats

// Damping applied to kill rewards so mobility and fire rate do not run away.
const (
	rewardDampingV           = 0.2
	rewardDampingBulletTTL   = 0.5
	rewardDampingBulletSpeed = 0.5
)

// pickupMagnitude bounds each delta of a standalone pickup.
var pickupMagnitude = Enchantment{
	TurnRate:    0.1,
	V:           0.04,
	RepairRate:  0.005,
	MaxHP:       20,
	BulletTTL:   0.25,
	BulletSpeed: 0.05,
	BulletHP:    2,
}

// ScaledEnchantment is the reward for defeating a ship with the given stats:
// every delta is the victim's stat times an independent draw from [0, 1).
// Draws happen in field order so a mirrored generator reproduces the result.
func ScaledEnchantment(victim ShipStats, rng *rand.Rand) Enchantment {
	return Enchantment{
		TurnRate:    victim.TurnRate * rng.Float64(),
		V:           victim.V * rng.Float64() * rewardDampingV,
		RepairRate:  victim.RepairRate * rng.Float64(),
		MaxHP:       victim.MaxHP * rng.Float64(),
		BulletTTL:   victim.BulletTTL * rng.Float64() * rewardDampingBulletTTL,
		BulletSpeed: victim.BulletSpeed * rng.Float64() * rewardDampingBulletSpeed,
		BulletHP:    victim.BulletHP * rng.Float64(),
	}
}

// RandomEnchantment rolls a pickup with flat magnitudes independent of any ship.
func RandomEnchantment(rng *rand.Rand) Enchantment {
	m := pickupMagnitude
	return Enchantment{
		TurnRate:    m.TurnRate * rng.Float64(),
		V:           m.V * rng.Float64(),
		RepairRate:  m.RepairRate * rng.Float64(),
		MaxHP:       m.MaxHP * rng.Float64(),
		BulletTTL:   m.BulletTTL * rng.Float64(),
		BulletSpeed: m.BulletSpeed * rng.Float64(),
		BulletHP:    m.BulletHP * rng.Float64(),
	}
}

// Apply adds every delta onto the stats, then caps each stat at its
// non-zero ceiling field.
func (s *ShipStats) Apply(e Enchantment, ceiling ShipStats) {
	s.TurnRate = capStat(s.TurnRate+e.TurnRate, ceiling.TurnRate)
	s.V = capStat(s.V+e.V, ceiling.V)
	s.RepairRate = capStat(s.RepairRate+e.RepairRate, ceiling.RepairRate)
	s.MaxHP = capStat(s.MaxHP+e.MaxHP, ceiling.MaxHP)
	s.BulletTTL = capStat(s.BulletTTL+e.BulletTTL, ceiling.BulletTTL)
	s.BulletSpeed = capStat(s.BulletSpeed+e.BulletSpeed, ceiling.BulletSpeed)
	s.BulletHP = capStat(s.BulletHP+e.BulletHP, ceiling.BulletHP)
}

func capStat(v, ceiling float64) float64 {
	if ceiling > 0 && v > ceiling {
		return ceiling
	}
	return v
}
