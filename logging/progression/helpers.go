package progression

import (
	"context"

	"github.com/Alex1um/simple-unbalanced-game/logging"
)

// EventEnchantmentApplied is emitted whenever a ship's stats grow, from a kill
// reward or a collected pickup.
const EventEnchantmentApplied logging.EventType = "progression.enchantment_applied"

const (
	SourceKill   = "kill"
	SourcePickup = "pickup"
)

// EnchantmentPayload carries the stat deltas that were added.
type EnchantmentPayload struct {
	Source      string  `json:"source"`
	TurnRate    float64 `json:"turnRate"`
	V           float64 `json:"v"`
	RepairRate  float64 `json:"repairRate"`
	MaxHP       float64 `json:"maxHp"`
	BulletTTL   float64 `json:"bulletTtl"`
	BulletSpeed float64 `json:"bulletSpeed"`
	BulletHP    float64 `json:"bulletHp"`
}

// EnchantmentApplied publishes the grant. victim is omitted for pickups.
func EnchantmentApplied(ctx context.Context, pub logging.Publisher, tick uint64, ship logging.EntityRef, victim *logging.EntityRef, payload EnchantmentPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	var targets []logging.EntityRef
	if victim != nil {
		targets = []logging.EntityRef{*victim}
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventEnchantmentApplied,
		Tick:     tick,
		Actor:    ship,
		Targets:  targets,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryProgression,
		Payload:  payload,
		Extra:    extra,
	})
}
