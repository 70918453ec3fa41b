package combat

import (
	"context"

	"github.com/Alex1um/simple-unbalanced-game/logging"
)

const (
	// EventDamage is emitted for every damage feed record produced in a tick.
	EventDamage logging.EventType = "combat.damage"
	// EventDefeat is emitted when a damage record leaves its victim at or below zero hp.
	EventDefeat logging.EventType = "combat.defeat"
)

// DamagePayload mirrors one damage feed record.
type DamagePayload struct {
	Amount   float64 `json:"amount"`
	VictimHP float64 `json:"victimHp"`
	Source   string  `json:"source"`
}

const (
	SourceBullet   = "bullet"
	SourceFireCost = "fire_cost"
)

type DefeatPayload struct {
	SelfInflicted bool `json:"selfInflicted,omitempty"`
}

// Damage publishes a damage event from attacker onto victim.
func Damage(ctx context.Context, pub logging.Publisher, tick uint64, attacker, victim logging.EntityRef, payload DamagePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDamage,
		Tick:     tick,
		Actor:    attacker,
		Targets:  []logging.EntityRef{victim},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  payload,
		Extra:    extra,
	})
}

// Defeat publishes a defeat event crediting attacker.
func Defeat(ctx context.Context, pub logging.Publisher, tick uint64, attacker, victim logging.EntityRef, payload DefeatPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDefeat,
		Tick:     tick,
		Actor:    attacker,
		Targets:  []logging.EntityRef{victim},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
		Extra:    extra,
	})
}
