package lifecycle

import (
	"context"

	"github.com/Alex1um/simple-unbalanced-game/logging"
)

const (
	EventShipSpawned   logging.EventType = "lifecycle.ship_spawned"
	EventShipDestroyed logging.EventType = "lifecycle.ship_destroyed"
	EventSpawnFailed   logging.EventType = "lifecycle.spawn_failed"
	EventPickupPlaced  logging.EventType = "lifecycle.pickup_placed"
)

type ShipSpawnedPayload struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
}

type ShipDestroyedPayload struct {
	HP float64 `json:"hp"`
}

type SpawnFailedPayload struct {
	Reason string `json:"reason"`
}

type PickupPlacedPayload struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func ShipSpawned(ctx context.Context, pub logging.Publisher, tick uint64, ship logging.EntityRef, payload ShipSpawnedPayload, extra map[string]any) {
	publish(ctx, pub, EventShipSpawned, logging.SeverityInfo, tick, ship, nil, payload, extra)
}

func ShipDestroyed(ctx context.Context, pub logging.Publisher, tick uint64, ship logging.EntityRef, payload ShipDestroyedPayload, extra map[string]any) {
	publish(ctx, pub, EventShipDestroyed, logging.SeverityInfo, tick, ship, nil, payload, extra)
}

// SpawnFailed is a warning: the grid had no free cell for a new ship.
func SpawnFailed(ctx context.Context, pub logging.Publisher, tick uint64, ship logging.EntityRef, payload SpawnFailedPayload, extra map[string]any) {
	publish(ctx, pub, EventSpawnFailed, logging.SeverityWarn, tick, ship, nil, payload, extra)
}

// PickupPlaced reports an enchantment pickup placed for target.
func PickupPlaced(ctx context.Context, pub logging.Publisher, tick uint64, target logging.EntityRef, payload PickupPlacedPayload, extra map[string]any) {
	publish(ctx, pub, EventPickupPlaced, logging.SeverityInfo, tick, logging.WorldRef(), []logging.EntityRef{target}, payload, extra)
}

func publish(ctx context.Context, pub logging.Publisher, typ logging.EventType, sev logging.Severity, tick uint64, actor logging.EntityRef, targets []logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     typ,
		Tick:     tick,
		Actor:    actor,
		Targets:  targets,
		Severity: sev,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}
