package sim

import (
	"context"
	"math"

	"github.com/Alex1um/simple-unbalanced-game/logging"
	"github.com/Alex1um/simple-unbalanced-game/logging/combat"
	"github.com/Alex1um/simple-unbalanced-game/logging/lifecycle"
)

type ActionKind uint8

const (
	// ActionMoveShip sets a ship's target heading, spawning it if unseen.
	ActionMoveShip ActionKind = iota + 1
	// ActionAddBullet fires a bullet at a cost of hp.
	ActionAddBullet
	// ActionPlacePickup drops an enchantment for the target ship. Never
	// accepted from clients.
	ActionPlacePickup
)

func (k ActionKind) String() string {
	switch k {
	case ActionMoveShip:
		return "MoveShip"
	case ActionAddBullet:
		return "AddBullet"
	case ActionPlacePickup:
		return "PlacePickup"
	default:
		return "unknown"
	}
}

// Action is one intent attributed to a ship.
type Action struct {
	Ship  ShipID     `json:"ship" msgpack:"s"`
	Kind  ActionKind `json:"kind" msgpack:"k"`
	Angle float64    `json:"angle" msgpack:"a"`
}

func MoveShip(id ShipID, angle float64) Action {
	return Action{Ship: id, Kind: ActionMoveShip, Angle: angle}
}

func AddBullet(id ShipID, angle float64) Action {
	return Action{Ship: id, Kind: ActionAddBullet, Angle: angle}
}

func PlacePickup(target ShipID) Action {
	return Action{Ship: target, Kind: ActionPlacePickup}
}

func (e *Engine) actionPhase(actions []Action) {
	for _, a := range actions {
		switch a.Kind {
		case ActionMoveShip:
			e.moveShip(a)
		case ActionAddBullet:
			e.fire(a)
		case ActionPlacePickup:
			e.placePickup(a.Ship)
		}
	}
}

// moveShip retargets a live ship. Ships killed earlier in the tick ignore
// it; unseen ids spawn.
func (e *Engine) moveShip(a Action) {
	if s, ok := e.world.ships[a.Ship]; ok {
		if s.Alive() {
			s.Angle = a.Angle
		}
		return
	}
	e.spawnShip(a.Ship)
}

func (e *Engine) spawnShip(id ShipID) {
	angle := randomAngle(e.deps.SpawnRNG)
	cx, cy, ok := e.freeCell()
	if !ok {
		e.deps.Metrics.Add(metricSpawnFailuresTotal, 1)
		lifecycle.SpawnFailed(context.Background(), e.deps.Publisher, e.tick, logging.Ref(logging.EntityKindShip, uint64(id)),
			lifecycle.SpawnFailedPayload{Reason: "no free cell"}, nil)
		return
	}
	baseline := e.cfg.Baseline
	e.world.upsertShip(id, Ship{
		X:            float64(cx),
		Y:            float64(cy),
		Angle:        angle,
		CurrentAngle: angle,
		HP:           baseline.MaxHP,
		ShipStats:    baseline,
	})
	e.world.grid.Set(cx, cy, Cell{ID: uint64(id), Category: CategoryShip})
	lifecycle.ShipSpawned(context.Background(), e.deps.Publisher, e.tick, logging.Ref(logging.EntityKindShip, uint64(id)),
		lifecycle.ShipSpawnedPayload{X: float64(cx), Y: float64(cy), Angle: angle}, nil)
}

// fire charges the ship and launches a bullet one unit ahead along the
// firing angle. The cost is recorded as self-inflicted damage.
func (e *Engine) fire(a Action) {
	s, ok := e.world.ships[a.Ship]
	if !ok || !s.Alive() {
		return
	}
	s.HP -= e.cfg.FireCost
	e.recordDamage(DamageRecord{Attacker: a.Ship, Victim: a.Ship, VictimHP: s.HP}, e.cfg.FireCost, combat.SourceFireCost)
	size := e.world.size
	e.world.insertBullet(Bullet{
		Owner: a.Ship,
		X:     wrap(s.X+math.Cos(a.Angle), size),
		Y:     wrap(s.Y+math.Sin(a.Angle), size),
		Angle: a.Angle,
		V:     s.BulletSpeed + s.V,
		TTL:   s.BulletTTL,
		HP:    s.BulletHP,
	})
}

// placePickup drops a random enchantment on a free cell for a live target.
// A target that already has one pending gets it replaced.
func (e *Engine) placePickup(target ShipID) {
	s, ok := e.world.ships[target]
	if !ok || !s.Alive() {
		return
	}
	cx, cy, ok := e.freeCell()
	if !ok {
		return
	}
	if old, held := e.world.takeUpgrade(target); held {
		if cell := e.world.grid.At(old.X, old.Y); cell.Category == CategoryUpgrade && cell.ID == uint64(target) {
			e.world.grid.Clear(old.X, old.Y)
		}
	}
	e.world.holdUpgrade(Upgrade{
		Target:      target,
		X:           cx,
		Y:           cy,
		Enchantment: RandomEnchantment(e.deps.ProgressionRNG),
	})
	e.world.grid.Set(cx, cy, Cell{ID: uint64(target), Category: CategoryUpgrade})
	lifecycle.PickupPlaced(context.Background(), e.deps.Publisher, e.tick, logging.Ref(logging.EntityKindShip, uint64(target)),
		lifecycle.PickupPlacedPayload{X: cx, Y: cy}, nil)
}

// freeCell samples random cells against the current grid, then falls back
// to a scan from a random offset so a nearly full map still finds a hole.
func (e *Engine) freeCell() (int, int, bool) {
	grid := e.world.grid
	size := grid.Size()
	rng := e.deps.SpawnRNG
	for i := 0; i < e.cfg.SpawnAttempts; i++ {
		cx, cy := rng.Intn(size), rng.Intn(size)
		if grid.Free(cx, cy) {
			return cx, cy, true
		}
	}
	total := size * size
	start := rng.Intn(total)
	for i := 0; i < total; i++ {
		idx := (start + i) % total
		cx, cy := idx%size, idx/size
		if grid.Free(cx, cy) {
			return cx, cy, true
		}
	}
	return 0, 0, false
}
