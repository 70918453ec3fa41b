package sim

import (
	"context"

	"github.com/Alex1um/simple-unbalanced-game/logging"
	"github.com/Alex1um/simple-unbalanced-game/logging/combat"
)

const (
	metricTicksTotal         = "sim_ticks_total"
	metricTick               = "sim_tick"
	metricShips              = "sim_ships"
	metricBullets            = "sim_bullets"
	metricUpgrades           = "sim_upgrades"
	metricActionsTotal       = "sim_actions_total"
	metricSpawnFailuresTotal = "sim_spawn_failures_total"
	metricKillsTotal         = "sim_kills_total"
)

// ActionSource yields the actions to apply this tick.
type ActionSource interface {
	Drain() []Action
}

// ActionBatch is a fixed list of actions, used by replay and tests.
type ActionBatch []Action

func (b ActionBatch) Drain() []Action { return b }

type StepResult struct {
	Tick     uint64
	Snapshot *Snapshot
	// Actions are the drained actions in the order they were applied.
	Actions []Action
}

// Engine advances the world one tick at a time. It is not safe for
// concurrent use: exactly one goroutine owns it.
type Engine struct {
	cfg   Config
	deps  Deps
	world *World
	tick  uint64
	dt    float64
	feed  []DamageRecord
}

func NewEngine(cfg Config, deps Deps) *Engine {
	cfg = cfg.Normalized()
	return &Engine{
		cfg:   cfg,
		deps:  deps.withDefaults(cfg),
		world: newWorld(cfg.MapSize),
		dt:    cfg.TickSeconds(),
	}
}

func (e *Engine) Config() Config { return e.cfg }

// Tick is the number of the last completed tick.
func (e *Engine) Tick() uint64 { return e.tick }

// World exposes the store for reading. Callers must be on the engine's goroutine.
func (e *Engine) World() *World { return e.world }

// Step runs one full tick: hook, bullets, ships, actions, progression,
// removal of dead ships, then builds the snapshot.
func (e *Engine) Step(src ActionSource) StepResult {
	e.tick++
	e.feed = nil

	e.runHook()
	e.world.grid.Reset()
	e.placeUpgrades()
	e.bulletPhase()
	e.shipPhase()

	var actions []Action
	if src != nil {
		actions = src.Drain()
	}
	e.actionPhase(actions)
	e.progressionPhase()
	e.reap()

	snapshot := e.snapshot()
	if e.cfg.CheckInvariants {
		e.checkInvariants()
	}
	e.recordMetrics(len(actions))
	return StepResult{Tick: e.tick, Snapshot: snapshot, Actions: actions}
}

func (e *Engine) runHook() {
	if e.deps.Hook == nil {
		return
	}
	ships, bullets := e.deps.Hook.BeforeTick(e.tick, e.world.shipsCopy(), e.world.bulletsCopy())
	e.world.replace(ships, bullets)
}

func (e *Engine) snapshot() *Snapshot {
	var damage []DamageRecord
	if len(e.feed) > 0 {
		damage = append([]DamageRecord(nil), e.feed...)
	}
	return &Snapshot{
		Tick:     e.tick,
		Ships:    e.world.shipsCopy(),
		Bullets:  e.world.bulletsCopy(),
		Identity: e.world.grid.Identity(),
		Category: e.world.grid.Categories(),
		Damage:   damage,
	}
}

// recordDamage appends to this tick's feed and reports the hit.
func (e *Engine) recordDamage(rec DamageRecord, amount float64, source string) {
	e.feed = append(e.feed, rec)
	combat.Damage(context.Background(), e.deps.Publisher, e.tick,
		logging.Ref(logging.EntityKindShip, uint64(rec.Attacker)),
		logging.Ref(logging.EntityKindShip, uint64(rec.Victim)),
		combat.DamagePayload{Amount: amount, VictimHP: rec.VictimHP, Source: source}, nil)
}

func (e *Engine) recordMetrics(actions int) {
	m := e.deps.Metrics
	m.Add(metricTicksTotal, 1)
	m.Store(metricTick, e.tick)
	m.Store(metricShips, uint64(len(e.world.ships)))
	m.Store(metricBullets, uint64(len(e.world.bullets)))
	m.Store(metricUpgrades, uint64(len(e.world.upgrades)))
	if actions > 0 {
		m.Add(metricActionsTotal, uint64(actions))
	}
}
