package sim

import (
	"context"
	"math"

	"github.com/Alex1um/simple-unbalanced-game/logging"
	"github.com/Alex1um/simple-unbalanced-game/logging/combat"
	"github.com/Alex1um/simple-unbalanced-game/logging/progression"
)

func (e *Engine) placeUpgrades() {
	grid := e.world.grid
	for _, target := range e.world.upgradeTargets() {
		u := e.world.upgrades[target]
		grid.Set(u.X, u.Y, Cell{ID: uint64(target), Category: CategoryUpgrade})
	}
}

// bulletPhase ages every bullet, drops the spent ones and writes the rest
// into the grid. When two bullets share a cell the higher id wins.
func (e *Engine) bulletPhase() {
	w := e.world
	for _, id := range w.bulletIDs() {
		b := w.bullets[id]
		b.TTL -= e.dt
		if b.Expired() {
			w.removeBullet(id)
			continue
		}
		b.X = wrap(b.X+b.V*math.Cos(b.Angle), w.size)
		b.Y = wrap(b.Y+b.V*math.Sin(b.Angle), w.size)
		cx, cy := w.grid.CellOf(b.X, b.Y)
		w.grid.Set(cx, cy, Cell{ID: uint64(id), Category: CategoryBullet})
	}
}

// shipMove is a ship that leaves its cell this tick. under is what the cell
// held before the ship claimed it for the duration of the phase.
type shipMove struct {
	id     ShipID
	ship   *Ship
	nx, ny float64
	ox, oy int
	under  Cell
}

// shipPhase resolves ships that stay in their cell first, and every mover
// holds its current cell until it actually leaves. A ship therefore never
// enters a cell another ship still occupies, whatever the id order.
func (e *Engine) shipPhase() {
	w := e.world
	grid := w.grid
	var movers []shipMove
	for _, id := range w.shipIDs() {
		s := w.ships[id]
		if !s.Alive() {
			continue
		}
		e.repair(s)
		nx, ny := s.X, s.Y
		if s.Aligned() {
			nx = wrap(s.X+s.V*math.Cos(s.CurrentAngle), w.size)
			ny = wrap(s.Y+s.V*math.Sin(s.CurrentAngle), w.size)
		} else {
			turn(s)
		}
		ox, oy := grid.CellOf(s.X, s.Y)
		if cx, cy := grid.CellOf(nx, ny); cx == ox && cy == oy {
			e.resolveMove(id, s, nx, ny)
			continue
		}
		under := grid.At(ox, oy)
		if under.Category != CategoryShip {
			grid.Set(ox, oy, Cell{ID: uint64(id), Category: CategoryShip})
		}
		movers = append(movers, shipMove{id: id, ship: s, nx: nx, ny: ny, ox: ox, oy: oy, under: under})
	}

	for _, m := range movers {
		if !e.resolveMove(m.id, m.ship, m.nx, m.ny) {
			continue
		}
		if held := grid.At(m.ox, m.oy); held.Category == CategoryShip && held.ID == uint64(m.id) {
			grid.Set(m.ox, m.oy, m.under)
		}
	}
}

func (e *Engine) repair(s *Ship) {
	if s.HP >= s.MaxHP {
		return
	}
	s.HP += s.RepairRate
	if e.cfg.ClampRepair && s.HP > s.MaxHP {
		s.HP = s.MaxHP
	}
}

// turn rotates the current heading toward the target along the shorter arc,
// snapping exactly onto the target once it is within one step.
func turn(s *Ship) {
	remain := normalizeAngle(s.Angle - s.CurrentAngle)
	if math.Abs(remain) <= s.TurnRate {
		s.CurrentAngle = s.Angle
		return
	}
	s.CurrentAngle += math.Copysign(s.TurnRate, remain)
}

// resolveMove classifies the destination cell and applies the outcome. It
// reports whether the ship entered the cell.
func (e *Engine) resolveMove(id ShipID, s *Ship, nx, ny float64) bool {
	w := e.world
	grid := w.grid
	cx, cy := grid.CellOf(nx, ny)
	self := Cell{ID: uint64(id), Category: CategoryShip}

	cell := grid.At(cx, cy)
	switch cell.Category {
	case CategoryShip:
		// Blocked. Hold the current cell if nobody else took it.
		ox, oy := grid.CellOf(s.X, s.Y)
		if grid.Free(ox, oy) {
			grid.Set(ox, oy, self)
		}
		return false
	case CategoryBullet:
		b, ok := w.bullets[BulletID(cell.ID)]
		if !ok {
			e.violate("cell (%d,%d) holds bullet %d which does not exist", cx, cy, cell.ID)
		}
		bulletHP := b.HP
		b.HP -= s.HP
		s.HP -= bulletHP
		e.recordDamage(DamageRecord{Attacker: b.Owner, Victim: id, VictimHP: s.HP}, bulletHP, combat.SourceBullet)
	case CategoryUpgrade:
		if cell.ID == uint64(id) {
			e.collectUpgrade(id, s)
		}
	}
	grid.Set(cx, cy, self)
	s.X, s.Y = nx, ny
	return true
}

// collectUpgrade applies the upgrade held for the entering ship. Callers
// only invoke it for the cell that upgrade occupies.
func (e *Engine) collectUpgrade(id ShipID, s *Ship) {
	u, ok := e.world.takeUpgrade(id)
	if !ok {
		return
	}
	if held := e.world.grid.At(u.X, u.Y); held.Category == CategoryUpgrade && held.ID == uint64(id) {
		e.world.grid.Clear(u.X, u.Y)
	}
	s.ShipStats.Apply(u.Enchantment, e.cfg.StatCeiling)
	progression.EnchantmentApplied(context.Background(), e.deps.Publisher, e.tick,
		logging.Ref(logging.EntityKindShip, uint64(id)), nil,
		enchantmentPayload(progression.SourcePickup, u.Enchantment), nil)
}
