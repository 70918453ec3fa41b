package sim

import "fmt"

// InvariantError is the panic value raised when the world reaches a state
// that only a logic error can produce. It is not meant to be recovered.
type InvariantError struct {
	Tick   uint64
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("sim: invariant violated at tick %d: %s", e.Tick, e.Reason)
}

func (e *Engine) violate(format string, args ...any) {
	panic(&InvariantError{Tick: e.tick, Reason: fmt.Sprintf(format, args...)})
}

// checkInvariants verifies bounds, hp, that every ship owns the cell it sits
// in and that every occupied cell points at an entity that exists and
// actually sits in that cell.
func (e *Engine) checkInvariants() {
	w := e.world
	inBounds := func(v float64) bool { return v >= 0 && v < w.size }

	for _, id := range w.shipIDs() {
		s := w.ships[id]
		if !inBounds(s.X) || !inBounds(s.Y) {
			e.violate("ship %d out of bounds at (%g,%g)", id, s.X, s.Y)
		}
		if !s.Alive() {
			e.violate("ship %d survived the tick with hp %g", id, s.HP)
		}
		cx, cy := w.grid.CellOf(s.X, s.Y)
		if cell := w.grid.At(cx, cy); cell.Category != CategoryShip || cell.ID != uint64(id) {
			e.violate("ship %d at (%d,%d) does not own its cell, found %s %d", id, cx, cy, cell.Category, cell.ID)
		}
	}
	for _, id := range w.bulletIDs() {
		b := w.bullets[id]
		if !inBounds(b.X) || !inBounds(b.Y) {
			e.violate("bullet %d out of bounds at (%g,%g)", id, b.X, b.Y)
		}
	}

	grid := w.grid
	for cy := 0; cy < grid.Size(); cy++ {
		for cx := 0; cx < grid.Size(); cx++ {
			cell := grid.At(cx, cy)
			switch cell.Category {
			case CategoryNone:
			case CategoryShip:
				s, ok := w.ships[ShipID(cell.ID)]
				if !ok {
					e.violate("cell (%d,%d) holds missing ship %d", cx, cy, cell.ID)
				}
				if x, y := grid.CellOf(s.X, s.Y); x != cx || y != cy {
					e.violate("cell (%d,%d) holds ship %d located in (%d,%d)", cx, cy, cell.ID, x, y)
				}
			case CategoryBullet:
				b, ok := w.bullets[BulletID(cell.ID)]
				if !ok {
					e.violate("cell (%d,%d) holds missing bullet %d", cx, cy, cell.ID)
				}
				if x, y := grid.CellOf(b.X, b.Y); x != cx || y != cy {
					e.violate("cell (%d,%d) holds bullet %d located in (%d,%d)", cx, cy, cell.ID, x, y)
				}
			case CategoryUpgrade:
				u, ok := w.upgrades[ShipID(cell.ID)]
				if !ok || u.X != cx || u.Y != cy {
					e.violate("cell (%d,%d) holds stale upgrade for ship %d", cx, cy, cell.ID)
				}
			default:
				e.violate("cell (%d,%d) has unknown category %d", cx, cy, cell.Category)
			}
		}
	}
}
