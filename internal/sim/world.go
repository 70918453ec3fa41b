package sim

import (
	"maps"
	"slices"
)

// World is the authoritative store. Only the engine that owns it mutates it,
// so it carries no locks.
type World struct {
	size     float64
	ships    map[ShipID]*Ship
	bullets  map[BulletID]*Bullet
	upgrades map[ShipID]*Upgrade
	// nextBullet is the id the next bullet receives. Ids are never reused.
	nextBullet BulletID
	grid       *Grid
}

func newWorld(size int) *World {
	return &World{
		size:     float64(size),
		ships:    make(map[ShipID]*Ship),
		bullets:  make(map[BulletID]*Bullet),
		upgrades: make(map[ShipID]*Upgrade),
		grid:     NewGrid(size),
	}
}

func (w *World) upsertShip(id ShipID, ship Ship) {
	if existing, ok := w.ships[id]; ok {
		*existing = ship
		return
	}
	w.ships[id] = &ship
}

func (w *World) removeShip(id ShipID) {
	delete(w.ships, id)
}

func (w *World) insertBullet(b Bullet) BulletID {
	id := w.nextBullet
	w.nextBullet++
	w.bullets[id] = &b
	return id
}

func (w *World) removeBullet(id BulletID) {
	delete(w.bullets, id)
}

// holdUpgrade keeps u for its target, replacing any upgrade already held.
func (w *World) holdUpgrade(u Upgrade) {
	w.upgrades[u.Target] = &u
}

func (w *World) takeUpgrade(target ShipID) (Upgrade, bool) {
	u, ok := w.upgrades[target]
	if !ok {
		return Upgrade{}, false
	}
	delete(w.upgrades, target)
	return *u, true
}

func (w *World) shipIDs() []ShipID {
	return slices.Sorted(maps.Keys(w.ships))
}

func (w *World) bulletIDs() []BulletID {
	return slices.Sorted(maps.Keys(w.bullets))
}

func (w *World) upgradeTargets() []ShipID {
	return slices.Sorted(maps.Keys(w.upgrades))
}

// Ship returns a copy of the ship with the given id.
func (w *World) Ship(id ShipID) (Ship, bool) {
	s, ok := w.ships[id]
	if !ok {
		return Ship{}, false
	}
	return *s, true
}

func (w *World) Bullet(id BulletID) (Bullet, bool) {
	b, ok := w.bullets[id]
	if !ok {
		return Bullet{}, false
	}
	return *b, true
}

func (w *World) Upgrade(target ShipID) (Upgrade, bool) {
	u, ok := w.upgrades[target]
	if !ok {
		return Upgrade{}, false
	}
	return *u, true
}

func (w *World) NextBulletID() BulletID { return w.nextBullet }

func (w *World) Grid() *Grid { return w.grid }

func (w *World) shipsCopy() map[ShipID]Ship {
	out := make(map[ShipID]Ship, len(w.ships))
	for id, s := range w.ships {
		out[id] = *s
	}
	return out
}

func (w *World) bulletsCopy() map[BulletID]Bullet {
	out := make(map[BulletID]Bullet, len(w.bullets))
	for id, b := range w.bullets {
		out[id] = *b
	}
	return out
}

// replace installs collections returned by a pre-tick hook.
func (w *World) replace(ships map[ShipID]Ship, bullets map[BulletID]Bullet) {
	w.ships = make(map[ShipID]*Ship, len(ships))
	for id, s := range ships {
		w.ships[id] = &s
	}
	w.bullets = make(map[BulletID]*Bullet, len(bullets))
	for id, b := range bullets {
		w.bullets[id] = &b
	}
}
