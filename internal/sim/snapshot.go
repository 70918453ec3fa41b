package sim

// Snapshot is the public view of one tick. It is never mutated after the
// engine builds it; observers share one instance and only the recipient tag
// differs per delivery. Bullets fired during the tick are listed in Bullets
// but only show up in the grids from the next tick on.
type Snapshot struct {
	Tick      uint64
	Recipient ShipID
	Ships     map[ShipID]Ship
	Bullets   map[BulletID]Bullet
	Identity  [][]uint64
	Category  [][]Category
	Damage    []DamageRecord
}

// For returns a shallow copy addressed to recipient. The collections are
// shared with the original.
func (s *Snapshot) For(recipient ShipID) *Snapshot {
	if s == nil {
		return nil
	}
	addressed := *s
	addressed.Recipient = recipient
	return &addressed
}

// Size is the side length of the grids.
func (s *Snapshot) Size() int {
	if s == nil {
		return 0
	}
	return len(s.Category)
}
