// Package bot holds headless players. A strategy sees one decoded frame at a
// time and answers with the actions to send; it never touches the network.
package bot

import (
	"fmt"
	"maps"
	"math"
	"math/rand"
	"slices"

	"github.com/Alex1um/simple-unbalanced-game/internal/net/proto"
	"github.com/Alex1um/simple-unbalanced-game/internal/sim"
)

const (
	steerEvery  = 60
	fireEvery   = 10
	fireRange   = 7.0
	chaserLead  = 3.0
	hunterLead  = 2.0
	offsetRange = 3
	evadeEvery  = 10
	scanRange   = 3
)

// Strategy decides what to send after the frame-th snapshot (counting from one).
type Strategy interface {
	Decide(frame proto.Frame, count uint64) []proto.ActionMessage
}

// Names lists the strategies New understands.
func Names() []string {
	return []string{"chaser", "evader", "hunter"}
}

func New(name string, rng *rand.Rand) (Strategy, error) {
	switch name {
	case "chaser":
		return Chaser{}, nil
	case "hunter":
		if rng == nil {
			rng = rand.New(rand.NewSource(1))
		}
		return &Hunter{rng: rng}, nil
	case "evader":
		return Evader{}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q, want one of %v", name, Names())
	}
}

// respawn is what every strategy sends while its ship is absent.
func respawn() []proto.ActionMessage {
	return []proto.ActionMessage{proto.MoveShipMessage(0)}
}

// Chaser follows the lowest-id other ship, staying two cells below it, and
// fires ahead of it when in range.
type Chaser struct{}

func (Chaser) Decide(frame proto.Frame, count uint64) []proto.ActionMessage {
	self, ok := frame.Own()
	if !ok {
		return respawn()
	}
	for _, id := range sortedShipIDs(frame) {
		if id == frame.Recipient {
			continue
		}
		target := frame.Ships[id]
		var out []proto.ActionMessage
		if count%steerEvery == 0 {
			out = append(out, proto.MoveShipMessage(heading(frame, self, target.X, target.Y+2)))
		}
		if count%fireEvery == 0 && distance(frame, self, target.X, target.Y) < fireRange {
			out = append(out, proto.AddBulletMessage(lead(frame, self, target, chaserLead)))
		}
		return out
	}
	return nil
}

// Hunter picks a random victim and an offset around it, re-rolling both
// whenever the victim disappears.
type Hunter struct {
	rng    *rand.Rand
	target sim.ShipID
	offX   float64
	offY   float64
}

func (h *Hunter) Decide(frame proto.Frame, count uint64) []proto.ActionMessage {
	self, ok := frame.Own()
	if !ok {
		h.rollOffset()
		return respawn()
	}
	target, ok := frame.Ships[h.target]
	if !ok || h.target == frame.Recipient {
		others := sortedShipIDs(frame)
		others = slices.DeleteFunc(others, func(id sim.ShipID) bool { return id == frame.Recipient })
		if len(others) > 0 {
			h.target = others[h.rng.Intn(len(others))]
			h.rollOffset()
		}
		return nil
	}

	var out []proto.ActionMessage
	if count%steerEvery == 0 {
		out = append(out, proto.MoveShipMessage(heading(frame, self, target.X+h.offX, target.Y+h.offY)))
	}
	if count%fireEvery == 0 && distance(frame, self, target.X, target.Y) < fireRange {
		out = append(out, proto.AddBulletMessage(lead(frame, self, target, hunterLead)))
	}
	return out
}

func (h *Hunter) rollOffset() {
	h.offX = float64(h.rng.Intn(2*offsetRange+1) - offsetRange)
	h.offY = float64(h.rng.Intn(2*offsetRange+1) - offsetRange)
}

// Evader watches the cells around its ship and steers away from the mean
// direction of nearby bullets.
type Evader struct{}

func (Evader) Decide(frame proto.Frame, count uint64) []proto.ActionMessage {
	self, ok := frame.Own()
	if !ok {
		return respawn()
	}
	size := frame.Size()
	if count%evadeEvery != 0 || size == 0 {
		return nil
	}
	cx := wrapIndex(int(math.Round(self.X)), size)
	cy := wrapIndex(int(math.Round(self.Y)), size)

	var sum float64
	var n int
	for dy := -scanRange; dy <= scanRange; dy++ {
		row := frame.Category[wrapIndex(cy+dy, size)]
		for dx := -scanRange; dx <= scanRange; dx++ {
			if row[wrapIndex(cx+dx, size)] != sim.CategoryBullet {
				continue
			}
			sum += math.Atan2(float64(-dy), float64(-dx))
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return []proto.ActionMessage{proto.MoveShipMessage(sum / float64(n))}
}

func sortedShipIDs(frame proto.Frame) []sim.ShipID {
	return slices.Sorted(maps.Keys(frame.Ships))
}

// delta is the shortest displacement from a to b on a ring of the given size.
func delta(a, b float64, size int) float64 {
	d := b - a
	if size <= 0 {
		return d
	}
	s := float64(size)
	d = math.Mod(d, s)
	if d > s/2 {
		d -= s
	} else if d < -s/2 {
		d += s
	}
	return d
}

func heading(frame proto.Frame, self sim.Ship, x, y float64) float64 {
	size := frame.Size()
	return math.Atan2(delta(self.Y, y, size), delta(self.X, x, size))
}

func distance(frame proto.Frame, self sim.Ship, x, y float64) float64 {
	size := frame.Size()
	return math.Hypot(delta(self.X, x, size), delta(self.Y, y, size))
}

// lead aims at where target will be after travelling cells along its heading.
func lead(frame proto.Frame, self, target sim.Ship, cells float64) float64 {
	x := target.X + math.Cos(target.Angle)*cells
	y := target.Y + math.Sin(target.Angle)*cells
	return heading(frame, self, x, y)
}

func wrapIndex(i, size int) int {
	i %= size
	if i < 0 {
		i += size
	}
	return i
}
