package proto

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Alex1um/simple-unbalanced-game/internal/sim"
)

// Variant names of the client action union.
const (
	TypeMoveShip  = "MoveShip"
	TypeAddBullet = "AddBullet"
)

// snapshotArity is the fixed length of the snapshot tuple:
// [recipient, ships, bullets, identity, category, damage].
const snapshotArity = 6

var ErrMalformedAction = errors.New("proto: malformed action")

// ActionMessage is the client action union. Exactly one variant is set on
// the wire: {"MoveShip": {"angle": 1.5}} or {"AddBullet": {"angle": 0}}.
type ActionMessage struct {
	MoveShip  *AnglePayload `json:"MoveShip,omitempty"`
	AddBullet *AnglePayload `json:"AddBullet,omitempty"`
}

type AnglePayload struct {
	Angle float64 `json:"angle" jsonschema:"required"`
}

func MoveShipMessage(angle float64) ActionMessage {
	return ActionMessage{MoveShip: &AnglePayload{Angle: angle}}
}

func AddBulletMessage(angle float64) ActionMessage {
	return ActionMessage{AddBullet: &AnglePayload{Angle: angle}}
}

// DecodeAction parses one client frame. Anything other than an object with
// a single known variant carrying a numeric angle is rejected.
func DecodeAction(data []byte) (ActionMessage, error) {
	var variants map[string]json.RawMessage
	if err := json.Unmarshal(data, &variants); err != nil {
		return ActionMessage{}, fmt.Errorf("%w: %v", ErrMalformedAction, err)
	}
	if len(variants) != 1 {
		return ActionMessage{}, fmt.Errorf("%w: expected one variant, got %d", ErrMalformedAction, len(variants))
	}
	for name, raw := range variants {
		var body struct {
			Angle *float64 `json:"angle"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return ActionMessage{}, fmt.Errorf("%w: %s: %v", ErrMalformedAction, name, err)
		}
		if body.Angle == nil {
			return ActionMessage{}, fmt.Errorf("%w: %s: missing angle", ErrMalformedAction, name)
		}
		payload := &AnglePayload{Angle: *body.Angle}
		switch name {
		case TypeMoveShip:
			return ActionMessage{MoveShip: payload}, nil
		case TypeAddBullet:
			return ActionMessage{AddBullet: payload}, nil
		default:
			return ActionMessage{}, fmt.Errorf("%w: unknown variant %q", ErrMalformedAction, name)
		}
	}
	return ActionMessage{}, ErrMalformedAction
}

func EncodeAction(msg ActionMessage) ([]byte, error) {
	if (msg.MoveShip == nil) == (msg.AddBullet == nil) {
		return nil, fmt.Errorf("%w: exactly one variant must be set", ErrMalformedAction)
	}
	return json.Marshal(msg)
}

// Action attributes the message to a ship.
func (m ActionMessage) Action(ship sim.ShipID) (sim.Action, bool) {
	switch {
	case m.MoveShip != nil && m.AddBullet == nil:
		return sim.MoveShip(ship, m.MoveShip.Angle), true
	case m.AddBullet != nil && m.MoveShip == nil:
		return sim.AddBullet(ship, m.AddBullet.Angle), true
	default:
		return sim.Action{}, false
	}
}

// damageTriple renders a damage record as [attacker, victim, victimHp].
type damageTriple sim.DamageRecord

func (d damageTriple) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]any{d.Attacker, d.Victim, d.VictimHP})
}

func (d *damageTriple) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 3 {
		return fmt.Errorf("proto: damage record has %d fields", len(parts))
	}
	if err := json.Unmarshal(parts[0], &d.Attacker); err != nil {
		return fmt.Errorf("proto: damage attacker: %w", err)
	}
	if err := json.Unmarshal(parts[1], &d.Victim); err != nil {
		return fmt.Errorf("proto: damage victim: %w", err)
	}
	if err := json.Unmarshal(parts[2], &d.VictimHP); err != nil {
		return fmt.Errorf("proto: damage hp: %w", err)
	}
	return nil
}

// EncodeSnapshot renders the snapshot tuple addressed to recipient.
func EncodeSnapshot(snapshot *sim.Snapshot, recipient sim.ShipID) ([]byte, error) {
	if snapshot == nil {
		return nil, errors.New("proto: nil snapshot")
	}
	ships := snapshot.Ships
	if ships == nil {
		ships = map[sim.ShipID]sim.Ship{}
	}
	bullets := snapshot.Bullets
	if bullets == nil {
		bullets = map[sim.BulletID]sim.Bullet{}
	}
	damage := make([]damageTriple, len(snapshot.Damage))
	for i, rec := range snapshot.Damage {
		damage[i] = damageTriple(rec)
	}
	return json.Marshal([snapshotArity]any{
		recipient,
		ships,
		bullets,
		snapshot.Identity,
		snapshot.Category,
		damage,
	})
}

// Frame is a decoded snapshot as a client sees it.
type Frame struct {
	Recipient sim.ShipID
	Ships     map[sim.ShipID]sim.Ship
	Bullets   map[sim.BulletID]sim.Bullet
	Identity  [][]uint64
	Category  [][]sim.Category
	Damage    []sim.DamageRecord
}

// Size is the side length of the grids.
func (f Frame) Size() int { return len(f.Category) }

// Own returns the recipient's ship, if it is alive.
func (f Frame) Own() (sim.Ship, bool) {
	s, ok := f.Ships[f.Recipient]
	return s, ok
}

func DecodeSnapshot(data []byte) (Frame, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return Frame{}, fmt.Errorf("proto: snapshot: %w", err)
	}
	if len(parts) != snapshotArity {
		return Frame{}, fmt.Errorf("proto: snapshot has %d fields, want %d", len(parts), snapshotArity)
	}
	var (
		frame  Frame
		damage []damageTriple
	)
	targets := []any{&frame.Recipient, &frame.Ships, &frame.Bullets, &frame.Identity, &frame.Category, &damage}
	for i, target := range targets {
		if err := json.Unmarshal(parts[i], target); err != nil {
			return Frame{}, fmt.Errorf("proto: snapshot field %d: %w", i, err)
		}
	}
	if len(damage) > 0 {
		frame.Damage = make([]sim.DamageRecord, len(damage))
		for i, d := range damage {
			frame.Damage[i] = sim.DamageRecord(d)
		}
	}
	return frame, nil
}

// WireTypes gathers the message shapes for schema generation.
type WireTypes struct {
	Action   ActionMessage      `json:"action" jsonschema:"description=Client frame; exactly one of MoveShip or AddBullet"`
	Ship     sim.Ship           `json:"ship"`
	Bullet   sim.Bullet         `json:"bullet"`
	Category sim.Category       `json:"category" jsonschema:"description=0 none / 1 ship / 2 bullet / 3 upgrade"`
	Snapshot [snapshotArity]any `json:"snapshot" jsonschema:"description=recipient id / ships by id / bullets by id / identity grid / category grid / damage triples [attacker victim hp]"`
}
