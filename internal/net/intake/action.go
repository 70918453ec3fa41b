package intake

import (
	"context"
	"errors"
	"fmt"

	"github.com/Alex1um/simple-unbalanced-game/internal/net/proto"
	"github.com/Alex1um/simple-unbalanced-game/internal/sim"
	"github.com/Alex1um/simple-unbalanced-game/internal/telemetry"
)

const (
	actionsAcceptedMetricKey = "net_actions_accepted_total"
	actionsDroppedMetricKey  = "net_actions_malformed_total"
)

// Sender is the producer side of the action queue.
type Sender interface {
	Send(ctx context.Context, action sim.Action) error
}

// Stager turns inbound frames into queued actions for one connection.
type Stager struct {
	Queue   Sender
	Metrics telemetry.Metrics
}

// Stage decodes a frame and queues it for ship, blocking while the queue is
// full. Malformed frames return an error wrapping proto.ErrMalformedAction
// and are not queued; the connection should drop them and carry on. Any
// other error means the queue is gone and the connection should end.
func (s Stager) Stage(ctx context.Context, ship sim.ShipID, frame []byte) (sim.Action, error) {
	msg, err := proto.DecodeAction(frame)
	if err != nil {
		s.count(actionsDroppedMetricKey)
		return sim.Action{}, err
	}
	action, ok := msg.Action(ship)
	if !ok {
		s.count(actionsDroppedMetricKey)
		return sim.Action{}, proto.ErrMalformedAction
	}
	if err := s.Enqueue(ctx, action); err != nil {
		return sim.Action{}, err
	}
	return action, nil
}

// Malformed reports whether a Stage error only concerns the frame itself.
func Malformed(err error) bool {
	return errors.Is(err, proto.ErrMalformedAction)
}

func (s Stager) count(key string) {
	if s.Metrics != nil {
		s.Metrics.Add(key, 1)
	}
}

// Enqueue queues an action that did not come from a client frame, such as a
// debug pickup placement.
func (s Stager) Enqueue(ctx context.Context, action sim.Action) error {
	if s.Queue == nil {
		return sim.ErrQueueClosed
	}
	if err := s.Queue.Send(ctx, action); err != nil {
		return fmt.Errorf("queue %s for ship %d: %w", action.Kind, action.Ship, err)
	}
	s.count(actionsAcceptedMetricKey)
	return nil
}
