package ws

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Alex1um/simple-unbalanced-game/internal/net/intake"
	"github.com/Alex1um/simple-unbalanced-game/internal/net/proto"
	"github.com/Alex1um/simple-unbalanced-game/internal/sim"
	"github.com/Alex1um/simple-unbalanced-game/logging"
	"github.com/Alex1um/simple-unbalanced-game/logging/network"
)

const (
	snapshotsSentMetricKey = "net_snapshots_sent_total"
	snapshotBytesMetricKey = "net_snapshot_bytes_total"
)

// session couples the read loop, which stages actions, with the write pump,
// which forwards the latest snapshot. Either side ending ends both.
type session struct {
	id      sim.ShipID
	remote  string
	conn    *websocket.Conn
	handler *Handler
	stager  intake.Stager
}

func (s *session) serve(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	h := s.handler
	ref := logging.Ref(logging.EntityKindConnection, uint64(s.id))
	network.ConnectionOpened(ctx, h.publisher, h.tick(), ref, network.ConnectionPayload{RemoteAddr: s.remote})

	var sub *sim.Subscription
	if h.broadcaster != nil {
		sub = h.broadcaster.Subscribe()
		defer sub.Close()
	}

	writeErr := make(chan error, 1)
	go func() {
		err := s.writePump(ctx, sub)
		// Unblocks the read loop.
		cancel()
		_ = s.conn.Close()
		writeErr <- err
	}()

	readErr := s.readLoop(ctx)
	cancel()
	_ = s.conn.Close()
	pumpErr := <-writeErr

	reason := "client closed"
	switch {
	case !expectedClose(readErr):
		s.reportError("read", readErr)
		reason = "read error"
	case !expectedClose(pumpErr):
		s.reportError("write", pumpErr)
		reason = "write error"
	case errors.Is(readErr, sim.ErrQueueClosed), errors.Is(pumpErr, sim.ErrBroadcasterClosed):
		reason = "simulation stopped"
	case errors.Is(pumpErr, context.Canceled) && parent.Err() != nil:
		reason = "server shutdown"
	}
	network.ConnectionClosed(context.Background(), h.publisher, h.tick(), ref, network.ConnectionPayload{RemoteAddr: s.remote, Reason: reason})
}

func (s *session) readLoop(ctx context.Context) error {
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return err
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		payload, err := s.nextTextFrame()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if payload == nil {
			continue
		}
		if _, err := s.stager.Stage(ctx, s.id, payload); err != nil {
			if intake.Malformed(err) {
				continue
			}
			return err
		}
	}
}

// nextTextFrame returns the next text message, or nil for a frame to skip:
// binary messages and text longer than maxActionSize, which is drained so the
// connection stays usable.
func (s *session) nextTextFrame() ([]byte, error) {
	messageType, r, err := s.conn.NextReader()
	if err != nil {
		return nil, err
	}
	if messageType != websocket.TextMessage {
		_, err := io.Copy(io.Discard, r)
		return nil, err
	}
	payload, err := io.ReadAll(io.LimitReader(r, maxActionSize+1))
	if err != nil {
		return nil, err
	}
	if len(payload) > maxActionSize {
		s.handler.metrics.Add(oversizedFramesMetricKey, 1)
		_, err := io.Copy(io.Discard, r)
		return nil, err
	}
	return payload, nil
}

func (s *session) writePump(ctx context.Context, sub *sim.Subscription) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	var ready <-chan struct{}
	for {
		if sub != nil {
			ready = sub.Ready()
		}
		select {
		case <-ctx.Done():
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return ctx.Err()
		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return err
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		case <-ready:
			snapshot, err := sub.Next(ctx)
			if err != nil {
				if errors.Is(err, sim.ErrBroadcasterClosed) {
					_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
					_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "simulation stopped"))
				}
				return err
			}
			data, err := proto.EncodeSnapshot(snapshot, s.id)
			if err != nil {
				return err
			}
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return err
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return err
			}
			s.handler.metrics.Add(snapshotsSentMetricKey, 1)
			s.handler.metrics.Add(snapshotBytesMetricKey, uint64(len(data)))
		}
	}
}

func (s *session) reportError(stage string, err error) {
	h := s.handler
	h.logger.Printf("connection %d (%s) %s failed: %v", s.id, s.remote, stage, err)
	ref := logging.Ref(logging.EntityKindConnection, uint64(s.id))
	network.ConnectionError(context.Background(), h.publisher, h.tick(), ref, network.ConnectionErrorPayload{
		RemoteAddr: s.remote,
		Stage:      stage,
		Error:      err.Error(),
	})
}
