package app

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Alex1um/simple-unbalanced-game/internal/config"
	"github.com/Alex1um/simple-unbalanced-game/internal/journal"
	"github.com/Alex1um/simple-unbalanced-game/internal/net/proto"
	"github.com/Alex1um/simple-unbalanced-game/internal/sim"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRunServesPlayersUntilCancelled(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	cfg := config.Default()
	cfg.Sim.Seed = "app"
	cfg.Sim.TickRate = 50
	cfg.JournalPath = filepath.Join(t.TempDir(), "run.journal")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{Config: cfg, Logger: quietLogger(), Listener: listener})
	}()

	base := "http://" + listener.Addr().String()
	resp, err := http.Get(base + "/health")
	if err != nil {
		cancel()
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		cancel()
		t.Fatalf("expected healthy server, got %d", resp.StatusCode)
	}

	conn, wsResp, err := websocket.DefaultDialer.Dial("ws://"+listener.Addr().String()+"/ws", nil)
	if err != nil {
		cancel()
		t.Fatalf("dial: %v", err)
	}
	if wsResp != nil {
		wsResp.Body.Close()
	}
	defer conn.Close()

	move, err := proto.EncodeAction(proto.MoveShipMessage(1))
	if err != nil {
		cancel()
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, move); err != nil {
		cancel()
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		_, payload, err := conn.ReadMessage()
		if err != nil {
			cancel()
			t.Fatalf("never saw our own ship: %v", err)
		}
		frame, err := proto.DecodeSnapshot(payload)
		if err != nil {
			cancel()
			t.Fatalf("decode: %v", err)
		}
		if frame.Size() != cfg.Sim.MapSize {
			cancel()
			t.Fatalf("expected %d-cell grids, got %d", cfg.Sim.MapSize, frame.Size())
		}
		if ship, ok := frame.Own(); ok {
			if ship.HP != sim.DefaultBaseline().MaxHP {
				cancel()
				t.Fatalf("expected a fresh ship, got %+v", ship)
			}
			break
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after cancellation")
	}

	summary, err := Replay(cfg.JournalPath)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if summary.Ticks == 0 {
		t.Fatalf("expected the journal to hold ticks")
	}
}

func TestReplayDigestIsStable(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.Seed = "digest"

	var buf bytes.Buffer
	w, err := journal.NewWriter(&buf, cfg)
	if err != nil {
		t.Fatalf("writer: %v", err)
	}
	engine := sim.NewEngine(cfg, sim.Deps{})
	for i := 0; i < 120; i++ {
		var actions sim.ActionBatch
		switch {
		case i == 0:
			actions = sim.ActionBatch{sim.MoveShip(1, 0), sim.MoveShip(2, 2)}
		case i%10 == 0:
			actions = sim.ActionBatch{sim.AddBullet(1, float64(i)), sim.AddBullet(2, -float64(i))}
		}
		step := engine.Step(actions)
		if err := w.Append(journal.Record{Tick: step.Tick, Actions: step.Actions}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	w.Flush()

	first, err := replayFrom(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("first replay: %v", err)
	}
	second, err := replayFrom(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("second replay: %v", err)
	}
	if first.Ticks != 120 || first != second {
		t.Fatalf("replays disagree: %+v vs %+v", first, second)
	}
}
