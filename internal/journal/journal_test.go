package journal

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/Alex1um/simple-unbalanced-game/internal/sim"
)

func scriptedActions(tick uint64) []sim.Action {
	switch {
	case tick == 1:
		return []sim.Action{sim.MoveShip(1, 0), sim.MoveShip(2, math.Pi)}
	case tick%15 == 0:
		return []sim.Action{sim.AddBullet(1, float64(tick)*0.1), sim.AddBullet(2, float64(tick)*0.2)}
	case tick%40 == 0:
		return []sim.Action{sim.MoveShip(1, float64(tick)*0.05), sim.PlacePickup(2)}
	}
	return nil
}

type hasher struct {
	t   *testing.T
	sum [32]byte
	raw []byte
}

func (h *hasher) add(step sim.StepResult) {
	data, err := json.Marshal(step.Snapshot)
	if err != nil {
		h.t.Fatalf("marshal snapshot: %v", err)
	}
	h.raw = append(h.raw, data...)
	h.sum = sha256.Sum256(h.raw)
}

func record(t *testing.T, cfg sim.Config, ticks int) (*bytes.Buffer, [32]byte) {
	t.Helper()

	var buf bytes.Buffer
	w, err := NewWriter(&buf, cfg)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	engine := sim.NewEngine(cfg, sim.Deps{})
	h := &hasher{t: t}
	for i := 1; i <= ticks; i++ {
		step := engine.Step(sim.ActionBatch(scriptedActions(uint64(i))))
		if err := w.Append(Record{Tick: step.Tick, Actions: step.Actions}); err != nil {
			t.Fatalf("append: %v", err)
		}
		h.add(step)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	return &buf, h.sum
}

func TestRecordRoundTrip(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.Seed = "journal"
	buf, _ := record(t, cfg, 30)

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	if r.Header().Config.Seed != "journal" || r.Header().Config.MapSize != cfg.MapSize {
		t.Fatalf("unexpected header %+v", r.Header())
	}

	var ticks []uint64
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		ticks = append(ticks, rec.Tick)
		if rec.Tick == 15 {
			want := scriptedActions(15)
			if len(rec.Actions) != len(want) || rec.Actions[0] != want[0] || rec.Actions[1] != want[1] {
				t.Fatalf("tick 15 actions %+v, want %+v", rec.Actions, want)
			}
		}
	}
	if len(ticks) != 30 || ticks[0] != 1 || ticks[29] != 30 {
		t.Fatalf("unexpected ticks %v", ticks)
	}
}

func TestReplayReproducesSnapshots(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.Seed = "replay"
	buf, want := record(t, cfg, 240)

	h := &hasher{t: t}
	ticks, err := Replay(buf, sim.Deps{}, func(step sim.StepResult) error {
		h.add(step)
		return nil
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if ticks != 240 {
		t.Fatalf("expected 240 ticks, got %d", ticks)
	}
	if h.sum != want {
		t.Fatalf("replayed snapshots diverged from the recorded run")
	}
}

func TestReplayStopsOnCallbackError(t *testing.T) {
	buf, _ := record(t, sim.DefaultConfig(), 10)
	stop := errors.New("stop")

	ticks, err := Replay(buf, sim.Deps{}, func(step sim.StepResult) error {
		if step.Tick == 4 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) || ticks != 4 {
		t.Fatalf("expected to stop at tick 4, got %d %v", ticks, err)
	}
}

func TestReplayRejectsGaps(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, sim.DefaultConfig())
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	w.Append(Record{Tick: 1})
	w.Append(Record{Tick: 3})
	w.Flush()

	if _, err := Replay(&buf, sim.Deps{}, nil); err == nil {
		t.Fatalf("expected a gap in ticks to be rejected")
	}
}

func TestReaderRejectsForeignStreams(t *testing.T) {
	cases := map[string][]byte{
		"empty":   nil,
		"garbage": []byte("definitely not msgpack"),
	}
	for name, data := range cases {
		if _, err := NewReader(bytes.NewReader(data)); !errors.Is(err, ErrBadHeader) {
			t.Fatalf("%s: expected ErrBadHeader, got %v", name, err)
		}
	}
}
