package app

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"github.com/Alex1um/simple-unbalanced-game/internal/journal"
	"github.com/Alex1um/simple-unbalanced-game/internal/net/proto"
	"github.com/Alex1um/simple-unbalanced-game/internal/sim"
	"github.com/Alex1um/simple-unbalanced-game/internal/telemetry"
)

// journalRecorder appends each tick's actions from the loop goroutine. The
// first write error disables it so a full disk never stalls the loop.
type journalRecorder struct {
	writer *journal.Writer
	logger telemetry.Logger
	failed bool
}

func openJournal(path string, cfg sim.Config, logger telemetry.Logger) (*journalRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create journal %s: %w", path, err)
	}
	w, err := journal.NewWriter(f, cfg)
	if err != nil {
		f.Close()
		return nil, err
	}
	logger.Printf("journaling actions to %s", path)
	return &journalRecorder{writer: w, logger: logger}, nil
}

func (j *journalRecorder) append(step sim.LoopStepResult) {
	if j.failed {
		return
	}
	if err := j.writer.Append(journal.Record{Tick: step.Tick, Actions: step.Actions}); err != nil {
		j.failed = true
		j.logger.Printf("journal disabled: %v", err)
	}
}

func (j *journalRecorder) close() {
	if err := j.writer.Close(); err != nil {
		j.logger.Printf("failed to close journal: %v", err)
	}
}

// ReplaySummary describes a re-simulated journal.
type ReplaySummary struct {
	Ticks  uint64
	Digest [sha256.Size]byte
}

// Replay re-simulates the journal at path without wall-clock pacing. The
// digest covers every snapshot in wire form, so two runs agree exactly when
// their digests do.
func Replay(path string) (ReplaySummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReplaySummary{}, fmt.Errorf("open journal %s: %w", path, err)
	}
	defer f.Close()
	return replayFrom(f)
}

func replayFrom(r io.Reader) (ReplaySummary, error) {
	hash := sha256.New()
	ticks, err := journal.Replay(r, sim.Deps{}, func(step sim.StepResult) error {
		data, err := proto.EncodeSnapshot(step.Snapshot, 0)
		if err != nil {
			return err
		}
		hash.Write(data)
		return nil
	})
	if err != nil {
		return ReplaySummary{Ticks: ticks}, err
	}
	summary := ReplaySummary{Ticks: ticks}
	copy(summary.Digest[:], hash.Sum(nil))
	return summary, nil
}
