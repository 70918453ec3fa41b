// Package journal records the actions applied on every tick so a run can be
// re-simulated offline. Given the same header the engine reproduces every
// snapshot exactly.
package journal

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/Alex1um/simple-unbalanced-game/internal/sim"
)

const (
	magic   = "arena-journal"
	Version = 1
)

// ErrBadHeader is returned when a stream does not start with a journal
// header this build understands.
var ErrBadHeader = errors.New("journal: bad header")

// Header opens every journal. Config carries the seed.
type Header struct {
	Magic   string     `msgpack:"magic"`
	Version int        `msgpack:"version"`
	Config  sim.Config `msgpack:"config"`
}

// Record lists the actions applied on one tick, possibly none.
type Record struct {
	Tick    uint64       `msgpack:"t"`
	Actions []sim.Action `msgpack:"a"`
}

// Writer appends records to a buffered stream. It is owned by the loop
// goroutine and is not safe for concurrent use.
type Writer struct {
	buf *bufio.Writer
	enc *msgpack.Encoder
	w   io.Writer
}

// NewWriter writes the header for cfg and returns a writer for the records.
func NewWriter(w io.Writer, cfg sim.Config) (*Writer, error) {
	buf := bufio.NewWriter(w)
	enc := msgpack.NewEncoder(buf)
	header := Header{Magic: magic, Version: Version, Config: cfg.Normalized()}
	if err := enc.Encode(&header); err != nil {
		return nil, fmt.Errorf("journal: write header: %w", err)
	}
	return &Writer{buf: buf, enc: enc, w: w}, nil
}

func (w *Writer) Append(rec Record) error {
	if err := w.enc.Encode(&rec); err != nil {
		return fmt.Errorf("journal: write tick %d: %w", rec.Tick, err)
	}
	return nil
}

func (w *Writer) Flush() error {
	return w.buf.Flush()
}

// Close flushes and closes the underlying stream when it is a Closer.
func (w *Writer) Close() error {
	err := w.buf.Flush()
	if c, ok := w.w.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

type Reader struct {
	dec    *msgpack.Decoder
	header Header
}

func NewReader(r io.Reader) (*Reader, error) {
	dec := msgpack.NewDecoder(bufio.NewReader(r))
	var header Header
	if err := dec.Decode(&header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	if header.Magic != magic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadHeader, header.Magic)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: version %d", ErrBadHeader, header.Version)
	}
	return &Reader{dec: dec, header: header}, nil
}

func (r *Reader) Header() Header { return r.header }

// Next returns the next record, or io.EOF at the end of the stream.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("journal: read record: %w", err)
	}
	return rec, nil
}

// Replay re-simulates a journal with a fresh engine, handing every step to
// fn. It returns the number of ticks replayed. A journal whose ticks are not
// consecutive from one is rejected.
func Replay(r io.Reader, deps sim.Deps, fn func(sim.StepResult) error) (uint64, error) {
	reader, err := NewReader(r)
	if err != nil {
		return 0, err
	}
	engine := sim.NewEngine(reader.Header().Config, deps)
	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return engine.Tick(), nil
		}
		if err != nil {
			return engine.Tick(), err
		}
		if want := engine.Tick() + 1; rec.Tick != want {
			return engine.Tick(), fmt.Errorf("journal: record for tick %d, expected %d", rec.Tick, want)
		}
		step := engine.Step(sim.ActionBatch(rec.Actions))
		if fn != nil {
			if err := fn(step); err != nil {
				return step.Tick, err
			}
		}
	}
}
