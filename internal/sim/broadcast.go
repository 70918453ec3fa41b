package sim

import (
	"context"
	"errors"

	"github.com/sasha-s/go-deadlock"

	"github.com/Alex1um/simple-unbalanced-game/internal/telemetry"
)

const subscribersMetricKey = "sim_snapshot_subscribers"

// ErrBroadcasterClosed is returned by Publish and Next after Close.
var ErrBroadcasterClosed = errors.New("sim: broadcaster closed")

// Broadcaster holds only the latest snapshot. Each publish closes the
// current generation channel, waking every waiting subscriber at once; a
// slow subscriber simply skips the generations it missed.
type Broadcaster struct {
	mu          deadlock.Mutex
	latest      *Snapshot
	version     uint64
	changed     chan struct{}
	closed      bool
	subscribers int
	metrics     telemetry.Metrics
}

func NewBroadcaster(metrics telemetry.Metrics) *Broadcaster {
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &Broadcaster{changed: make(chan struct{}), metrics: metrics}
}

func (b *Broadcaster) Publish(snapshot *Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBroadcasterClosed
	}
	b.latest = snapshot
	b.version++
	close(b.changed)
	b.changed = make(chan struct{})
	return nil
}

// Latest returns the most recent snapshot, or nil before the first publish.
func (b *Broadcaster) Latest() *Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest
}

func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subscribers
}

// Close wakes all subscribers; they observe ErrBroadcasterClosed once they
// have taken the last snapshot.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.changed)
}

// Subscribe registers an observer. It starts at the current version, so it
// waits for the next publish.
func (b *Broadcaster) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers++
	b.metrics.Store(subscribersMetricKey, uint64(b.subscribers))
	return &Subscription{b: b, seen: b.version}
}

type Subscription struct {
	b      *Broadcaster
	seen   uint64
	closed bool
}

var closedSignal = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Ready is closed once a snapshot newer than the last one taken exists or
// the broadcaster is closed.
func (s *Subscription) Ready() <-chan struct{} {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if s.b.version > s.seen || s.b.closed {
		return closedSignal
	}
	return s.b.changed
}

// Take returns the latest snapshot if it has not been taken yet.
func (s *Subscription) Take() (*Snapshot, bool) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if s.b.version <= s.seen {
		return nil, false
	}
	s.seen = s.b.version
	return s.b.latest, true
}

// Next waits for a snapshot newer than the last one taken.
func (s *Subscription) Next(ctx context.Context) (*Snapshot, error) {
	for {
		if snapshot, ok := s.Take(); ok {
			return snapshot, nil
		}
		s.b.mu.Lock()
		closed := s.b.closed
		s.b.mu.Unlock()
		if closed {
			return nil, ErrBroadcasterClosed
		}
		select {
		case <-s.Ready():
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (s *Subscription) Close() {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.b.subscribers--
	s.b.metrics.Store(subscribersMetricKey, uint64(s.b.subscribers))
}
