package sim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSubscriptionSeesOnlyLatestSnapshot(t *testing.T) {
	b := NewBroadcaster(nil)
	sub := b.Subscribe()
	defer sub.Close()

	if _, ok := sub.Take(); ok {
		t.Fatalf("nothing published yet")
	}
	for tick := uint64(1); tick <= 3; tick++ {
		if err := b.Publish(&Snapshot{Tick: tick}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	snap, ok := sub.Take()
	if !ok || snap.Tick != 3 {
		t.Fatalf("slow subscriber should observe only tick 3, got %+v", snap)
	}
	if _, ok := sub.Take(); ok {
		t.Fatalf("the same snapshot must not be delivered twice")
	}
}

func TestPublishWakesEverySubscriber(t *testing.T) {
	b := NewBroadcaster(nil)
	const n = 5
	var wg sync.WaitGroup
	ticks := make(chan uint64, n)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	subs := make([]*Subscription, n)
	for i := range subs {
		subs[i] = b.Subscribe()
	}
	if got := b.Subscribers(); got != n {
		t.Fatalf("expected %d subscribers, got %d", n, got)
	}
	for _, sub := range subs {
		wg.Add(1)
		go func(s *Subscription) {
			defer wg.Done()
			snap, err := s.Next(ctx)
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			ticks <- snap.Tick
		}(sub)
	}
	time.Sleep(10 * time.Millisecond)
	b.Publish(&Snapshot{Tick: 7})
	wg.Wait()
	close(ticks)
	for tick := range ticks {
		if tick != 7 {
			t.Fatalf("expected tick 7, got %d", tick)
		}
	}
	for _, sub := range subs {
		sub.Close()
	}
	if got := b.Subscribers(); got != 0 {
		t.Fatalf("expected no subscribers after close, got %d", got)
	}
}

func TestRecipientTagIsPerDelivery(t *testing.T) {
	snap := &Snapshot{Tick: 1, Ships: map[ShipID]Ship{1: {HP: 10}}}
	a, b := snap.For(1), snap.For(2)
	if a.Recipient != 1 || b.Recipient != 2 || snap.Recipient != 0 {
		t.Fatalf("recipient tags leaked between deliveries")
	}
	if a.Ships[1] != b.Ships[1] {
		t.Fatalf("content should be shared verbatim")
	}
}

func TestClosedBroadcaster(t *testing.T) {
	b := NewBroadcaster(nil)
	sub := b.Subscribe()
	b.Publish(&Snapshot{Tick: 1})
	b.Close()

	if err := b.Publish(&Snapshot{Tick: 2}); !errors.Is(err, ErrBroadcasterClosed) {
		t.Fatalf("publish after close should fail, got %v", err)
	}
	snap, err := sub.Next(context.Background())
	if err != nil || snap.Tick != 1 {
		t.Fatalf("pending snapshot should still be delivered, got %v %v", snap, err)
	}
	if _, err := sub.Next(context.Background()); !errors.Is(err, ErrBroadcasterClosed) {
		t.Fatalf("expected ErrBroadcasterClosed, got %v", err)
	}
}
