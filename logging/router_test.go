package logging_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Alex1um/simple-unbalanced-game/logging"
	"github.com/Alex1um/simple-unbalanced-game/logging/sinks"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRouterFiltersAndDecoratesEvents(t *testing.T) {
	memory := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityInfo
	cfg.Fields = map[string]any{"run": "r1"}
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	router, err := logging.NewRouter(logging.ClockFunc(func() time.Time { return fixed }), cfg,
		[]logging.NamedSink{{Name: "memory", Sink: memory}}, quietLogger())
	if err != nil {
		t.Fatalf("new router: %v", err)
	}

	ctx := context.Background()
	router.Publish(ctx, logging.Event{Type: "debug.noise", Severity: logging.SeverityDebug})
	router.Publish(ctx, logging.Event{Type: "test.kept", Tick: 9, Severity: logging.SeverityWarn})
	router.Publish(ctx, logging.Event{Severity: logging.SeverityError})

	if err := router.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("expected one event past the severity filter, got %+v", events)
	}
	got := events[0]
	if got.Type != "test.kept" || got.Tick != 9 || !got.Time.Equal(fixed) {
		t.Fatalf("unexpected event %+v", got)
	}
	if got.Extra["run"] != "r1" {
		t.Fatalf("expected router fields in extra, got %v", got.Extra)
	}
	if stats := router.Stats(); stats.EventsTotal != 1 || stats.DroppedTotal != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if router.Sink("memory") != memory || router.Sink("absent") != nil {
		t.Fatalf("sink lookup mismatch")
	}
}

func TestRouterIgnoresPublishAfterClose(t *testing.T) {
	memory := sinks.NewMemorySink()
	router, err := logging.NewRouter(nil, logging.DefaultConfig(),
		[]logging.NamedSink{{Name: "memory", Sink: memory}}, quietLogger())
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	ctx := context.Background()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	router.Publish(ctx, logging.Event{Type: "late", Severity: logging.SeverityError})
	if err := router.Close(ctx); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if len(memory.Events()) != 0 {
		t.Fatalf("expected no events after close")
	}
}

func TestWithFieldsAddsExtra(t *testing.T) {
	memory := sinks.NewMemorySink()
	pub := logging.WithFields(memory, map[string]any{"conn": 4})
	pub.Publish(context.Background(), logging.Event{Type: "x", Extra: map[string]any{"conn": 1}})
	pub.Publish(context.Background(), logging.Event{Type: "y"})

	events := memory.Events()
	if events[0].Extra["conn"] != 1 || events[1].Extra["conn"] != 4 {
		t.Fatalf("expected existing extra to win and fields to fill gaps, got %+v", events)
	}
}
