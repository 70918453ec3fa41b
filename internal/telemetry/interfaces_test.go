package telemetry

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/Alex1um/simple-unbalanced-game/logging"
)

func TestWrapLogrus(t *testing.T) {
	t.Run("nil logger", func(t *testing.T) {
		logger := WrapLogrus(nil)
		logger.Printf("ignored %d", 42)
	})

	t.Run("forwards to logger", func(t *testing.T) {
		var buf bytes.Buffer
		base := logrus.New()
		base.SetOutput(&buf)
		base.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})
		logger := WrapLogrus(base)
		logger.Printf("hello %s", "world")
		if got := buf.String(); !strings.Contains(got, "hello world") || !strings.Contains(got, "level=info") {
			t.Fatalf("unexpected log output: %q", got)
		}
	})
}

func TestWrapMetrics(t *testing.T) {
	metrics := logging.Metrics{}
	adapter := WrapMetrics(&metrics)

	adapter.Add("test_counter", 2)
	adapter.Store("test_counter", 5)
	adapter.Add("test_counter", 3)

	snapshot := metrics.Snapshot()
	if got := snapshot["test_counter"]; got != 8 {
		t.Fatalf("unexpected metric value: %d", got)
	}

	var nilAdapter Metrics = WrapMetrics(nil)
	nilAdapter.Add("ignored", 1)
	nilAdapter.Store("ignored", 1)
}
