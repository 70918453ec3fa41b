package telemetry

import (
	"github.com/sirupsen/logrus"

	"github.com/Alex1um/simple-unbalanced-game/logging"
)

// Logger is the printf-style logger handed to server components.
type Logger interface {
	Printf(format string, args ...any)
}

type LoggerFunc func(format string, args ...any)

func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogrus adapts a logrus logger or entry. Lines are logged at info level.
func WrapLogrus(logger logrus.FieldLogger) Logger {
	return &logrusAdapter{logger: logger}
}

type logrusAdapter struct {
	logger logrus.FieldLogger
}

func (l *logrusAdapter) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Infof(format, args...)
}

// Metrics exposes counters and gauges to components without tying them to a backend.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// WrapMetrics adapts the shared metrics registry. A nil registry discards writes.
func WrapMetrics(metrics *logging.Metrics) Metrics {
	return &metricsAdapter{metrics: metrics}
}

type metricsAdapter struct {
	metrics *logging.Metrics
}

func (m *metricsAdapter) Add(key string, delta uint64) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.Add(key, delta)
}

func (m *metricsAdapter) Store(key string, value uint64) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.Store(key, value)
}

type nopMetrics struct{}

func (nopMetrics) Add(string, uint64)   {}
func (nopMetrics) Store(string, uint64) {}

// NopMetrics discards everything.
func NopMetrics() Metrics { return nopMetrics{} }
