package logging

import (
	"maps"
	"slices"
	"time"
)

const (
	SinkConsole = "console"
	SinkJSON    = "json"
	SinkLogrus  = "logrus"
)

// Config selects the sinks events are routed to and the severity floor.
// Fields are merged into every event's Extra without overriding keys the
// publisher already set.
type Config struct {
	EnabledSinks     []string
	BufferSize       int
	MinimumSeverity  Severity
	Fields           map[string]any
	JSON             JSONConfig
	Logrus           LogrusConfig
	DropWarnInterval time.Duration
}

type JSONConfig struct {
	FilePath      string
	FlushInterval time.Duration
}

type LogrusConfig struct {
	Level  string
	Format string
}

// DefaultConfig routes events to logrus at info level.
func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{SinkLogrus},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		DropWarnInterval: 5 * time.Second,
		JSON: JSONConfig{
			FlushInterval: 2 * time.Second,
		},
		Logrus: LogrusConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func (c Config) HasSink(name string) bool {
	return slices.Contains(c.EnabledSinks, name)
}

// KnownSink reports whether name is a sink the server can build.
func KnownSink(name string) bool {
	switch name {
	case SinkConsole, SinkJSON, SinkLogrus:
		return true
	}
	return false
}

func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	return maps.Clone(c.Fields)
}
