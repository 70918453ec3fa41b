// Package config resolves server settings from an optional .env file, the
// process environment and built-in defaults, in that order of precedence
// (real environment variables win over the file).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Alex1um/simple-unbalanced-game/internal/sim"
	"github.com/Alex1um/simple-unbalanced-game/internal/telemetry"
	"github.com/Alex1um/simple-unbalanced-game/logging"
)

const DefaultAddr = ":48666"

type Config struct {
	Addr string
	// Sim.Seed is empty when the run should pick a random seed.
	Sim            sim.Config
	JournalPath    string
	DebugEndpoints bool
	Logging        logging.Config
}

func Default() Config {
	simCfg := sim.DefaultConfig()
	simCfg.Seed = ""
	return Config{
		Addr:    DefaultAddr,
		Sim:     simCfg,
		Logging: logging.DefaultConfig(),
	}
}

// LookupFunc reads one variable; os.LookupEnv is the usual source.
type LookupFunc func(key string) (string, bool)

// Load reads the .env file at path when it exists, then resolves the
// configuration from the environment. Invalid values are reported to logger
// and leave the default in place.
func Load(path string, logger telemetry.Logger) (Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}
	return FromEnv(os.LookupEnv, logger), nil
}

func FromEnv(lookup LookupFunc, logger telemetry.Logger) Config {
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	env := reader{lookup: lookup, logger: logger}
	cfg := Default()

	env.string("ARENA_ADDR", &cfg.Addr)
	env.int("ARENA_TICK_HZ", &cfg.Sim.TickRate)
	env.int("ARENA_MAP_SIZE", &cfg.Sim.MapSize)
	env.int("ARENA_QUEUE_CAPACITY", &cfg.Sim.QueueCapacity)
	env.string("ARENA_SEED", &cfg.Sim.Seed)
	env.float("ARENA_FIRE_COST", &cfg.Sim.FireCost)
	env.bool("ARENA_CLAMP_REPAIR", &cfg.Sim.ClampRepair)
	env.bool("ARENA_CHECK_INVARIANTS", &cfg.Sim.CheckInvariants)
	env.int("ARENA_SPAWN_ATTEMPTS", &cfg.Sim.SpawnAttempts)

	ceiling := &cfg.Sim.StatCeiling
	env.float("ARENA_STAT_CEILING_TURN_RATE", &ceiling.TurnRate)
	env.float("ARENA_STAT_CEILING_V", &ceiling.V)
	env.float("ARENA_STAT_CEILING_REPAIR_RATE", &ceiling.RepairRate)
	env.float("ARENA_STAT_CEILING_MAX_HP", &ceiling.MaxHP)
	env.float("ARENA_STAT_CEILING_BULLET_TTL", &ceiling.BulletTTL)
	env.float("ARENA_STAT_CEILING_BULLET_SPEED", &ceiling.BulletSpeed)
	env.float("ARENA_STAT_CEILING_BULLET_HP", &ceiling.BulletHP)

	env.string("ARENA_JOURNAL_PATH", &cfg.JournalPath)
	env.bool("ARENA_DEBUG_ENDPOINTS", &cfg.DebugEndpoints)

	if raw, ok := env.get("LOG_LEVEL"); ok {
		if sev, valid := logging.ParseSeverity(raw); valid {
			cfg.Logging.MinimumSeverity = sev
			cfg.Logging.Logrus.Level = strings.ToLower(strings.TrimSpace(raw))
		} else {
			logger.Printf("invalid LOG_LEVEL=%q", raw)
		}
	}
	env.string("LOG_FORMAT", &cfg.Logging.Logrus.Format)
	if raw, ok := env.get("LOG_SINKS"); ok {
		var sinks []string
		for _, name := range strings.Split(raw, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			switch {
			case name == "":
			case !logging.KnownSink(name):
				env.logger.Printf("invalid LOG_SINKS entry %q", name)
			default:
				sinks = append(sinks, name)
			}
		}
		cfg.Logging.EnabledSinks = sinks
	}
	env.string("LOG_JSON_PATH", &cfg.Logging.JSON.FilePath)
	if cfg.Logging.JSON.FilePath != "" && !cfg.Logging.HasSink(logging.SinkJSON) {
		cfg.Logging.EnabledSinks = append(cfg.Logging.EnabledSinks, logging.SinkJSON)
	}

	return cfg
}

type reader struct {
	lookup LookupFunc
	logger telemetry.Logger
}

func (r reader) get(key string) (string, bool) {
	if r.lookup == nil {
		return "", false
	}
	raw, ok := r.lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return "", false
	}
	return strings.TrimSpace(raw), true
}

func (r reader) string(key string, dst *string) {
	if raw, ok := r.get(key); ok {
		*dst = raw
	}
}

func (r reader) int(key string, dst *int) {
	raw, ok := r.get(key)
	if !ok {
		return
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		r.logger.Printf("invalid %s=%q", key, raw)
		return
	}
	*dst = value
}

func (r reader) float(key string, dst *float64) {
	raw, ok := r.get(key)
	if !ok {
		return
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		r.logger.Printf("invalid %s=%q", key, raw)
		return
	}
	*dst = value
}

func (r reader) bool(key string, dst *bool) {
	raw, ok := r.get(key)
	if !ok {
		return
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		r.logger.Printf("invalid %s=%q", key, raw)
		return
	}
	*dst = value
}
