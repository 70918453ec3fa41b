package sim

import (
	"math/rand"

	"github.com/Alex1um/simple-unbalanced-game/internal/telemetry"
	"github.com/Alex1um/simple-unbalanced-game/logging"
)

// Deps carries the infrastructure the engine needs. Every field is optional:
// random streams default to ones derived from Config.Seed.
type Deps struct {
	Publisher      logging.Publisher
	Metrics        telemetry.Metrics
	SpawnRNG       *rand.Rand
	ProgressionRNG *rand.Rand
	Hook           PreTickHook
}

func (d Deps) withDefaults(cfg Config) Deps {
	if d.Publisher == nil {
		d.Publisher = logging.NopPublisher()
	}
	if d.Metrics == nil {
		d.Metrics = telemetry.NopMetrics()
	}
	if d.SpawnRNG == nil {
		d.SpawnRNG = NewDeterministicRNG(cfg.Seed, rngLabelSpawn)
	}
	if d.ProgressionRNG == nil {
		d.ProgressionRNG = NewProgressionRNG(cfg.Seed)
	}
	return d
}
