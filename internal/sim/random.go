package sim

import (
	"hash/fnv"
	"math"
	"math/rand"
)

const (
	rngLabelSpawn       = "spawn"
	rngLabelProgression = "progression"
)

// DeterministicSeedValue derives a stable non-zero seed for one labelled
// random stream from the root seed.
func DeterministicSeedValue(rootSeed, label string) int64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

func NewDeterministicRNG(rootSeed, label string) *rand.Rand {
	return rand.New(rand.NewSource(DeterministicSeedValue(rootSeed, label)))
}

// NewProgressionRNG returns the stream the engine draws enchantments from.
// Tests mirror it to predict exact stat growth.
func NewProgressionRNG(rootSeed string) *rand.Rand {
	return NewDeterministicRNG(rootSeed, rngLabelProgression)
}

func randomAngle(rng *rand.Rand) float64 {
	return rng.Float64() * 2 * math.Pi
}
