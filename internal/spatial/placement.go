package spatial

import (
	"math"
	"math/rand"
)

const (
	rangeExtentFactor = 1.5
	minSamplingRange  = 100.0
)

type PlacementConfig struct {
	MinDistance float64
	OriginFloor float64
	MaxAttempts int
}

func DefaultPlacementConfig() PlacementConfig {
	return PlacementConfig{
		MinDistance: 30,
		OriginFloor: 50,
		MaxAttempts: 500,
	}
}

// IsValidPlacement reports whether candidate keeps at least minDistance from
// every existing position.
func IsValidPlacement(candidate Vec3, existing []Vec3, minDistance float64) bool {
	for _, pos := range existing {
		if candidate.Dist(pos) < minDistance {
			return false
		}
	}
	return true
}

// SamplingRange derives the half-width of the sampling cube from the extent of
// existing systems.
func SamplingRange(existing []Vec3, expand bool) float64 {
	extent := 0.0
	for _, pos := range existing {
		extent = math.Max(extent, pos.MaxAbs())
	}

	r := math.Max(extent*rangeExtentFactor, minSamplingRange)
	if expand {
		r *= 2
	}
	return r
}

// Sampler draws random candidate positions and keeps the first valid one.
type Sampler struct {
	rng *rand.Rand
	cfg PlacementConfig
}

func NewSampler(rng *rand.Rand, cfg PlacementConfig) *Sampler {
	return &Sampler{rng: rng, cfg: cfg}
}

// FindPlacement samples up to MaxAttempts candidates in [-rangeLimit, rangeLimit]³.
// It returns the number of attempts used and false when none was valid.
func (s *Sampler) FindPlacement(existing []Vec3, rangeLimit float64) (Vec3, int, bool) {
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		candidate := Vec3{
			X: s.uniform(rangeLimit),
			Y: s.uniform(rangeLimit),
			Z: s.uniform(rangeLimit),
		}

		if candidate.Len() < s.cfg.OriginFloor {
			continue
		}
		if IsValidPlacement(candidate, existing, s.cfg.MinDistance) {
			return candidate, attempt, true
		}
	}

	return Vec3{}, s.cfg.MaxAttempts, false
}

func (s *Sampler) uniform(limit float64) float64 {
	return (s.rng.Float64()*2 - 1) * limit
}
