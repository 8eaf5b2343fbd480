package spatial

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidPlacement(t *testing.T) {
	existing := []Vec3{{X: 100}, {X: -100}}

	assert.True(t, IsValidPlacement(Vec3{}, existing, 30))
	assert.True(t, IsValidPlacement(Vec3{X: 70}, existing, 30), "exactly min distance is valid")
	assert.False(t, IsValidPlacement(Vec3{X: 71}, existing, 30))
	assert.True(t, IsValidPlacement(Vec3{X: 1}, nil, 30))
}

func TestSamplingRange(t *testing.T) {
	assert.Equal(t, 100.0, SamplingRange(nil, false))
	assert.Equal(t, 200.0, SamplingRange(nil, true))
	assert.Equal(t, 100.0, SamplingRange([]Vec3{{X: 10, Y: -20}}, false))

	existing := []Vec3{{X: 40, Y: 10}, {Z: -300}}
	assert.Equal(t, 450.0, SamplingRange(existing, false))
	assert.Equal(t, 900.0, SamplingRange(existing, true))
}

func TestSampler_FindPlacement(t *testing.T) {
	sampler := NewSampler(rand.New(rand.NewSource(1)), DefaultPlacementConfig())
	existing := []Vec3{{X: 60}, {Y: -80, Z: 10}}

	candidate, attempts, ok := sampler.FindPlacement(existing, 200)

	require.True(t, ok)
	assert.GreaterOrEqual(t, attempts, 1)
	assert.GreaterOrEqual(t, candidate.Len(), 50.0)
	assert.LessOrEqual(t, candidate.MaxAbs(), 200.0)
	assert.True(t, IsValidPlacement(candidate, existing, 30))
}

func TestSampler_Exhaustion(t *testing.T) {
	cfg := DefaultPlacementConfig()
	cfg.MaxAttempts = 25
	sampler := NewSampler(rand.New(rand.NewSource(1)), cfg)

	// every candidate in a 40-unit cube falls inside the 50-unit origin floor
	_, attempts, ok := sampler.FindPlacement(nil, 28)

	assert.False(t, ok)
	assert.Equal(t, 25, attempts)
}

func TestSampler_RejectsCrowdedSpace(t *testing.T) {
	cfg := DefaultPlacementConfig()
	cfg.MaxAttempts = 50
	sampler := NewSampler(rand.New(rand.NewSource(3)), cfg)

	var existing []Vec3
	for x := -100.0; x <= 100; x += 20 {
		for y := -100.0; y <= 100; y += 20 {
			for z := -100.0; z <= 100; z += 20 {
				existing = append(existing, Vec3{X: x, Y: y, Z: z})
			}
		}
	}

	_, _, ok := sampler.FindPlacement(existing, 100)
	assert.False(t, ok)
}
