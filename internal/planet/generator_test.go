package planet

import (
	"math/rand"
	"testing"

	"planets-universe/internal/spatial"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBatch(t *testing.T) {
	systemPos := spatial.Vec3{X: 120, Y: -40, Z: 75}
	batch := NewBatch(9, "Vega-001", systemPos, 5, rand.New(rand.NewSource(11)), spatial.DefaultOrbitConfig())

	require.Len(t, batch, 5)
	for i, req := range batch {
		assert.Equal(t, 9, req.StarSystemID)
		assert.True(t, req.Type.IsValid())
		assert.GreaterOrEqual(t, req.Size, 50)
		assert.LessOrEqual(t, req.Size, 200)

		orbit := spatial.Orbit{Distance: req.OrbitalDistance, Angle: req.OrbitalAngle, Inclination: req.OrbitalInclination}
		pos := spatial.ToAbsolute(systemPos, orbit)
		assert.Equal(t, spatial.Vec3{X: req.X, Y: req.Y, Z: req.Z}, pos, "planet %d position must follow its orbit", i)
	}
	assert.Equal(t, "Vega-001 I", batch[0].Name)
	assert.Equal(t, "Vega-001 V", batch[4].Name)
}

func TestRandomType_Distribution(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	counts := map[PlanetType]int{}
	for i := 0; i < 10000; i++ {
		counts[RandomType(rng)]++
	}

	assert.Len(t, counts, 5)
	assert.InDelta(t, 4000, counts[PlanetTypeTerrestrial], 300)
	assert.InDelta(t, 1000, counts[PlanetTypeVolcanic], 200)
}

func TestPlanet_OrbitAndPosition(t *testing.T) {
	var p Planet
	_, ok := p.Orbit()
	assert.False(t, ok)
	_, ok = p.Position()
	assert.False(t, ok)

	p.SetOrbit(spatial.Orbit{Distance: 10, Angle: 0, Inclination: 3})
	p.SetPosition(spatial.Vec3{X: 10})

	orbit, ok := p.Orbit()
	require.True(t, ok)
	assert.Equal(t, 10.0, orbit.Distance)
	pos, ok := p.Position()
	require.True(t, ok)
	assert.Equal(t, spatial.Vec3{X: 10}, pos)
}
