package system

import (
	"math/rand"
	"regexp"
	"testing"

	"planets-universe/internal/spatial"

	"github.com/stretchr/testify/assert"
)

func TestStarSystem_Position(t *testing.T) {
	var sys StarSystem
	_, ok := sys.Position()
	assert.False(t, ok)

	sys.SetPosition(spatial.Vec3{X: 1, Y: -2, Z: 3})
	pos, ok := sys.Position()
	assert.True(t, ok)
	assert.Equal(t, spatial.Vec3{X: 1, Y: -2, Z: 3}, pos)

	sys.Y = nil
	_, ok = sys.Position()
	assert.False(t, ok)
}

func TestRandomName(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	pattern := regexp.MustCompile(`^[A-Z][a-z]+-\d{3}$`)

	for i := 0; i < 50; i++ {
		assert.Regexp(t, pattern, RandomName(rng))
	}

	assert.Equal(t, RandomName(rand.New(rand.NewSource(9))), RandomName(rand.New(rand.NewSource(9))))
}
