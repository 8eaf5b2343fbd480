package planet

import (
	"fmt"
	"math/rand"

	"planets-universe/internal/spatial"
)

var planetSuffixes = []string{
	"I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X",
}

// NewBatch prepares count planets orbiting a freshly placed system. Orbits are
// taken slot by slot so that planet i sits on the i-th orbit.
func NewBatch(systemID int, systemName string, systemPos spatial.Vec3, count int, rng *rand.Rand, orbitCfg spatial.OrbitConfig) []BatchInsertRequest {
	requests := make([]BatchInsertRequest, 0, count)

	for i := 0; i < count; i++ {
		orbit := spatial.OrbitForSlot(i, rng, orbitCfg)
		pos := spatial.ToAbsolute(systemPos, orbit)

		requests = append(requests, BatchInsertRequest{
			StarSystemID:       systemID,
			Name:               fmt.Sprintf("%s %s", systemName, planetSuffixes[i%len(planetSuffixes)]),
			Type:               RandomType(rng),
			X:                  pos.X,
			Y:                  pos.Y,
			Z:                  pos.Z,
			OrbitalDistance:    orbit.Distance,
			OrbitalAngle:       orbit.Angle,
			OrbitalInclination: orbit.Inclination,
			Size:               50 + rng.Intn(151),
			MaxPopulation:      int64(100000 + rng.Intn(900000)),
		})
	}

	return requests
}

// RandomType returns a weighted random planet type
func RandomType(rng *rand.Rand) PlanetType {
	types := []PlanetType{
		PlanetTypeBarren,
		PlanetTypeTerrestrial,
		PlanetTypeGasGiant,
		PlanetTypeIce,
		PlanetTypeVolcanic,
	}

	// Terrestrial is 40% chance
	weights := []int{15, 40, 20, 15, 10}
	totalWeight := 0
	for _, w := range weights {
		totalWeight += w
	}

	roll := rng.Intn(totalWeight)
	currentWeight := 0
	for i, weight := range weights {
		currentWeight += weight
		if roll < currentWeight {
			return types[i]
		}
	}

	return PlanetTypeTerrestrial
}
