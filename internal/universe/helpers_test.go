package universe

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"planets-universe/internal/consistency"
	"planets-universe/internal/memstore"
	"planets-universe/internal/planet"
	"planets-universe/internal/shared/logger"
	"planets-universe/internal/spatial"
	"planets-universe/internal/system"

	"github.com/stretchr/testify/require"
)

func storeFor(ms *memstore.Store) Store {
	return Store{Systems: ms.Systems(), Planets: ms.Planets(), Players: ms.Players(), Tx: ms}
}

func testRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func starSystem(id int, pos spatial.Vec3, count int) system.StarSystem {
	sys := system.StarSystem{ID: id, Name: fmt.Sprintf("System-%03d", id), PlanetCount: count}
	sys.SetPosition(pos)
	return sys
}

func planetIn(id, systemID int, systemPos spatial.Vec3, distance float64) planet.Planet {
	p := planet.Planet{ID: id, StarSystemID: &systemID, Name: fmt.Sprintf("Planet %d", id), Type: planet.PlanetTypeTerrestrial, HasProperties: true}
	orbit := spatial.Orbit{Distance: distance, Angle: 30, Inclination: 5}
	p.SetOrbit(orbit)
	p.SetPosition(spatial.ToAbsolute(systemPos, orbit))
	return p
}

func check(t *testing.T, ms *memstore.Store) *consistency.IssueSet {
	t.Helper()
	store := consistency.Store{Systems: ms.Systems(), Planets: ms.Planets(), Players: ms.Players(), Tx: ms}
	issues, err := consistency.NewChecker(store, consistency.DefaultCheckerConfig(), logger.Discard(), nil).Check(context.Background())
	require.NoError(t, err)
	return issues
}

func listSystems(t *testing.T, ms *memstore.Store) []system.StarSystem {
	t.Helper()
	systems, err := ms.Systems().ListSystems(context.Background(), nil)
	require.NoError(t, err)
	return systems
}

func listPlanets(t *testing.T, ms *memstore.Store) []planet.Planet {
	t.Helper()
	planets, err := ms.Planets().ListPlanets(context.Background(), nil)
	require.NoError(t, err)
	return planets
}
