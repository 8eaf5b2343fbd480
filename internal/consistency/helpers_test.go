package consistency

import (
	"fmt"
	"math/rand"

	"planets-universe/internal/memstore"
	"planets-universe/internal/planet"
	"planets-universe/internal/player"
	"planets-universe/internal/shared/logger"
	"planets-universe/internal/shared/throttle"
	"planets-universe/internal/spatial"
	"planets-universe/internal/system"
)

func storeFor(ms *memstore.Store) Store {
	return Store{Systems: ms.Systems(), Planets: ms.Planets(), Players: ms.Players(), Tx: ms}
}

func newStarSystem(id int, pos spatial.Vec3, count int) system.StarSystem {
	sys := system.StarSystem{ID: id, Name: fmt.Sprintf("System-%03d", id), PlanetCount: count}
	sys.SetPosition(pos)
	return sys
}

// orbitingPlanet returns a planet whose stored position matches its orbit.
func orbitingPlanet(id, systemID int, systemPos spatial.Vec3, orbit spatial.Orbit) planet.Planet {
	p := planet.Planet{
		ID:            id,
		StarSystemID:  &systemID,
		Name:          fmt.Sprintf("Planet %d", id),
		Type:          planet.PlanetTypeTerrestrial,
		HasProperties: true,
	}
	p.SetOrbit(orbit)
	p.SetPosition(spatial.ToAbsolute(systemPos, orbit))
	return p
}

func orphanPlanet(id int) planet.Planet {
	p := planet.Planet{ID: id, Name: fmt.Sprintf("Lost %d", id), Type: planet.PlanetTypeIce, HasProperties: true}
	p.SetPosition(spatial.Vec3{X: 500, Y: 500, Z: 500})
	p.SetOrbit(spatial.Orbit{Distance: 10})
	return p
}

// populated builds a system with n consistent planets starting at firstID.
func populated(id int, pos spatial.Vec3, n, firstID int) (system.StarSystem, []planet.Planet) {
	planets := make([]planet.Planet, 0, n)
	for i := 0; i < n; i++ {
		orbit := spatial.Orbit{Distance: 5 + float64(i)*5, Angle: float64(i) * 40, Inclination: 3}
		planets = append(planets, orbitingPlanet(firstID+i, id, pos, orbit))
	}
	return newStarSystem(id, pos, n), planets
}

func newTestChecker(ms *memstore.Store) *Checker {
	return NewChecker(storeFor(ms), DefaultCheckerConfig(), logger.Discard(), nil)
}

func newTestRepairer(ms *memstore.Store, seed int64) *Repairer {
	return newConfiguredRepairer(ms, DefaultRepairConfig(), seed)
}

func newConfiguredRepairer(ms *memstore.Store, cfg RepairConfig, seed int64) *Repairer {
	return NewRepairer(storeFor(ms), cfg, rand.New(rand.NewSource(seed)), throttle.NewPacer(0), logger.Discard(), nil)
}

func homeRef(playerID, planetID int) player.HomePlanetRef {
	return player.HomePlanetRef{PlayerID: playerID, Username: fmt.Sprintf("player%d", playerID), HomePlanetID: planetID}
}
