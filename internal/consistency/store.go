package consistency

import (
	"context"
	"fmt"

	"planets-universe/internal/planet"
	"planets-universe/internal/player"
	"planets-universe/internal/shared/database"
	"planets-universe/internal/spatial"
	"planets-universe/internal/system"
)

type SystemStore interface {
	ListSystems(ctx context.Context, tx *database.Tx) ([]system.StarSystem, error)
	CreateSystem(ctx context.Context, sys *system.StarSystem, tx *database.Tx) error
	UpdatePlanetCount(ctx context.Context, id, count int, tx *database.Tx) error
	IncrementPlanetCount(ctx context.Context, id, delta int, tx *database.Tx) error
	UpdatePosition(ctx context.Context, id int, pos spatial.Vec3, tx *database.Tx) error
}

type PlanetStore interface {
	ListPlanets(ctx context.Context, tx *database.Tx) ([]planet.Planet, error)
	UpdatePosition(ctx context.Context, id int, pos spatial.Vec3, tx *database.Tx) error
	AssignToSystem(ctx context.Context, id, systemID int, orbit spatial.Orbit, pos spatial.Vec3, tx *database.Tx) error
}

type PlayerStore interface {
	ListHomePlanetRefs(ctx context.Context, tx *database.Tx) ([]player.HomePlanetRef, error)
}

type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *database.Tx) error) error
}

// Store bundles the repositories the checker and repair engine work on.
// Both the Postgres repositories and memstore satisfy it.
type Store struct {
	Systems SystemStore
	Planets PlanetStore
	Players PlayerStore
	Tx      TxRunner
}

// snapshot is an in-memory view of the universe at one point in time.
type snapshot struct {
	systems []system.StarSystem
	planets []planet.Planet
	homes   []player.HomePlanetRef

	systemByID      map[int]system.StarSystem
	planetByID      map[int]planet.Planet
	planetsBySystem map[int][]planet.Planet
}

func loadSnapshot(ctx context.Context, store Store, tx *database.Tx) (*snapshot, error) {
	systems, err := store.Systems.ListSystems(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to load star systems: %w", err)
	}

	planets, err := store.Planets.ListPlanets(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to load planets: %w", err)
	}

	homes, err := store.Players.ListHomePlanetRefs(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to load home planets: %w", err)
	}

	s := &snapshot{
		systems:         systems,
		planets:         planets,
		homes:           homes,
		systemByID:      make(map[int]system.StarSystem, len(systems)),
		planetByID:      make(map[int]planet.Planet, len(planets)),
		planetsBySystem: make(map[int][]planet.Planet),
	}

	for _, sys := range systems {
		s.systemByID[sys.ID] = sys
	}
	for _, p := range planets {
		s.planetByID[p.ID] = p
		if p.StarSystemID != nil {
			s.planetsBySystem[*p.StarSystemID] = append(s.planetsBySystem[*p.StarSystemID], p)
		}
	}

	return s, nil
}

// homeSystemIDs returns, for each system holding at least one valid home
// planet, how many home planets it holds.
func (s *snapshot) homeSystemIDs() map[int]int {
	homes := make(map[int]int)
	for _, ref := range s.homes {
		p, ok := s.planetByID[ref.HomePlanetID]
		if !ok || p.StarSystemID == nil {
			continue
		}
		homes[*p.StarSystemID]++
	}
	return homes
}
