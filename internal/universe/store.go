package universe

import (
	"context"

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
	UpdatePosition(ctx context.Context, id int, pos spatial.Vec3, tx *database.Tx) error
}

type PlanetStore interface {
	ListPlanets(ctx context.Context, tx *database.Tx) ([]planet.Planet, error)
	CreatePlanetsBatch(ctx context.Context, requests []planet.BatchInsertRequest, tx *database.Tx) ([]planet.Planet, error)
	UpdatePosition(ctx context.Context, id int, pos spatial.Vec3, tx *database.Tx) error
	AssignToSystem(ctx context.Context, id, systemID int, orbit spatial.Orbit, pos spatial.Vec3, tx *database.Tx) error
	UpdateType(ctx context.Context, id int, planetType planet.PlanetType, tx *database.Tx) error
}

type PlayerStore interface {
	ListHomePlanetRefs(ctx context.Context, tx *database.Tx) ([]player.HomePlanetRef, error)
}

type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *database.Tx) error) error
}

type Store struct {
	Systems SystemStore
	Planets PlanetStore
	Players PlayerStore
	Tx      TxRunner
}
