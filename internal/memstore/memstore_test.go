package memstore

import (
	"context"
	"fmt"
	"testing"

	"planets-universe/internal/planet"
	"planets-universe/internal/shared/database"
	"planets-universe/internal/shared/errors"
	"planets-universe/internal/spatial"
	"planets-universe/internal/system"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSystem(id int, pos spatial.Vec3, count int) system.StarSystem {
	sys := system.StarSystem{ID: id, Name: fmt.Sprintf("S%d", id), PlanetCount: count}
	sys.SetPosition(pos)
	return sys
}

func TestStore_ListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := New([]system.StarSystem{newSystem(2, spatial.Vec3{X: 1}, 0), newSystem(1, spatial.Vec3{}, 0)}, nil, nil)

	systems, err := store.Systems().ListSystems(ctx, nil)
	require.NoError(t, err)
	require.Len(t, systems, 2)
	assert.Equal(t, 1, systems[0].ID)

	*systems[1].X = 999

	again, err := store.Systems().ListSystems(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, *again[1].X)
}

func TestStore_CreateAssignsIDs(t *testing.T) {
	ctx := context.Background()
	store := New([]system.StarSystem{newSystem(7, spatial.Vec3{}, 0)}, nil, nil)

	sys := &system.StarSystem{Name: "New"}
	require.NoError(t, store.Systems().CreateSystem(ctx, sys, nil))
	assert.Equal(t, 8, sys.ID)

	created, err := store.Planets().CreatePlanetsBatch(ctx, []planet.BatchInsertRequest{
		{StarSystemID: 8, Name: "New I", Type: planet.PlanetTypeIce, X: 1, Y: 2, Z: 3, OrbitalDistance: 10},
	}, nil)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, 1, created[0].ID)
	assert.True(t, created[0].HasProperties)

	pos, ok := created[0].Position()
	require.True(t, ok)
	assert.Equal(t, spatial.Vec3{X: 1, Y: 2, Z: 3}, pos)
}

func TestStore_UpdateMissingRow(t *testing.T) {
	store := New(nil, nil, nil)

	err := store.Systems().UpdatePlanetCount(context.Background(), 42, 1, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeNotFound, errors.GetType(err))
}

func TestStore_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	store := New([]system.StarSystem{newSystem(1, spatial.Vec3{}, 5)}, nil, nil)

	err := store.WithTx(ctx, func(tx *database.Tx) error {
		if err := store.Systems().UpdatePlanetCount(ctx, 1, 3, tx); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	systems, err := store.Systems().ListSystems(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, systems[0].PlanetCount)
	assert.Zero(t, store.Writes())
}

func TestStore_FailOn(t *testing.T) {
	ctx := context.Background()
	store := New([]system.StarSystem{newSystem(1, spatial.Vec3{}, 5), newSystem(2, spatial.Vec3{}, 5)}, nil, nil)
	store.FailOn("systems.UpdatePlanetCount", 1, fmt.Errorf("disk full"))

	assert.Error(t, store.Systems().UpdatePlanetCount(ctx, 1, 0, nil))
	assert.NoError(t, store.Systems().UpdatePlanetCount(ctx, 2, 0, nil))
	assert.Equal(t, 1, store.Writes())
}
