package consistency

import (
	"context"
	"fmt"
	"testing"

	"planets-universe/internal/memstore"
	"planets-universe/internal/planet"
	"planets-universe/internal/player"
	"planets-universe/internal/shared/errors"
	"planets-universe/internal/spatial"
	"planets-universe/internal/system"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkAndRepair(t *testing.T, ms *memstore.Store, categories ...Category) (*IssueSet, *RepairReport, *IssueSet) {
	t.Helper()
	ctx := context.Background()

	before, err := newTestChecker(ms).Check(ctx)
	require.NoError(t, err)

	report, err := newTestRepairer(ms, 42).Repair(ctx, before, categories)
	require.NoError(t, err)

	after, err := newTestChecker(ms).Check(ctx)
	require.NoError(t, err)

	return before, report, after
}

func systemByID(t *testing.T, ms *memstore.Store, id int) system.StarSystem {
	t.Helper()
	systems, err := ms.Systems().ListSystems(context.Background(), nil)
	require.NoError(t, err)
	for _, sys := range systems {
		if sys.ID == id {
			return sys
		}
	}
	t.Fatalf("star system %d not found", id)
	return system.StarSystem{}
}

func planetByID(t *testing.T, ms *memstore.Store, id int) planet.Planet {
	t.Helper()
	planets, err := ms.Planets().ListPlanets(context.Background(), nil)
	require.NoError(t, err)
	for _, p := range planets {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("planet %d not found", id)
	return planet.Planet{}
}

func TestFixPlanetCounts(t *testing.T) {
	s1, planets := populated(1, spatial.Vec3{X: 100}, 3, 1)
	s1.PlanetCount = 5
	ms := memstore.New([]system.StarSystem{s1}, planets, nil)

	_, report, after := checkAndRepair(t, ms, CategoryCounts)

	assert.Equal(t, 3, systemByID(t, ms, 1).PlanetCount)
	assert.Zero(t, after.CountFor(EntityStarSystem, IssuePlanetCountMismatch))

	res, ok := report.Result(CategoryCounts)
	require.True(t, ok)
	assert.Equal(t, RepairResult{Category: CategoryCounts, Found: 1, Fixed: 1, Converged: true}, res)
}

func TestFixPlanetCounts_FailureDoesNotStopOthers(t *testing.T) {
	s1, p1 := populated(1, spatial.Vec3{X: 100}, 1, 1)
	s2, p2 := populated(2, spatial.Vec3{X: -100}, 2, 10)
	s1.PlanetCount, s2.PlanetCount = 4, 4
	ms := memstore.New([]system.StarSystem{s1, s2}, append(p1, p2...), nil)
	ms.FailOn("systems.UpdatePlanetCount", 1, fmt.Errorf("connection reset"))

	issues, err := newTestChecker(ms).Check(context.Background())
	require.NoError(t, err)

	res, err := newTestRepairer(ms, 1).FixPlanetCounts(context.Background(), issues)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Found)
	assert.Equal(t, 1, res.Fixed)
	assert.Equal(t, 1, res.Failed)
	assert.False(t, res.Converged)
	assert.Equal(t, 4, systemByID(t, ms, 1).PlanetCount)
	assert.Equal(t, 2, systemByID(t, ms, 2).PlanetCount)
}

func TestFixSystemsTooClose(t *testing.T) {
	s1, p1 := populated(1, spatial.Vec3{}, 2, 1)
	s2, p2 := populated(2, spatial.Vec3{X: 10}, 2, 10)
	ms := memstore.New([]system.StarSystem{s1, s2}, append(p1, p2...), nil)

	before, report, after := checkAndRepair(t, ms, CategoryTooClose)
	require.Equal(t, []SystemPair{{SystemA: 1, SystemB: 2, Distance: 10}}, before.SystemPairs())

	a, _ := systemByID(t, ms, 1).Position()
	b, _ := systemByID(t, ms, 2).Position()
	assert.GreaterOrEqual(t, a.Dist(b), 31.0-1e-9)

	res, _ := report.Result(CategoryTooClose)
	assert.True(t, res.Converged)
	assert.Equal(t, 1, res.Fixed)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, 4, res.PlanetsUpdated)

	assert.Zero(t, after.CountFor(EntityStarSystem, IssueSystemsTooClose))
	assert.Zero(t, after.CountFor(EntityPlanet, IssueCoordinateMismatch))
}

func clusterUniverse() *memstore.Store {
	var systems []system.StarSystem
	var planets []planet.Planet
	for i := 0; i < 6; i++ {
		sys, ps := populated(i+1, spatial.Vec3{X: float64(i) * 3, Y: float64(i%2) * 2}, 1, 100+i)
		systems = append(systems, sys)
		planets = append(planets, ps...)
	}
	return memstore.New(systems, planets, nil)
}

func TestFixSystemsTooClose_Cluster(t *testing.T) {
	ms := clusterUniverse()

	before, report, after := checkAndRepair(t, ms, CategoryTooClose)

	res, _ := report.Result(CategoryTooClose)
	assert.Equal(t, len(before.SystemPairs()), res.Found)
	assert.LessOrEqual(t, res.Iterations, DefaultRepairConfig().MaxIterations)
	assert.Equal(t, res.Found, res.Fixed+res.Failed)
	assert.Less(t, len(after.SystemPairs()), len(before.SystemPairs()))
	assert.Zero(t, after.CountFor(EntityPlanet, IssueCoordinateMismatch))
}

func TestFixSystemsTooClose_IterationLimit(t *testing.T) {
	ms := clusterUniverse()
	ctx := context.Background()

	before, err := newTestChecker(ms).Check(ctx)
	require.NoError(t, err)

	cfg := DefaultRepairConfig()
	cfg.MaxIterations = 1
	res, err := newConfiguredRepairer(ms, cfg, 42).FixSystemsTooClose(ctx, before)
	require.NoError(t, err)

	assert.False(t, res.Converged)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, len(before.SystemPairs()), res.Found)
	assert.Positive(t, res.Failed)
	assert.Equal(t, res.Found, res.Fixed+res.Failed)

	after, err := newTestChecker(ms).Check(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, after.SystemPairs())
	assert.Zero(t, after.CountFor(EntityPlanet, IssueCoordinateMismatch))
}

func TestFixSystemsTooClose_RollsBack(t *testing.T) {
	s1, p1 := populated(1, spatial.Vec3{}, 1, 1)
	s2, p2 := populated(2, spatial.Vec3{X: 10}, 1, 2)
	ms := memstore.New([]system.StarSystem{s1, s2}, append(p1, p2...), nil)
	ms.FailOn("systems.UpdatePosition", 2, fmt.Errorf("deadlock detected"))

	issues, err := newTestChecker(ms).Check(context.Background())
	require.NoError(t, err)

	res, err := newTestRepairer(ms, 1).FixSystemsTooClose(context.Background(), issues)
	require.Error(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.False(t, res.Converged)

	pos, _ := systemByID(t, ms, 1).Position()
	assert.Equal(t, spatial.Vec3{}, pos)
}

func TestFixOrphanPlanets(t *testing.T) {
	s1, p1 := populated(1, spatial.Vec3{X: 100}, 2, 1)
	s2, p2 := populated(2, spatial.Vec3{X: -100}, 7, 10)
	planets := append(append(p1, p2...), orphanPlanet(100))
	ms := memstore.New([]system.StarSystem{s1, s2}, planets, nil)

	_, report, after := checkAndRepair(t, ms, CategoryOrphans)

	p := planetByID(t, ms, 100)
	require.NotNil(t, p.StarSystemID)
	assert.Equal(t, 1, *p.StarSystemID)
	assert.Equal(t, 3, systemByID(t, ms, 1).PlanetCount)
	assert.Equal(t, 7, systemByID(t, ms, 2).PlanetCount)

	orbit, ok := p.Orbit()
	require.True(t, ok)
	assert.Equal(t, 2.0*360/3, orbit.Angle)
	assert.InDelta(t, 0, orbit.Inclination, 15)

	res, _ := report.Result(CategoryOrphans)
	assert.Equal(t, 1, res.Fixed)
	assert.Zero(t, after.CountFor(EntityPlanet, IssueOrphanPlanet))
	assert.Zero(t, after.CountFor(EntityPlanet, IssueCoordinateMismatch))
	assert.Zero(t, after.CountFor(EntityStarSystem, IssuePlanetCountMismatch))
}

func TestFixOrphanPlanets_CreatesSystemAwayFromHomes(t *testing.T) {
	home, planets := populated(1, spatial.Vec3{X: 100}, 1, 1)
	planets = append(planets, orphanPlanet(20))
	ms := memstore.New([]system.StarSystem{home}, planets, []player.HomePlanetRef{homeRef(1, 1)})

	_, report, after := checkAndRepair(t, ms, CategoryOrphans)

	p := planetByID(t, ms, 20)
	require.NotNil(t, p.StarSystemID)
	assert.Equal(t, 2, *p.StarSystemID)

	created := systemByID(t, ms, 2)
	assert.False(t, created.Discovered)
	assert.Equal(t, 1, created.PlanetCount)
	assert.Equal(t, 1, systemByID(t, ms, 1).PlanetCount)

	pos, ok := created.Position()
	require.True(t, ok)
	assert.GreaterOrEqual(t, pos.Dist(spatial.Vec3{X: 100}), 30.0)
	assert.GreaterOrEqual(t, pos.Len(), 50.0)

	res, _ := report.Result(CategoryOrphans)
	assert.Equal(t, 1, res.Fixed)
	assert.True(t, after.Empty(), "unexpected issues: %v", after.Groups())
}

func TestFixOrphanPlanets_FailedItemRollsBack(t *testing.T) {
	s1, p1 := populated(1, spatial.Vec3{X: 100}, 1, 1)
	planets := append(p1, orphanPlanet(100), orphanPlanet(101))
	ms := memstore.New([]system.StarSystem{s1}, planets, nil)
	ms.FailOn("planets.AssignToSystem", 100, fmt.Errorf("constraint violation"))

	issues, err := newTestChecker(ms).Check(context.Background())
	require.NoError(t, err)

	res, err := newTestRepairer(ms, 3).FixOrphanPlanets(context.Background(), issues)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Found)
	assert.Equal(t, 1, res.Fixed)
	assert.Equal(t, 1, res.Failed)
	assert.Nil(t, planetByID(t, ms, 100).StarSystemID)
	assert.Equal(t, 2, systemByID(t, ms, 1).PlanetCount)
}

func TestFixCoordinateMismatches(t *testing.T) {
	sysPos := spatial.Vec3{X: 100, Y: -40, Z: 7}
	drifting := orbitingPlanet(1, 1, sysPos, spatial.Orbit{Distance: 10, Angle: 90, Inclination: 30})
	drifting.SetPosition(spatial.Vec3{})
	ms := memstore.New([]system.StarSystem{newStarSystem(1, sysPos, 1)}, []planet.Planet{drifting}, nil)

	_, report, after := checkAndRepair(t, ms, CategoryCoordinates)

	res, _ := report.Result(CategoryCoordinates)
	assert.Equal(t, 1, res.Fixed)
	assert.Zero(t, after.CountFor(EntityPlanet, IssueCoordinateMismatch))

	pos, _ := planetByID(t, ms, 1).Position()
	expected := spatial.ToAbsolute(sysPos, spatial.Orbit{Distance: 10, Angle: 90, Inclination: 30})
	assert.InDelta(t, 0, pos.Dist(expected), 1e-9)
}

func TestRepair_ReducesIssues(t *testing.T) {
	s1, p1 := populated(1, spatial.Vec3{}, 2, 1)
	s2, p2 := populated(2, spatial.Vec3{X: 12}, 3, 10)
	s3, p3 := populated(3, spatial.Vec3{X: 400}, 1, 20)
	s1.PlanetCount = 6
	p3[0].SetPosition(spatial.Vec3{X: 1})
	planets := append(append(append(p1, p2...), p3...), orphanPlanet(50), orphanPlanet(51))
	ms := memstore.New([]system.StarSystem{s1, s2, s3}, planets, nil)

	before, report, after := checkAndRepair(t, ms, AllCategories()...)

	assert.Less(t, after.Count(), before.Count())
	for _, key := range []IssueKey{
		{EntityStarSystem, IssuePlanetCountMismatch},
		{EntityStarSystem, IssueSystemsTooClose},
		{EntityPlanet, IssueOrphanPlanet},
		{EntityPlanet, IssueCoordinateMismatch},
	} {
		assert.Zero(t, after.CountFor(key.Entity, key.Code), "%s/%s", key.Entity, key.Code)
	}

	var order []Category
	for _, res := range report.Results {
		order = append(order, res.Category)
	}
	assert.Equal(t, AllCategories(), order)
}

func TestRepair_NothingToDo(t *testing.T) {
	s1, p1 := populated(1, spatial.Vec3{X: 100}, 1, 1)
	ms := memstore.New([]system.StarSystem{s1}, p1, nil)

	_, report, _ := checkAndRepair(t, ms, AllCategories()...)

	for _, res := range report.Results {
		assert.Zero(t, res.Found, res.Category)
		assert.True(t, res.Converged, res.Category)
	}
	assert.Zero(t, ms.Writes())
}

func TestParseCategories(t *testing.T) {
	cats, err := ParseCategories("")
	require.NoError(t, err)
	assert.Equal(t, AllCategories(), cats)

	cats, err = ParseCategories("coordinates, counts")
	require.NoError(t, err)
	assert.Equal(t, []Category{CategoryCounts, CategoryCoordinates}, cats)

	_, err = ParseCategories("counts,teleport")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeValidation, errors.GetType(err))
}
