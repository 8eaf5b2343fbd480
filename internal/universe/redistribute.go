package universe

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"planets-universe/internal/planet"
	"planets-universe/internal/shared/database"
	"planets-universe/internal/shared/errors"
	"planets-universe/internal/shared/metrics"
	"planets-universe/internal/shared/throttle"
	"planets-universe/internal/spatial"
	"planets-universe/internal/system"
)

type RedistributeOptions struct {
	MinDistanceFromOrigin float64
	MinSpacing            float64
}

type RedistributionResult struct {
	HomePlanets    int  `json:"home_planets" yaml:"home_planets"`
	SystemsCreated int  `json:"systems_created" yaml:"systems_created"`
	SystemsMoved   int  `json:"systems_moved" yaml:"systems_moved"`
	PlanetsUpdated int  `json:"planets_updated" yaml:"planets_updated"`
	Converged      bool `json:"converged" yaml:"converged"`
	Iterations     int  `json:"iterations" yaml:"iterations"`
	// Unresolved counts home systems left closer than the minimum distance to
	// a system that is not a home system.
	Unresolved int `json:"unresolved" yaml:"unresolved"`
}

// outwardSteps bounds how far a home system is pushed out along its own
// direction, in multiples of the home spacing, before it is sampled instead.
const outwardSteps = 20

// Redistributor gives every home planet a star system of its own and lays the
// home systems out on concentric shells around the origin.
type Redistributor struct {
	store   Store
	planner   *spatial.Planner
	orbit     spatial.OrbitConfig
	placement spatial.PlacementConfig
	rng     *rand.Rand
	pacer   *throttle.Pacer
	logger  *slog.Logger
	metrics metrics.Recorder
}

func NewRedistributor(store Store, planner *spatial.Planner, orbit spatial.OrbitConfig, placement spatial.PlacementConfig, rng *rand.Rand, pacer *throttle.Pacer, logger *slog.Logger, recorder metrics.Recorder) *Redistributor {
	if recorder == nil {
		recorder = metrics.Noop{}
	}

	return &Redistributor{
		store:   store,
		planner:   planner,
		orbit:     orbit,
		placement: placement,
		rng:       rng,
		pacer:     pacer,
		logger:    logger.With("component", "home_redistributor"),
		metrics:   recorder,
	}
}

// homeSlot is one home system in the final layout. systemID is zero for a
// system that still has to be created.
type homeSlot struct {
	planetID int
	systemID int
}

// RedistributeHomePlanets runs in a single transaction.
func (r *Redistributor) RedistributeHomePlanets(ctx context.Context, opts RedistributeOptions) (*RedistributionResult, error) {
	if opts.MinDistanceFromOrigin <= 0 || opts.MinSpacing <= 0 {
		return nil, errors.Validationf("min distance (%v) and spacing (%v) must be positive", opts.MinDistanceFromOrigin, opts.MinSpacing)
	}

	logger := r.logger.With("operation", "redistribute_home_planets",
		"min_distance", opts.MinDistanceFromOrigin,
		"spacing", opts.MinSpacing)

	result := &RedistributionResult{}
	err := r.store.Tx.WithTx(ctx, func(tx *database.Tx) error {
		*result = RedistributionResult{}
		return r.redistribute(ctx, opts, result, logger, tx)
	})
	if err != nil {
		logger.Error("Redistribution failed, rolled back", "error", err)
		return nil, err
	}

	r.metrics.RecordRelaxation("redistribute_home_planets", result.Iterations, result.Converged)
	logger.Info("Home planets redistributed",
		"home_planets", result.HomePlanets,
		"systems_created", result.SystemsCreated,
		"systems_moved", result.SystemsMoved,
		"planets_updated", result.PlanetsUpdated,
		"converged", result.Converged,
		"unresolved", result.Unresolved)

	return result, nil
}

func (r *Redistributor) redistribute(ctx context.Context, opts RedistributeOptions, result *RedistributionResult, logger *slog.Logger, tx *database.Tx) error {
	systems, err := r.store.Systems.ListSystems(ctx, tx)
	if err != nil {
		return fmt.Errorf("failed to load star systems: %w", err)
	}
	planets, err := r.store.Planets.ListPlanets(ctx, tx)
	if err != nil {
		return fmt.Errorf("failed to load planets: %w", err)
	}
	refs, err := r.store.Players.ListHomePlanetRefs(ctx, tx)
	if err != nil {
		return fmt.Errorf("failed to load home planets: %w", err)
	}

	systemIDs := make(map[int]bool, len(systems))
	for _, sys := range systems {
		systemIDs[sys.ID] = true
	}
	planetByID := make(map[int]planet.Planet, len(planets))
	for _, p := range planets {
		planetByID[p.ID] = p
	}

	homeIDs := make([]int, 0, len(refs))
	seen := make(map[int]bool, len(refs))
	for _, ref := range refs {
		if _, ok := planetByID[ref.HomePlanetID]; !ok {
			logger.Warn("Skipping dangling home planet", "player_id", ref.PlayerID, "home_planet_id", ref.HomePlanetID)
			continue
		}
		if !seen[ref.HomePlanetID] {
			seen[ref.HomePlanetID] = true
			homeIDs = append(homeIDs, ref.HomePlanetID)
		}
	}
	sort.Ints(homeIDs)
	result.HomePlanets = len(homeIDs)

	if len(homeIDs) == 0 {
		result.Converged = true
		return nil
	}

	// The lowest home planet ID keeps a shared system; the others move out.
	claimed := make(map[int]bool)
	slots := make([]homeSlot, 0, len(homeIDs))
	for _, id := range homeIDs {
		p := planetByID[id]
		slot := homeSlot{planetID: id}
		if p.StarSystemID != nil && systemIDs[*p.StarSystemID] && !claimed[*p.StarSystemID] {
			slot.systemID = *p.StarSystemID
			claimed[slot.systemID] = true
		}
		slots = append(slots, slot)
	}

	// Systems that are not home systems stay where they are.
	var obstacles []spatial.Vec3
	for _, sys := range systems {
		if claimed[sys.ID] {
			continue
		}
		if pos, ok := sys.Position(); ok {
			obstacles = append(obstacles, pos)
		}
	}

	plan := r.planner.Plan(len(slots), opts.MinDistanceFromOrigin, opts.MinSpacing)
	result.Unresolved = r.avoidObstacles(plan.Points, obstacles, opts)
	result.Converged = plan.Converged && result.Unresolved == 0
	result.Iterations = plan.Iterations

	touched := make(map[int]bool)
	positions := make(map[int]spatial.Vec3, len(slots))

	for i, slot := range slots {
		pos := plan.Points[i]
		p := planetByID[slot.planetID]
		if p.StarSystemID != nil {
			touched[*p.StarSystemID] = true
		}

		if err := r.pacer.Wait(ctx); err != nil {
			return err
		}

		if slot.systemID != 0 {
			if err := r.store.Systems.UpdatePosition(ctx, slot.systemID, pos, tx); err != nil {
				return err
			}
			positions[slot.systemID] = pos
			touched[slot.systemID] = true
			result.SystemsMoved++
			continue
		}

		sys := system.StarSystem{Name: system.RandomName(r.rng), Discovered: true}
		sys.SetPosition(pos)
		if err := r.store.Systems.CreateSystem(ctx, &sys, tx); err != nil {
			return err
		}

		orbit := spatial.OrbitForSlot(0, r.rng, r.orbit)
		if err := r.store.Planets.AssignToSystem(ctx, p.ID, sys.ID, orbit, spatial.ToAbsolute(pos, orbit), tx); err != nil {
			return err
		}

		touched[sys.ID] = true
		result.SystemsCreated++
		result.PlanetsUpdated++
		logger.Debug("Home planet moved to a new system", "planet_id", p.ID, "system_id", sys.ID)
	}

	updated, err := r.followSystems(ctx, positions, tx)
	if err != nil {
		return err
	}
	result.PlanetsUpdated += updated

	if err := r.syncCounts(ctx, touched, tx); err != nil {
		return err
	}

	if !plan.Converged {
		logger.Warn("Home system layout did not fully converge", "iterations", plan.Iterations)
	}
	if result.Unresolved > 0 {
		logger.Warn("Home systems left too close to other systems", "unresolved", result.Unresolved)
	}
	return nil
}

// avoidObstacles moves planned points that fall too close to a fixed system.
// A point first slides outward along its own direction, one home spacing at a
// time; if that fails it is sampled in the expanded range. It returns how many
// points could not be placed.
func (r *Redistributor) avoidObstacles(points, obstacles []spatial.Vec3, opts RedistributeOptions) int {
	if len(obstacles) == 0 {
		return 0
	}

	minDistance := r.placement.MinDistance
	valid := func(i int, candidate spatial.Vec3) bool {
		if !spatial.IsValidPlacement(candidate, obstacles, minDistance) {
			return false
		}
		for j, other := range points {
			if j != i && candidate.Dist(other) < opts.MinSpacing {
				return false
			}
		}
		return true
	}

	unresolved := 0
	for i, pt := range points {
		if valid(i, pt) {
			continue
		}

		dir := pt.Normalize()
		if dir == (spatial.Vec3{}) {
			dir = spatial.Vec3{X: 1}
		}

		placed := false
		for step := 1; step <= outwardSteps && !placed; step++ {
			candidate := dir.Scale(pt.Len() + float64(step)*opts.MinSpacing)
			if valid(i, candidate) {
				points[i] = candidate
				placed = true
			}
		}
		if placed {
			continue
		}

		existing := make([]spatial.Vec3, 0, len(obstacles)+len(points))
		existing = append(existing, obstacles...)
		for j, other := range points {
			if j != i {
				existing = append(existing, other)
			}
		}

		cfg := r.placement
		cfg.MinDistance = math.Max(minDistance, opts.MinSpacing)
		cfg.OriginFloor = math.Max(cfg.OriginFloor, opts.MinDistanceFromOrigin)
		candidate, _, ok := spatial.NewSampler(r.rng, cfg).FindPlacement(existing, spatial.SamplingRange(existing, true))
		if ok {
			points[i] = candidate
			continue
		}
		unresolved++
	}
	return unresolved
}

// followSystems moves the planets of repositioned systems along with them.
func (r *Redistributor) followSystems(ctx context.Context, positions map[int]spatial.Vec3, tx *database.Tx) (int, error) {
	planets, err := r.store.Planets.ListPlanets(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("failed to reload planets: %w", err)
	}

	updated := 0
	for _, p := range planets {
		if p.StarSystemID == nil {
			continue
		}
		sysPos, moved := positions[*p.StarSystemID]
		orbit, ok := p.Orbit()
		if !moved || !ok {
			continue
		}

		if err := r.pacer.Wait(ctx); err != nil {
			return updated, err
		}
		if err := r.store.Planets.UpdatePosition(ctx, p.ID, spatial.ToAbsolute(sysPos, orbit), tx); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

func (r *Redistributor) syncCounts(ctx context.Context, touched map[int]bool, tx *database.Tx) error {
	planets, err := r.store.Planets.ListPlanets(ctx, tx)
	if err != nil {
		return fmt.Errorf("failed to reload planets: %w", err)
	}

	counts := make(map[int]int)
	for _, p := range planets {
		if p.StarSystemID != nil {
			counts[*p.StarSystemID]++
		}
	}

	ids := make([]int, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		if err := r.store.Systems.UpdatePlanetCount(ctx, id, counts[id], tx); err != nil {
			if errors.GetType(err) == errors.ErrorTypeNotFound {
				continue
			}
			return err
		}
	}
	return nil
}
