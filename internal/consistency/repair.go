package consistency

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"

	"planets-universe/internal/shared/database"
	"planets-universe/internal/shared/errors"
	"planets-universe/internal/shared/metrics"
	"planets-universe/internal/shared/throttle"
	"planets-universe/internal/spatial"
	"planets-universe/internal/system"
)

type Category string

const (
	CategoryCounts      Category = "counts"
	CategoryOrphans     Category = "orphans"
	CategoryTooClose    Category = "too-close"
	CategoryCoordinates Category = "coordinates"
)

// AllCategories returns the repair categories in the order Repair runs them.
func AllCategories() []Category {
	return []Category{CategoryCounts, CategoryOrphans, CategoryTooClose, CategoryCoordinates}
}

// ParseCategories parses a comma separated category list. An empty string
// selects every category.
func ParseCategories(raw string) ([]Category, error) {
	if strings.TrimSpace(raw) == "" {
		return AllCategories(), nil
	}

	selected := make(map[Category]bool)
	for _, part := range strings.Split(raw, ",") {
		cat := Category(strings.TrimSpace(part))
		valid := false
		for _, known := range AllCategories() {
			if cat == known {
				valid = true
				break
			}
		}
		if !valid {
			return nil, errors.Validationf("unknown repair category %q", cat)
		}
		selected[cat] = true
	}

	var out []Category
	for _, cat := range AllCategories() {
		if selected[cat] {
			out = append(out, cat)
		}
	}
	return out, nil
}

type RepairResult struct {
	Category       Category `json:"category" yaml:"category"`
	Found          int      `json:"found" yaml:"found"`
	Fixed          int      `json:"fixed" yaml:"fixed"`
	Failed         int      `json:"failed" yaml:"failed"`
	Skipped        int      `json:"skipped" yaml:"skipped"`
	Iterations     int      `json:"iterations,omitempty" yaml:"iterations,omitempty"`
	Converged      bool     `json:"converged" yaml:"converged"`
	PlanetsUpdated int      `json:"planets_updated,omitempty" yaml:"planets_updated,omitempty"`
}

type RepairReport struct {
	Results []RepairResult `json:"results" yaml:"results"`
}

func (r *RepairReport) Result(cat Category) (RepairResult, bool) {
	for _, res := range r.Results {
		if res.Category == cat {
			return res, true
		}
	}
	return RepairResult{}, false
}

type RepairConfig struct {
	MinSystemDistance   float64
	MaxPlanetsPerSystem int
	MaxIterations       int
	Placement           spatial.PlacementConfig
	Orbit               spatial.OrbitConfig
}

func DefaultRepairConfig() RepairConfig {
	return RepairConfig{
		MinSystemDistance:   30,
		MaxPlanetsPerSystem: 7,
		MaxIterations:       10,
		Placement:           spatial.DefaultPlacementConfig(),
		Orbit:               spatial.DefaultOrbitConfig(),
	}
}

const (
	tooCloseBuffer      = 1.0
	pushFactor          = 0.5
	pushDecay           = 0.8
	pushDecayIterations = 5
)

// Repairer applies fixes for the issues found by a Checker.
type Repairer struct {
	store   Store
	cfg     RepairConfig
	rng     *rand.Rand
	sampler *spatial.Sampler
	pacer   *throttle.Pacer
	logger  *slog.Logger
	metrics metrics.Recorder
}

func NewRepairer(store Store, cfg RepairConfig, rng *rand.Rand, pacer *throttle.Pacer, logger *slog.Logger, recorder metrics.Recorder) *Repairer {
	if recorder == nil {
		recorder = metrics.Noop{}
	}

	return &Repairer{
		store:   store,
		cfg:     cfg,
		rng:     rng,
		sampler: spatial.NewSampler(rng, cfg.Placement),
		pacer:   pacer,
		logger:  logger.With("component", "repair_engine"),
		metrics: recorder,
	}
}

// Repair runs the selected categories in order. A category that fails at the
// transaction level does not stop the others; its error is returned joined
// with the rest once every category has run.
func (r *Repairer) Repair(ctx context.Context, issues *IssueSet, categories []Category) (*RepairReport, error) {
	report := &RepairReport{}
	var errs []error

	for _, cat := range categories {
		var (
			result RepairResult
			err    error
		)

		switch cat {
		case CategoryCounts:
			result, err = r.FixPlanetCounts(ctx, issues)
		case CategoryOrphans:
			result, err = r.FixOrphanPlanets(ctx, issues)
		case CategoryTooClose:
			result, err = r.FixSystemsTooClose(ctx, issues)
		case CategoryCoordinates:
			result, err = r.FixCoordinateMismatches(ctx, issues)
		default:
			err = errors.Validationf("unknown repair category %q", cat)
		}

		result.Category = cat
		r.metrics.RecordRepair(string(cat), result.Fixed, result.Failed)
		report.Results = append(report.Results, result)

		if err != nil {
			r.logger.Error("Repair category failed", "category", cat, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", cat, err))
			if ctx.Err() != nil {
				break
			}
		}
	}

	return report, stderrors.Join(errs...)
}

// FixPlanetCounts writes the actual planet count recorded in each mismatch.
func (r *Repairer) FixPlanetCounts(ctx context.Context, issues *IssueSet) (RepairResult, error) {
	logger := r.logger.With("operation", "fix_planet_counts")
	details := issues.Get(EntityStarSystem, IssuePlanetCountMismatch)
	result := RepairResult{Category: CategoryCounts, Found: len(details)}

	for _, detail := range details {
		id, okID := intField(detail, "system_id")
		actual, okActual := intField(detail, "actual")
		if !okID || !okActual {
			result.Skipped++
			continue
		}

		if err := r.pacer.Wait(ctx); err != nil {
			return result, err
		}

		if err := r.store.Systems.UpdatePlanetCount(ctx, id, actual, nil); err != nil {
			logger.Error("Failed to fix planet count", "system_id", id, "error", err)
			result.Failed++
			continue
		}

		logger.Debug("Planet count fixed", "system_id", id, "stored", detail["stored"], "actual", actual)
		result.Fixed++
	}

	result.Converged = result.Failed == 0
	logger.Info("Planet counts repaired", "found", result.Found, "fixed", result.Fixed, "failed", result.Failed)
	return result, nil
}

// FixCoordinateMismatches rewrites the absolute position of each drifting
// planet from its orbit around the live system position.
func (r *Repairer) FixCoordinateMismatches(ctx context.Context, issues *IssueSet) (RepairResult, error) {
	logger := r.logger.With("operation", "fix_coordinate_mismatches")
	ids := issues.IDs(EntityPlanet, IssueCoordinateMismatch, "planet_id")
	result := RepairResult{Category: CategoryCoordinates, Found: len(ids)}

	if len(ids) == 0 {
		result.Converged = true
		return result, nil
	}

	snap, err := loadSnapshot(ctx, r.store, nil)
	if err != nil {
		return result, err
	}

	for _, id := range ids {
		expected, ok := expectedPosition(snap, id)
		if !ok {
			logger.Warn("Planet no longer has an orbit or a positioned system", "planet_id", id)
			result.Skipped++
			continue
		}

		if err := r.pacer.Wait(ctx); err != nil {
			return result, err
		}

		if err := r.store.Planets.UpdatePosition(ctx, id, expected, nil); err != nil {
			logger.Error("Failed to fix planet position", "planet_id", id, "error", err)
			result.Failed++
			continue
		}
		result.Fixed++
	}

	result.Converged = result.Failed == 0
	logger.Info("Planet positions repaired", "found", result.Found, "fixed", result.Fixed, "failed", result.Failed, "skipped", result.Skipped)
	return result, nil
}

func expectedPosition(snap *snapshot, planetID int) (spatial.Vec3, bool) {
	p, ok := snap.planetByID[planetID]
	if !ok || p.StarSystemID == nil {
		return spatial.Vec3{}, false
	}

	orbit, ok := p.Orbit()
	if !ok {
		return spatial.Vec3{}, false
	}

	sys, ok := snap.systemByID[*p.StarSystemID]
	if !ok {
		return spatial.Vec3{}, false
	}

	sysPos, ok := sys.Position()
	if !ok {
		return spatial.Vec3{}, false
	}

	return spatial.ToAbsolute(sysPos, orbit), true
}

// FixOrphanPlanets attaches every orphan to a random system that has room and
// holds no home planet, creating a new undiscovered system when none
// qualifies. Each orphan is moved in its own transaction.
func (r *Repairer) FixOrphanPlanets(ctx context.Context, issues *IssueSet) (RepairResult, error) {
	logger := r.logger.With("operation", "fix_orphan_planets")
	ids := issues.IDs(EntityPlanet, IssueOrphanPlanet, "planet_id")
	result := RepairResult{Category: CategoryOrphans, Found: len(ids)}

	if len(ids) == 0 {
		result.Converged = true
		return result, nil
	}

	snap, err := loadSnapshot(ctx, r.store, nil)
	if err != nil {
		return result, err
	}

	counts := make(map[int]int, len(snap.systems))
	for id, planets := range snap.planetsBySystem {
		counts[id] = len(planets)
	}
	homeSystems := snap.homeSystemIDs()
	homePlanets := make(map[int]bool, len(snap.homes))
	for _, ref := range snap.homes {
		homePlanets[ref.HomePlanetID] = true
	}
	systems := snap.systems

	for _, id := range ids {
		p, ok := snap.planetByID[id]
		if !ok || p.StarSystemID != nil {
			logger.Debug("Planet is no longer orphaned", "planet_id", id)
			result.Skipped++
			continue
		}

		if err := r.pacer.Wait(ctx); err != nil {
			return result, err
		}

		var (
			target  system.StarSystem
			created bool
		)
		err := r.store.Tx.WithTx(ctx, func(tx *database.Tx) error {
			var err error
			target, created, err = r.chooseSystem(ctx, systems, counts, homeSystems, tx)
			if err != nil {
				return err
			}

			sysPos, _ := target.Position()
			orbit := spatial.OrbitForSlot(counts[target.ID], r.rng, r.cfg.Orbit)
			pos := spatial.ToAbsolute(sysPos, orbit)

			if err := r.store.Planets.AssignToSystem(ctx, id, target.ID, orbit, pos, tx); err != nil {
				return err
			}
			return r.store.Systems.IncrementPlanetCount(ctx, target.ID, 1, tx)
		})
		if err != nil {
			logger.Error("Failed to re-home orphan planet", "planet_id", id, "error", err)
			result.Failed++
			continue
		}

		if created {
			systems = append(systems, target)
		}
		counts[target.ID]++
		if homePlanets[id] {
			homeSystems[target.ID]++
		}
		result.Fixed++
		logger.Debug("Orphan planet assigned", "planet_id", id, "star_system_id", target.ID, "new_system", created)
	}

	result.Converged = result.Failed == 0
	logger.Info("Orphan planets repaired", "found", result.Found, "fixed", result.Fixed, "failed", result.Failed, "skipped", result.Skipped)
	return result, nil
}

func (r *Repairer) chooseSystem(ctx context.Context, systems []system.StarSystem, counts, homeSystems map[int]int, tx *database.Tx) (system.StarSystem, bool, error) {
	var eligible []system.StarSystem
	var positions []spatial.Vec3

	for _, sys := range systems {
		pos, ok := sys.Position()
		if !ok {
			continue
		}
		positions = append(positions, pos)

		if counts[sys.ID] < r.cfg.MaxPlanetsPerSystem && homeSystems[sys.ID] == 0 {
			eligible = append(eligible, sys)
		}
	}

	if len(eligible) > 0 {
		r.rng.Shuffle(len(eligible), func(i, j int) {
			eligible[i], eligible[j] = eligible[j], eligible[i]
		})
		return eligible[0], false, nil
	}

	pos, ok := r.place(positions)
	if !ok {
		return system.StarSystem{}, false, fmt.Errorf("no free position for a new star system after %d attempts", r.cfg.Placement.MaxAttempts)
	}

	sys := system.StarSystem{Name: system.RandomName(r.rng)}
	sys.SetPosition(pos)
	if err := r.store.Systems.CreateSystem(ctx, &sys, tx); err != nil {
		return system.StarSystem{}, false, err
	}
	return sys, true, nil
}

// place samples the normal range first and the expanded range second.
func (r *Repairer) place(existing []spatial.Vec3) (spatial.Vec3, bool) {
	for _, expand := range []bool{false, true} {
		pos, _, ok := r.sampler.FindPlacement(existing, spatial.SamplingRange(existing, expand))
		if ok {
			return pos, true
		}
	}
	return spatial.Vec3{}, false
}

// FixSystemsTooClose pushes close systems apart until every pair keeps the
// minimum distance plus a buffer, re-reading live positions on each pass, then
// moves the planets of every displaced system along with it. Everything runs
// in one transaction.
func (r *Repairer) FixSystemsTooClose(ctx context.Context, issues *IssueSet) (RepairResult, error) {
	logger := r.logger.With("operation", "fix_systems_too_close")
	original := issues.SystemPairs()
	result := RepairResult{Category: CategoryTooClose, Found: len(original)}

	if len(original) == 0 {
		result.Converged = true
		return result, nil
	}

	minDistance := r.cfg.MinSystemDistance
	target := minDistance + tooCloseBuffer

	err := r.store.Tx.WithTx(ctx, func(tx *database.Tx) error {
		result.Iterations = 0
		result.Converged = false
		result.PlanetsUpdated = 0

		affected := make(map[int]bool)
		var final map[int]spatial.Vec3
		factor := pushFactor

		for iter := 0; ; iter++ {
			systems, err := r.store.Systems.ListSystems(ctx, tx)
			if err != nil {
				return fmt.Errorf("failed to reload star systems: %w", err)
			}
			live := positionedSystems(systems)
			final = make(map[int]spatial.Vec3, len(live))
			for _, s := range live {
				final[s.id] = s.pos
			}

			pairs := closePairs(live, minDistance)
			if len(pairs) == 0 {
				result.Converged = true
				break
			}
			if iter == r.cfg.MaxIterations {
				logger.Warn("Systems still too close after iteration limit",
					"iterations", iter,
					"remaining_pairs", len(pairs))
				break
			}

			if iter > 0 && iter%pushDecayIterations == 0 {
				factor *= pushDecay
			}

			moved := pushPass(live, minDistance, target, factor)
			ids := make([]int, 0, len(moved))
			for id := range moved {
				ids = append(ids, id)
			}
			sort.Ints(ids)

			for _, id := range ids {
				pos := moved[id]
				if err := r.pacer.Wait(ctx); err != nil {
					return err
				}
				if err := r.store.Systems.UpdatePosition(ctx, id, pos, tx); err != nil {
					return fmt.Errorf("failed to move star system %d: %w", id, err)
				}
				affected[id] = true
			}
			result.Iterations++
		}

		updated, err := r.moveMovedPlanets(ctx, affected, final, tx)
		if err != nil {
			return err
		}
		result.PlanetsUpdated = updated

		result.Fixed = 0
		for _, pair := range original {
			a, okA := final[pair.SystemA]
			b, okB := final[pair.SystemB]
			if okA && okB && a.Dist(b) >= minDistance {
				result.Fixed++
			}
		}
		return nil
	})
	if err != nil {
		result.Fixed = 0
		result.Failed = result.Found
		result.Converged = false
		return result, err
	}

	result.Failed = result.Found - result.Fixed
	r.metrics.RecordRelaxation(string(CategoryTooClose), result.Iterations, result.Converged)
	logger.Info("Close systems repaired",
		"pairs", result.Found,
		"fixed", result.Fixed,
		"iterations", result.Iterations,
		"converged", result.Converged,
		"planets_updated", result.PlanetsUpdated)
	return result, nil
}

// pushPass applies one relaxation pass in ID order and returns the new
// position of every system it moved.
func pushPass(systems []positioned, minDistance, target, factor float64) map[int]spatial.Vec3 {
	moved := make(map[int]spatial.Vec3)
	for i := 0; i < len(systems); i++ {
		for j := i + 1; j < len(systems); j++ {
			if systems[i].pos.Dist(systems[j].pos) >= minDistance {
				continue
			}
			seed := systems[i].id + systems[j].id
			systems[i].pos, systems[j].pos = spatial.PushApart(systems[i].pos, systems[j].pos, target, factor, seed)
			moved[systems[i].id] = systems[i].pos
			moved[systems[j].id] = systems[j].pos
		}
	}
	return moved
}

func (r *Repairer) moveMovedPlanets(ctx context.Context, affected map[int]bool, positions map[int]spatial.Vec3, tx *database.Tx) (int, error) {
	if len(affected) == 0 {
		return 0, nil
	}

	planets, err := r.store.Planets.ListPlanets(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("failed to reload planets: %w", err)
	}

	updated := 0
	for _, p := range planets {
		if p.StarSystemID == nil || !affected[*p.StarSystemID] {
			continue
		}
		orbit, ok := p.Orbit()
		if !ok {
			continue
		}

		pos := spatial.ToAbsolute(positions[*p.StarSystemID], orbit)

		if err := r.pacer.Wait(ctx); err != nil {
			return updated, err
		}
		if err := r.store.Planets.UpdatePosition(ctx, p.ID, pos, tx); err != nil {
			return updated, fmt.Errorf("failed to move planet %d: %w", p.ID, err)
		}
		updated++
	}
	return updated, nil
}
