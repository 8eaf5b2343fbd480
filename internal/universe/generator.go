package universe

import (
	"context"
	"log/slog"
	"math/rand"

	"planets-universe/internal/planet"
	"planets-universe/internal/shared/database"
	"planets-universe/internal/shared/errors"
	"planets-universe/internal/shared/metrics"
	"planets-universe/internal/shared/throttle"
	"planets-universe/internal/spatial"
	"planets-universe/internal/system"
)

type GeneratorConfig struct {
	Placement           spatial.PlacementConfig
	Orbit               spatial.OrbitConfig
	MaxPlanetsPerSystem int
}

func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Placement:           spatial.DefaultPlacementConfig(),
		Orbit:               spatial.DefaultOrbitConfig(),
		MaxPlanetsPerSystem: 7,
	}
}

type GenerateOptions struct {
	Count       int
	Expand      bool
	MaxAttempts int
	MinPlanets  int
	MaxPlanets  int
}

type GenerationResult struct {
	Requested      int   `json:"requested" yaml:"requested"`
	Generated      int   `json:"generated" yaml:"generated"`
	Failed         int   `json:"failed" yaml:"failed"`
	PlanetsCreated int   `json:"planets_created" yaml:"planets_created"`
	SystemIDs      []int `json:"system_ids,omitempty" yaml:"system_ids,omitempty"`
}

// Generator adds undiscovered star systems, with their planets, to the
// existing universe.
type Generator struct {
	store   Store
	cfg     GeneratorConfig
	rng     *rand.Rand
	pacer   *throttle.Pacer
	logger  *slog.Logger
	metrics metrics.Recorder
}

func NewGenerator(store Store, cfg GeneratorConfig, rng *rand.Rand, pacer *throttle.Pacer, logger *slog.Logger, recorder metrics.Recorder) *Generator {
	if recorder == nil {
		recorder = metrics.Noop{}
	}

	return &Generator{
		store:   store,
		cfg:     cfg,
		rng:     rng,
		pacer:   pacer,
		logger:  logger.With("component", "universe_generator"),
		metrics: recorder,
	}
}

func (g *Generator) normalize(opts GenerateOptions) (GenerateOptions, error) {
	if opts.Count < 1 {
		return opts, errors.Validationf("count must be positive, got %d", opts.Count)
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = g.cfg.Placement.MaxAttempts
	}
	if opts.MinPlanets < 1 {
		opts.MinPlanets = 1
	}
	if opts.MaxPlanets <= 0 || opts.MaxPlanets > g.cfg.MaxPlanetsPerSystem {
		opts.MaxPlanets = g.cfg.MaxPlanetsPerSystem
	}
	if opts.MinPlanets > opts.MaxPlanets {
		return opts, errors.Validationf("min planets (%d) exceeds max planets (%d)", opts.MinPlanets, opts.MaxPlanets)
	}
	return opts, nil
}

// GenerateUndiscovered places opts.Count new systems. A system that cannot be
// placed or persisted counts as failed and generation moves on to the next.
func (g *Generator) GenerateUndiscovered(ctx context.Context, opts GenerateOptions) (*GenerationResult, error) {
	opts, err := g.normalize(opts)
	if err != nil {
		return nil, err
	}

	logger := g.logger.With("operation", "generate_undiscovered", "count", opts.Count, "expand", opts.Expand)
	result := &GenerationResult{Requested: opts.Count}

	systems, err := g.store.Systems.ListSystems(ctx, nil)
	if err != nil {
		logger.Error("Failed to load existing systems", "error", err)
		return nil, errors.WrapInternal("failed to load existing systems", err)
	}

	existing := make([]spatial.Vec3, 0, len(systems)+opts.Count)
	for _, sys := range systems {
		if pos, ok := sys.Position(); ok {
			existing = append(existing, pos)
		}
	}

	rangeLimit := spatial.SamplingRange(existing, opts.Expand)
	placement := g.cfg.Placement
	placement.MaxAttempts = opts.MaxAttempts
	sampler := spatial.NewSampler(g.rng, placement)

	logger.Info("Starting generation", "existing_systems", len(existing), "range", rangeLimit)

	for i := 0; i < opts.Count; i++ {
		pos, attempts, ok := sampler.FindPlacement(existing, rangeLimit)
		if !ok {
			logger.Warn("No valid position found", "index", i, "attempts", attempts)
			result.Failed++
			continue
		}

		if err := g.pacer.Wait(ctx); err != nil {
			g.metrics.RecordGeneration(result.Generated, result.Failed, result.PlanetsCreated)
			return result, err
		}

		planetCount := opts.MinPlanets + g.rng.Intn(opts.MaxPlanets-opts.MinPlanets+1)
		sys, created, err := g.createSystem(ctx, pos, planetCount)
		if err != nil {
			logger.Error("Failed to create star system", "index", i, "error", err)
			result.Failed++
			continue
		}

		existing = append(existing, pos)
		result.Generated++
		result.PlanetsCreated += created
		result.SystemIDs = append(result.SystemIDs, sys.ID)

		logger.Debug("Star system generated",
			"system_id", sys.ID,
			"name", sys.Name,
			"planets", created,
			"attempts", attempts)
	}

	g.metrics.RecordGeneration(result.Generated, result.Failed, result.PlanetsCreated)
	logger.Info("Generation completed",
		"generated", result.Generated,
		"failed", result.Failed,
		"planets_created", result.PlanetsCreated)

	return result, nil
}

func (g *Generator) createSystem(ctx context.Context, pos spatial.Vec3, planetCount int) (system.StarSystem, int, error) {
	sys := system.StarSystem{
		Name:        system.RandomName(g.rng),
		PlanetCount: planetCount,
	}
	sys.SetPosition(pos)

	var created []planet.Planet
	err := g.store.Tx.WithTx(ctx, func(tx *database.Tx) error {
		if err := g.store.Systems.CreateSystem(ctx, &sys, tx); err != nil {
			return err
		}

		batch := planet.NewBatch(sys.ID, sys.Name, pos, planetCount, g.rng, g.cfg.Orbit)

		var err error
		created, err = g.store.Planets.CreatePlanetsBatch(ctx, batch, tx)
		return err
	})
	if err != nil {
		return system.StarSystem{}, 0, err
	}

	return sys, len(created), nil
}
