package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"planets-universe/internal/consistency"
	"planets-universe/internal/memstore"
	"planets-universe/internal/planet"
	"planets-universe/internal/player"
	"planets-universe/internal/shared/config"
	"planets-universe/internal/shared/database"
	"planets-universe/internal/shared/logger"
	"planets-universe/internal/shared/metrics"
	"planets-universe/internal/shared/redis"
	"planets-universe/internal/shared/throttle"
	"planets-universe/internal/spatial"
	"planets-universe/internal/system"
	"planets-universe/internal/universe"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// application is set by the root command before any subcommand runs.
var application *app

type app struct {
	command  string
	runID    string
	started  time.Time
	cfg      *config.Config
	logger   *slog.Logger
	rng      *rand.Rand
	registry *prometheus.Registry
	metrics  *metrics.Collector
}

func newApp(command string) (*app, error) {
	if err := config.Init(); err != nil {
		return nil, err
	}
	logger.Init()

	runID := uuid.NewString()
	log := slog.Default().With("run_id", runID, "command", command)
	slog.SetDefault(log)

	s := seed
	if s == 0 {
		s = time.Now().UnixNano()
	}
	log.Info("Starting maintenance run", "seed", s)

	registry := prometheus.NewRegistry()

	return &app{
		command:  command,
		runID:    runID,
		started:  time.Now(),
		cfg:      config.GlobalConfig,
		logger:   log,
		rng:      rand.New(rand.NewSource(s)),
		registry: registry,
		metrics:  metrics.NewCollector(registry),
	}, nil
}

func (a *app) finish(err error) {
	a.metrics.RecordDuration(a.command, time.Since(a.started))

	if metricsFile != "" {
		if writeErr := metrics.WriteTextfile(a.registry, metricsFile); writeErr != nil {
			a.logger.Error("Failed to write metrics", "path", metricsFile, "error", writeErr)
		}
	}

	a.logger.Info("Maintenance run finished", "duration", time.Since(a.started), "failed", err != nil)
}

func (a *app) pacer() *throttle.Pacer {
	return throttle.NewPacer(a.cfg.Maintenance.WritesPerSecond)
}

type repositories struct {
	systems *system.Repository
	planets *planet.Repository
	players *player.Repository
	db      *database.DB
}

func (a *app) connect() (*repositories, error) {
	db, err := database.Connect()
	if err != nil {
		return nil, err
	}

	return &repositories{
		systems: system.NewRepository(db, a.logger),
		planets: planet.NewRepository(db, a.logger),
		players: player.NewRepository(db, a.logger),
		db:      db,
	}, nil
}

func (r *repositories) consistencyStore() consistency.Store {
	return consistency.Store{Systems: r.systems, Planets: r.planets, Players: r.players, Tx: r.db}
}

func (r *repositories) universeStore() universe.Store {
	return universe.Store{Systems: r.systems, Planets: r.planets, Players: r.players, Tx: r.db}
}

// copyToMemory loads the whole universe into a memstore so repairs can be
// replayed without touching the database.
func copyToMemory(ctx context.Context, store consistency.Store) (*memstore.Store, error) {
	systems, err := store.Systems.ListSystems(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to copy star systems: %w", err)
	}
	planets, err := store.Planets.ListPlanets(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to copy planets: %w", err)
	}
	refs, err := store.Players.ListHomePlanetRefs(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to copy home planets: %w", err)
	}
	return memstore.New(systems, planets, refs), nil
}

func memoryStore(ms *memstore.Store) consistency.Store {
	return consistency.Store{Systems: ms.Systems(), Planets: ms.Planets(), Players: ms.Players(), Tx: ms}
}

// withLock runs fn while holding the maintenance lock. Without Redis the
// lock is skipped.
func (a *app) withLock(ctx context.Context, fn func() error) error {
	client, err := redis.Connect()
	if err != nil {
		return err
	}
	defer client.Close()

	lock := redis.NewLock(client, a.cfg.Maintenance.LockKey, a.cfg.Maintenance.LockTTL, a.logger)
	if err := lock.Acquire(ctx); err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			a.logger.Error("Failed to release maintenance lock", "error", err)
		}
	}()

	return fn()
}

func (a *app) checkerConfig() consistency.CheckerConfig {
	u := a.cfg.Universe
	return consistency.CheckerConfig{
		CoordinateTolerance: u.CoordinateTolerance,
		MinSystemDistance:   u.MinSystemDistance,
		MaxPlanetsPerSystem: u.MaxPlanetsPerSystem,
	}
}

func (a *app) placementConfig() spatial.PlacementConfig {
	u := a.cfg.Universe
	return spatial.PlacementConfig{
		MinDistance: u.MinSystemDistance,
		OriginFloor: u.OriginFloor,
		MaxAttempts: u.GenerationMaxAttempts,
	}
}

func (a *app) orbitConfig() spatial.OrbitConfig {
	orbit := spatial.DefaultOrbitConfig()
	orbit.MaxSlots = a.cfg.Universe.MaxPlanetsPerSystem
	return orbit
}

func (a *app) repairConfig() consistency.RepairConfig {
	u := a.cfg.Universe
	return consistency.RepairConfig{
		MinSystemDistance:   u.MinSystemDistance,
		MaxPlanetsPerSystem: u.MaxPlanetsPerSystem,
		MaxIterations:       u.RepairMaxIterations,
		Placement:           a.placementConfig(),
		Orbit:               a.orbitConfig(),
	}
}

func (a *app) generatorConfig() universe.GeneratorConfig {
	return universe.GeneratorConfig{
		Placement:           a.placementConfig(),
		Orbit:               a.orbitConfig(),
		MaxPlanetsPerSystem: a.cfg.Universe.MaxPlanetsPerSystem,
	}
}
