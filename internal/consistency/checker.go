package consistency

import (
	"context"
	"log/slog"
	"math"

	"planets-universe/internal/shared/metrics"
	"planets-universe/internal/spatial"
	"planets-universe/internal/system"
)

type CheckerConfig struct {
	CoordinateTolerance float64
	MinSystemDistance   float64
	MaxPlanetsPerSystem int
}

func DefaultCheckerConfig() CheckerConfig {
	return CheckerConfig{
		CoordinateTolerance: 0.1,
		MinSystemDistance:   30,
		MaxPlanetsPerSystem: 7,
	}
}

// Checker scans the universe for invariant violations. It never writes.
type Checker struct {
	store   Store
	cfg     CheckerConfig
	logger  *slog.Logger
	metrics metrics.Recorder
}

func NewChecker(store Store, cfg CheckerConfig, logger *slog.Logger, recorder metrics.Recorder) *Checker {
	if recorder == nil {
		recorder = metrics.Noop{}
	}

	return &Checker{
		store:   store,
		cfg:     cfg,
		logger:  logger.With("component", "consistency_checker"),
		metrics: recorder,
	}
}

// Check loads the universe and runs every check. Only persistence errors are
// returned; violations end up in the IssueSet.
func (c *Checker) Check(ctx context.Context) (*IssueSet, error) {
	logger := c.logger.With("operation", "check")

	snap, err := loadSnapshot(ctx, c.store, nil)
	if err != nil {
		logger.Error("Failed to load universe", "error", err)
		return nil, err
	}

	logger.Debug("Universe loaded",
		"systems", len(snap.systems),
		"planets", len(snap.planets),
		"home_planets", len(snap.homes))

	issues := NewIssueSet()
	c.checkSystems(snap, issues)
	c.checkSystemSpacing(snap, issues)
	c.checkPlanets(snap, issues)
	c.checkHomePlanets(snap, issues)

	for _, key := range KnownIssues {
		c.metrics.RecordIssues(string(key.Entity), string(key.Code), issues.CountFor(key.Entity, key.Code))
	}

	logger.Info("Consistency check completed", "issues", issues.Count())
	return issues, nil
}

func (c *Checker) checkSystems(snap *snapshot, issues *IssueSet) {
	for _, sys := range snap.systems {
		actual := len(snap.planetsBySystem[sys.ID])

		if sys.PlanetCount != actual {
			issues.Add(EntityStarSystem, IssuePlanetCountMismatch, Detail{
				"system_id": sys.ID,
				"name":      sys.Name,
				"stored":    sys.PlanetCount,
				"actual":    actual,
			})
		}

		if _, ok := sys.Position(); !ok {
			issues.Add(EntityStarSystem, IssueMissingCoordinates, Detail{
				"system_id": sys.ID,
				"name":      sys.Name,
			})
		}

		switch {
		case actual == 0:
			issues.Add(EntityStarSystem, IssueNoPlanets, Detail{
				"system_id": sys.ID,
				"name":      sys.Name,
			})
		case actual > c.cfg.MaxPlanetsPerSystem:
			issues.Add(EntityStarSystem, IssueTooManyPlanets, Detail{
				"system_id": sys.ID,
				"name":      sys.Name,
				"count":     actual,
				"max":       c.cfg.MaxPlanetsPerSystem,
			})
		}
	}
}

// checkSystemSpacing reports every pair of positioned systems closer than the
// minimum distance as a single issue.
func (c *Checker) checkSystemSpacing(snap *snapshot, issues *IssueSet) {
	pairs := closePairs(positionedSystems(snap.systems), c.cfg.MinSystemDistance)
	if len(pairs) == 0 {
		return
	}

	issues.Add(EntityStarSystem, IssueSystemsTooClose, Detail{
		"pairs":        pairs,
		"pair_count":   len(pairs),
		"min_distance": c.cfg.MinSystemDistance,
	})
}

func (c *Checker) checkPlanets(snap *snapshot, issues *IssueSet) {
	for _, p := range snap.planets {
		if p.StarSystemID == nil {
			issues.Add(EntityPlanet, IssueOrphanPlanet, Detail{
				"planet_id": p.ID,
				"name":      p.Name,
			})
		} else if _, ok := snap.systemByID[*p.StarSystemID]; !ok {
			issues.Add(EntityPlanet, IssueInvalidStarSystem, Detail{
				"planet_id":      p.ID,
				"name":           p.Name,
				"star_system_id": *p.StarSystemID,
			})
		}

		pos, hasPos := p.Position()
		if !hasPos {
			issues.Add(EntityPlanet, IssueMissingCoordinates, Detail{
				"planet_id": p.ID,
				"name":      p.Name,
			})
		}

		orbit, hasOrbit := p.Orbit()
		if !hasOrbit {
			issues.Add(EntityPlanet, IssueMissingOrbitalCoordinates, Detail{
				"planet_id": p.ID,
				"name":      p.Name,
			})
		}

		if !p.HasProperties {
			issues.Add(EntityPlanet, IssueMissingProperties, Detail{
				"planet_id": p.ID,
				"name":      p.Name,
			})
		}

		if !hasPos || !hasOrbit || p.StarSystemID == nil {
			continue
		}

		sys, ok := snap.systemByID[*p.StarSystemID]
		if !ok {
			continue
		}
		sysPos, ok := sys.Position()
		if !ok {
			continue
		}

		expected := spatial.ToAbsolute(sysPos, orbit)
		if drift := expected.Dist(pos); drift > c.cfg.CoordinateTolerance {
			issues.Add(EntityPlanet, IssueCoordinateMismatch, Detail{
				"planet_id":      p.ID,
				"name":           p.Name,
				"star_system_id": sys.ID,
				"drift":          round(drift, 3),
			})
		}
	}
}

func (c *Checker) checkHomePlanets(snap *snapshot, issues *IssueSet) {
	for _, ref := range snap.homes {
		p, ok := snap.planetByID[ref.HomePlanetID]
		if !ok {
			issues.Add(EntityPlayer, IssueInvalidHomePlanet, Detail{
				"player_id":      ref.PlayerID,
				"username":       ref.Username,
				"home_planet_id": ref.HomePlanetID,
			})
			continue
		}

		if p.StarSystemID == nil {
			issues.Add(EntityPlayer, IssueHomePlanetNoStarSystem, Detail{
				"player_id":      ref.PlayerID,
				"username":       ref.Username,
				"home_planet_id": ref.HomePlanetID,
			})
		}
	}
}

type positioned struct {
	id  int
	pos spatial.Vec3
}

func positionedSystems(systems []system.StarSystem) []positioned {
	out := make([]positioned, 0, len(systems))
	for _, sys := range systems {
		if pos, ok := sys.Position(); ok {
			out = append(out, positioned{id: sys.ID, pos: pos})
		}
	}
	return out
}

func closePairs(systems []positioned, minDistance float64) []SystemPair {
	var pairs []SystemPair
	for i := 0; i < len(systems); i++ {
		for j := i + 1; j < len(systems); j++ {
			d := systems[i].pos.Dist(systems[j].pos)
			if d < minDistance {
				pairs = append(pairs, SystemPair{
					SystemA:  systems[i].id,
					SystemB:  systems[j].id,
					Distance: round(d, 2),
				})
			}
		}
	}
	return pairs
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
