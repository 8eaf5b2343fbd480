// Package memstore keeps a universe in memory behind the same repository
// methods as the Postgres repositories. It backs dry runs and tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"planets-universe/internal/planet"
	"planets-universe/internal/player"
	"planets-universe/internal/shared/database"
	"planets-universe/internal/shared/errors"
	"planets-universe/internal/spatial"
	"planets-universe/internal/system"
)

type state struct {
	systems    map[int]system.StarSystem
	planets    map[int]planet.Planet
	nextSystem int
	nextPlanet int
}

type Store struct {
	mu       sync.Mutex
	st       state
	refs     []player.HomePlanetRef
	failures map[failureKey]error
	writes   int
	now      func() time.Time
}

type failureKey struct {
	operation string
	id        int
}

// New builds a store holding copies of the given rows.
func New(systems []system.StarSystem, planets []planet.Planet, refs []player.HomePlanetRef) *Store {
	s := &Store{
		st: state{
			systems: make(map[int]system.StarSystem, len(systems)),
			planets: make(map[int]planet.Planet, len(planets)),
		},
		refs:     append([]player.HomePlanetRef(nil), refs...),
		failures: make(map[failureKey]error),
		now:      time.Now,
	}

	for _, sys := range systems {
		s.st.systems[sys.ID] = cloneSystem(sys)
		s.st.nextSystem = max(s.st.nextSystem, sys.ID)
	}
	for _, p := range planets {
		s.st.planets[p.ID] = clonePlanet(p)
		s.st.nextPlanet = max(s.st.nextPlanet, p.ID)
	}

	return s
}

// FailOn makes the next writes of operation on id return err.
// Operations are the repository method names qualified by repository, e.g.
// "systems.UpdatePlanetCount" or "planets.AssignToSystem". Batch inserts fail
// by star system ID.
func (s *Store) FailOn(operation string, id int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[failureKey{operation, id}] = err
}

// Writes returns the number of successful write operations.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// WithTx runs fn against the store and restores the previous state when fn fails.
func (s *Store) WithTx(ctx context.Context, fn func(tx *database.Tx) error) error {
	s.mu.Lock()
	saved := s.st.clone()
	savedWrites := s.writes
	s.mu.Unlock()

	if err := fn(nil); err != nil {
		s.mu.Lock()
		s.st = saved
		s.writes = savedWrites
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Systems() *SystemStore { return &SystemStore{s} }
func (s *Store) Planets() *PlanetStore { return &PlanetStore{s} }
func (s *Store) Players() *PlayerStore { return &PlayerStore{s} }

// checkFailure must be called with mu held.
func (s *Store) checkFailure(operation string, id int) error {
	if err, ok := s.failures[failureKey{operation, id}]; ok {
		return err
	}
	return nil
}

type SystemStore struct{ s *Store }

func (r *SystemStore) ListSystems(ctx context.Context, tx *database.Tx) ([]system.StarSystem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	systems := make([]system.StarSystem, 0, len(r.s.st.systems))
	for _, sys := range r.s.st.systems {
		systems = append(systems, cloneSystem(sys))
	}
	sort.Slice(systems, func(i, j int) bool { return systems[i].ID < systems[j].ID })
	return systems, nil
}

func (r *SystemStore) CreateSystem(ctx context.Context, sys *system.StarSystem, tx *database.Tx) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.checkFailure("systems.CreateSystem", 0); err != nil {
		return err
	}

	r.s.st.nextSystem++
	sys.ID = r.s.st.nextSystem
	sys.CreatedAt = r.s.now()
	sys.UpdatedAt = sys.CreatedAt
	r.s.st.systems[sys.ID] = cloneSystem(*sys)
	r.s.writes++
	return nil
}

func (r *SystemStore) UpdatePlanetCount(ctx context.Context, id, count int, tx *database.Tx) error {
	return r.update("systems.UpdatePlanetCount", id, func(sys *system.StarSystem) { sys.PlanetCount = count })
}

func (r *SystemStore) IncrementPlanetCount(ctx context.Context, id, delta int, tx *database.Tx) error {
	return r.update("systems.IncrementPlanetCount", id, func(sys *system.StarSystem) { sys.PlanetCount += delta })
}

func (r *SystemStore) UpdatePosition(ctx context.Context, id int, pos spatial.Vec3, tx *database.Tx) error {
	return r.update("systems.UpdatePosition", id, func(sys *system.StarSystem) { sys.SetPosition(pos) })
}

func (r *SystemStore) update(operation string, id int, apply func(sys *system.StarSystem)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.checkFailure(operation, id); err != nil {
		return err
	}

	sys, ok := r.s.st.systems[id]
	if !ok {
		return errors.NotFoundf("star system %d not found", id)
	}
	apply(&sys)
	sys.UpdatedAt = r.s.now()
	r.s.st.systems[id] = sys
	r.s.writes++
	return nil
}

type PlanetStore struct{ s *Store }

func (r *PlanetStore) ListPlanets(ctx context.Context, tx *database.Tx) ([]planet.Planet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	planets := make([]planet.Planet, 0, len(r.s.st.planets))
	for _, p := range r.s.st.planets {
		planets = append(planets, clonePlanet(p))
	}
	sort.Slice(planets, func(i, j int) bool { return planets[i].ID < planets[j].ID })
	return planets, nil
}

func (r *PlanetStore) CreatePlanetsBatch(ctx context.Context, requests []planet.BatchInsertRequest, tx *database.Tx) ([]planet.Planet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, req := range requests {
		if err := r.s.checkFailure("planets.CreatePlanetsBatch", req.StarSystemID); err != nil {
			return nil, err
		}
	}

	created := make([]planet.Planet, 0, len(requests))
	for _, req := range requests {
		r.s.st.nextPlanet++
		systemID := req.StarSystemID
		p := planet.Planet{
			ID:            r.s.st.nextPlanet,
			StarSystemID:  &systemID,
			Name:          req.Name,
			Type:          req.Type,
			HasProperties: true,
			CreatedAt:     r.s.now(),
		}
		p.UpdatedAt = p.CreatedAt
		p.SetPosition(spatial.Vec3{X: req.X, Y: req.Y, Z: req.Z})
		p.SetOrbit(spatial.Orbit{Distance: req.OrbitalDistance, Angle: req.OrbitalAngle, Inclination: req.OrbitalInclination})

		r.s.st.planets[p.ID] = p
		created = append(created, clonePlanet(p))
	}
	r.s.writes++
	return created, nil
}

func (r *PlanetStore) UpdatePosition(ctx context.Context, id int, pos spatial.Vec3, tx *database.Tx) error {
	return r.update("planets.UpdatePosition", id, func(p *planet.Planet) { p.SetPosition(pos) })
}

func (r *PlanetStore) AssignToSystem(ctx context.Context, id, systemID int, orbit spatial.Orbit, pos spatial.Vec3, tx *database.Tx) error {
	return r.update("planets.AssignToSystem", id, func(p *planet.Planet) {
		p.StarSystemID = &systemID
		p.SetOrbit(orbit)
		p.SetPosition(pos)
	})
}

func (r *PlanetStore) UpdateType(ctx context.Context, id int, planetType planet.PlanetType, tx *database.Tx) error {
	return r.update("planets.UpdateType", id, func(p *planet.Planet) { p.Type = planetType })
}

func (r *PlanetStore) update(operation string, id int, apply func(p *planet.Planet)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.checkFailure(operation, id); err != nil {
		return err
	}

	p, ok := r.s.st.planets[id]
	if !ok {
		return errors.NotFoundf("planet %d not found", id)
	}
	apply(&p)
	p.UpdatedAt = r.s.now()
	r.s.st.planets[id] = p
	r.s.writes++
	return nil
}

type PlayerStore struct{ s *Store }

func (r *PlayerStore) ListHomePlanetRefs(ctx context.Context, tx *database.Tx) ([]player.HomePlanetRef, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]player.HomePlanetRef(nil), r.s.refs...), nil
}

func (st state) clone() state {
	out := state{
		systems:    make(map[int]system.StarSystem, len(st.systems)),
		planets:    make(map[int]planet.Planet, len(st.planets)),
		nextSystem: st.nextSystem,
		nextPlanet: st.nextPlanet,
	}
	for id, sys := range st.systems {
		out.systems[id] = cloneSystem(sys)
	}
	for id, p := range st.planets {
		out.planets[id] = clonePlanet(p)
	}
	return out
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneSystem(sys system.StarSystem) system.StarSystem {
	sys.X, sys.Y, sys.Z = cloneFloat(sys.X), cloneFloat(sys.Y), cloneFloat(sys.Z)
	return sys
}

func clonePlanet(p planet.Planet) planet.Planet {
	if p.StarSystemID != nil {
		id := *p.StarSystemID
		p.StarSystemID = &id
	}
	p.X, p.Y, p.Z = cloneFloat(p.X), cloneFloat(p.Y), cloneFloat(p.Z)
	p.OrbitalDistance = cloneFloat(p.OrbitalDistance)
	p.OrbitalAngle = cloneFloat(p.OrbitalAngle)
	p.OrbitalInclination = cloneFloat(p.OrbitalInclination)
	return p
}
