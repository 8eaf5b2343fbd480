package system

import (
	"time"

	"planets-universe/internal/spatial"
)

type StarSystem struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	X           *float64  `json:"x"`
	Y           *float64  `json:"y"`
	Z           *float64  `json:"z"`
	PlanetCount int       `json:"planet_count"`
	Discovered  bool      `json:"discovered"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Position returns the system's absolute position, or false when any coordinate is missing.
func (s StarSystem) Position() (spatial.Vec3, bool) {
	return spatial.FromNullable(s.X, s.Y, s.Z)
}

func (s *StarSystem) SetPosition(p spatial.Vec3) {
	s.X, s.Y, s.Z = &p.X, &p.Y, &p.Z
}
