package planet

import (
	"time"

	"planets-universe/internal/spatial"
)

type PlanetType string

const (
	PlanetTypeBarren      PlanetType = "barren"
	PlanetTypeTerrestrial PlanetType = "terrestrial"
	PlanetTypeGasGiant    PlanetType = "gas_giant"
	PlanetTypeIce         PlanetType = "ice"
	PlanetTypeVolcanic    PlanetType = "volcanic"
)

func (t PlanetType) IsValid() bool {
	switch t {
	case PlanetTypeBarren, PlanetTypeTerrestrial, PlanetTypeGasGiant, PlanetTypeIce, PlanetTypeVolcanic:
		return true
	}
	return false
}

type Planet struct {
	ID                 int        `json:"id"`
	StarSystemID       *int       `json:"star_system_id"`
	Name               string     `json:"name"`
	Type               PlanetType `json:"type"`
	X                  *float64   `json:"x"`
	Y                  *float64   `json:"y"`
	Z                  *float64   `json:"z"`
	OrbitalDistance    *float64   `json:"orbital_distance"`
	OrbitalAngle       *float64   `json:"orbital_angle"`
	OrbitalInclination *float64   `json:"orbital_inclination"`
	HasProperties      bool       `json:"has_properties"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (p Planet) Position() (spatial.Vec3, bool) {
	return spatial.FromNullable(p.X, p.Y, p.Z)
}

// Orbit returns the stored orbital parameters, or false when any is missing.
func (p Planet) Orbit() (spatial.Orbit, bool) {
	if p.OrbitalDistance == nil || p.OrbitalAngle == nil || p.OrbitalInclination == nil {
		return spatial.Orbit{}, false
	}
	return spatial.Orbit{
		Distance:    *p.OrbitalDistance,
		Angle:       *p.OrbitalAngle,
		Inclination: *p.OrbitalInclination,
	}, true
}

func (p *Planet) SetPosition(pos spatial.Vec3) {
	p.X, p.Y, p.Z = &pos.X, &pos.Y, &pos.Z
}

func (p *Planet) SetOrbit(orbit spatial.Orbit) {
	p.OrbitalDistance, p.OrbitalAngle, p.OrbitalInclination = &orbit.Distance, &orbit.Angle, &orbit.Inclination
}

// BatchInsertRequest represents a single planet, with its properties, to be inserted in a batch
type BatchInsertRequest struct {
	StarSystemID       int
	Name               string
	Type               PlanetType
	X                  float64
	Y                  float64
	Z                  float64
	OrbitalDistance    float64
	OrbitalAngle       float64
	OrbitalInclination float64
	Size               int
	MaxPopulation      int64
}
