package spatial

import (
	"math"
	"math/rand"
)

// Orbit describes a planet's position relative to its star system.
// Angles are in degrees and are not normalized.
type Orbit struct {
	Distance    float64 `json:"orbital_distance"`
	Angle       float64 `json:"orbital_angle"`
	Inclination float64 `json:"orbital_inclination"`
}

// ToAbsolute converts orbital parameters around system into an absolute position.
func ToAbsolute(system Vec3, orbit Orbit) Vec3 {
	angle := orbit.Angle * math.Pi / 180
	incl := orbit.Inclination * math.Pi / 180

	return Vec3{
		X: system.X + orbit.Distance*math.Cos(angle),
		Y: system.Y + orbit.Distance*math.Sin(angle)*math.Cos(incl),
		Z: system.Z + orbit.Distance*math.Sin(angle)*math.Sin(incl),
	}
}

// ToOrbit recovers orbital parameters from an absolute position. The returned
// angle lies in [0, 180]; a point on the system's x axis reports inclination 0.
func ToOrbit(system, absolute Vec3) Orbit {
	offset := absolute.Sub(system)
	distance := offset.Len()
	if distance == 0 {
		return Orbit{}
	}

	lateral := math.Hypot(offset.Y, offset.Z)
	orbit := Orbit{
		Distance: distance,
		Angle:    math.Atan2(lateral, offset.X) * 180 / math.Pi,
	}
	if lateral > 0 {
		orbit.Inclination = math.Atan2(offset.Z, offset.Y) * 180 / math.Pi
	}
	return orbit
}

type OrbitConfig struct {
	MinDistance    float64
	MaxDistance    float64
	Jitter         float64
	MaxInclination float64
	MaxSlots       int
}

func DefaultOrbitConfig() OrbitConfig {
	return OrbitConfig{
		MinDistance:    5,
		MaxDistance:    50,
		Jitter:         0.2,
		MaxInclination: 15,
		MaxSlots:       7,
	}
}

// OrbitForSlot picks orbital parameters for the index-th planet of a system.
func OrbitForSlot(index int, rng *rand.Rand, cfg OrbitConfig) Orbit {
	ratio := 0.0
	if cfg.MaxSlots > 1 {
		ratio = float64(index) / float64(cfg.MaxSlots-1)
	}
	ratio = math.Max(0, math.Min(1, ratio))

	distance := cfg.MinDistance + ratio*(cfg.MaxDistance-cfg.MinDistance)
	distance *= 1 + (rng.Float64()*2-1)*cfg.Jitter

	return Orbit{
		Distance:    distance,
		Angle:       float64(index) * 360 / float64(index+1),
		Inclination: (rng.Float64()*2 - 1) * cfg.MaxInclination,
	}
}
