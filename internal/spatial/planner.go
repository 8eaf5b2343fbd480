package spatial

import (
	"log/slog"
	"math"
)

const (
	layerSpacingFactor      = 0.8
	initialAdjustmentFactor = 0.5
	adjustmentDecay         = 0.8
	adjustmentDecayEvery    = 5
	minSystemsPerLayer      = 8
)

// goldenAngle is π(3−√5), the angular step of the Fibonacci sphere.
var goldenAngle = math.Pi * (3 - math.Sqrt(5))

type PlanResult struct {
	Points     []Vec3
	Converged  bool
	Iterations int
}

// Planner lays out positions in concentric Fibonacci-sphere layers and relaxes
// them until the requested spacing holds or the iteration cap is reached.
type Planner struct {
	maxIterations int
	logger        *slog.Logger
}

func NewPlanner(maxIterations int, logger *slog.Logger) *Planner {
	return &Planner{
		maxIterations: maxIterations,
		logger:        logger,
	}
}

// Plan returns count positions at least minDistanceFromOrigin from the origin,
// spaced by minSpacing on a best-effort basis.
func (p *Planner) Plan(count int, minDistanceFromOrigin, minSpacing float64) PlanResult {
	logger := p.logger.With(
		"component", "spatial_planner",
		"operation", "plan",
		"count", count,
		"min_distance_from_origin", minDistanceFromOrigin,
		"min_spacing", minSpacing,
	)

	if count <= 0 {
		return PlanResult{Converged: true}
	}
	if count == 1 {
		return PlanResult{Points: []Vec3{{X: minDistanceFromOrigin}}, Converged: true}
	}

	perLayer := max(minSystemsPerLayer, int(math.Ceil(math.Sqrt(float64(count*2)))))
	layers := int(math.Ceil(float64(count) / float64(perLayer)))

	points := make([]Vec3, 0, count)
	for layer := 0; layer < layers; layer++ {
		n := min(perLayer, count-layer*perLayer)
		radius := minDistanceFromOrigin + float64(layer)*minSpacing*layerSpacingFactor
		points = append(points, FibonacciSphere(n, radius)...)
	}

	relaxed, converged, iterations := EnsureMinimumSpacing(points, minSpacing, p.maxIterations)
	if !converged {
		logger.Warn("Spacing relaxation hit iteration cap, using best-effort layout",
			"iterations", iterations)
	}

	for i, point := range relaxed {
		relaxed[i] = clampToFloor(point, minDistanceFromOrigin)
	}

	logger.Debug("Positions planned", "layers", layers, "per_layer", perLayer, "converged", converged)
	return PlanResult{Points: relaxed, Converged: converged, Iterations: iterations}
}

// clampToFloor rescales point outward so that its distance from the origin is
// at least floor, nudging by ULPs where the division rounds short.
func clampToFloor(point Vec3, floor float64) Vec3 {
	d := point.Len()
	if d >= floor {
		return point
	}
	if d == 0 {
		return Vec3{X: floor}
	}

	scaled := point.Scale(floor / d)
	for scaled.Len() < floor {
		scaled = scaled.Scale(math.Nextafter(1, 2))
	}
	return scaled
}

// FibonacciSphere distributes n points over a sphere of the given radius using
// the golden angle.
func FibonacciSphere(n int, radius float64) []Vec3 {
	points := make([]Vec3, n)
	for i := 0; i < n; i++ {
		points[i] = fibonacciDirection(i, n).Scale(radius)
	}
	return points
}

func fibonacciDirection(i, n int) Vec3 {
	theta := goldenAngle * float64(i)
	y := 0.0
	if n > 1 {
		y = 1 - 2*float64(i)/float64(n-1)
	}
	r := math.Sqrt(1 - y*y)
	return Vec3{X: r * math.Cos(theta), Y: y, Z: r * math.Sin(theta)}
}

// EnsureMinimumSpacing pushes every pair closer than minSpacing apart along its
// connecting axis. The input slice is not modified. It reports whether an
// iteration completed without adjustments, and how many iterations ran.
func EnsureMinimumSpacing(points []Vec3, minSpacing float64, maxIterations int) ([]Vec3, bool, int) {
	out := make([]Vec3, len(points))
	copy(out, points)

	factor := initialAdjustmentFactor
	for iter := 0; iter < maxIterations; iter++ {
		if iter > 0 && iter%adjustmentDecayEvery == 0 {
			factor *= adjustmentDecay
		}

		if !relaxPass(out, minSpacing, factor) {
			return out, true, iter + 1
		}
	}

	return out, allSpaced(out, minSpacing), maxIterations
}

// PushApart moves a and b away from each other so that, for factor 0.5, their
// distance becomes target. Coincident points are separated along a fixed axis
// derived from seed.
func PushApart(a, b Vec3, target, factor float64, seed int) (Vec3, Vec3) {
	delta := b.Sub(a)
	distance := delta.Len()

	dir := delta.Normalize()
	if distance == 0 {
		dir = fibonacciDirection(seed%97, 97)
	}

	push := (target - distance) * factor
	return a.Sub(dir.Scale(push)), b.Add(dir.Scale(push))
}

func relaxPass(points []Vec3, minSpacing, factor float64) bool {
	adjusted := false
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			if points[i].Dist(points[j]) >= minSpacing {
				continue
			}
			points[i], points[j] = PushApart(points[i], points[j], minSpacing, factor, i+j)
			adjusted = true
		}
	}
	return adjusted
}

func allSpaced(points []Vec3, minSpacing float64) bool {
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			if points[i].Dist(points[j]) < minSpacing {
				return false
			}
		}
	}
	return true
}
