package planners

import (
	"math"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"

	"github.com/sslcore/planner/geometry"
	"github.com/sslcore/planner/planning"
	"github.com/sslcore/planner/trajectory"
)

// escapeMargin is the clearance, in meters, kept from an obstacle after escaping it.
const escapeMargin = 0.1

// EscapeObstacles moves the robot to the closest point outside every obstacle it is inside of,
// and otherwise holds position. It always returns a valid trajectory, which makes it the
// fallback planner.
type EscapeObstacles struct {
	clock clock.Clock
	done  bool
}

// NewEscapeObstacles returns an EscapeObstacles planner.
func NewEscapeObstacles(clk clock.Clock) *EscapeObstacles {
	return &EscapeObstacles{clock: orDefault(clk)}
}

// Name implements planning.Planner.
func (p *EscapeObstacles) Name() string {
	return planning.EscapeObstaclesCommand
}

// escapeTarget returns the nearest point that is clear of every shape in `obstacles`, falling
// back to the nearest escape point of any single shape.
func escapeTarget(start r2.Point, obstacles geometry.ShapeSet) r2.Point {
	hits := obstacles.HitShapes(start)
	best, bestDist := start, math.Inf(1)
	fallback, fallbackDist := start, math.Inf(1)
	for _, shape := range hits {
		candidate := shape.EscapePoint(start, escapeMargin)
		dist := candidate.Sub(start).Norm()
		if dist < fallbackDist {
			fallback, fallbackDist = candidate, dist
		}
		if !obstacles.Hit(candidate) && dist < bestDist {
			best, bestDist = candidate, dist
		}
	}
	if math.IsInf(bestDist, 1) {
		return fallback
	}
	return best
}

// Plan implements planning.Planner.
func (p *EscapeObstacles) Plan(req planning.PlanRequest) trajectory.Trajectory {
	now := p.clock.Now()
	obstacles := obstaclesFor(req)
	start := req.Start.Pose.Position
	if !obstacles.Hit(start) {
		p.done = true
		return trajectory.Hold(req.Start, now)
	}
	p.done = false

	target := geometry.Pose{Position: escapeTarget(start, obstacles), Heading: req.Start.Pose.Heading}
	maxSpeed := req.Constraints.MaxSpeed
	if maxSpeed <= 0 {
		maxSpeed = planning.DefaultConstraints().MaxSpeed
	}
	maxAccel := req.Constraints.MaxAccel
	if maxAccel <= 0 {
		maxAccel = planning.DefaultConstraints().MaxAccel
	}
	// StraightLine degrades to a hold, so this never comes back empty.
	return trajectory.StraightLine(req.Start, target, maxSpeed, maxAccel, trajectory.DefaultSampleInterval, now)
}

// Reset implements planning.Planner.
func (p *EscapeObstacles) Reset() {
	p.done = false
}

// IsDone implements planning.Planner.
func (p *EscapeObstacles) IsDone() bool {
	return p.done
}
