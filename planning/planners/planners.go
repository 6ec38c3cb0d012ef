// Package planners contains the reference Planner implementations registered for every robot.
package planners

import (
	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"

	"github.com/sslcore/planner/geometry"
	"github.com/sslcore/planner/planning"
	"github.com/sslcore/planner/trajectory"
)

const (
	// arrivalDistance is how close, in meters, a robot must be to its target to be done.
	arrivalDistance = 0.05
	// arrivalSpeed is the speed, in m/s, below which an arrived robot is considered settled.
	arrivalSpeed = 0.1
	// ballRadius is used to turn MinDistFromBall into an obstacle.
	ballRadius = 0.0215
)

// NewDefaultRegistry returns fresh instances of every planner the scheduler dispatches to.
func NewDefaultRegistry(clk clock.Clock) *planning.Registry {
	return planning.NewRegistry(
		NewIdle(clk),
		NewPathTarget(clk),
		NewGoalieIdle(clk),
		NewEscapeObstacles(clk),
	)
}

// NewFallback returns the planner used when the requested one fails.
func NewFallback(clk clock.Clock) planning.Planner {
	return NewEscapeObstacles(clk)
}

func orDefault(clk clock.Clock) clock.Clock {
	if clk == nil {
		return clock.New()
	}
	return clk
}

// obstaclesFor is every obstacle of the request plus, when requested, a keep-out disc around the
// ball.
func obstaclesFor(req planning.PlanRequest) geometry.ShapeSet {
	obstacles := req.AllObstacles()
	if req.MinDistFromBall > 0 && req.World != nil && req.World.Ball.Visible {
		if disc, err := geometry.NewCircle(req.World.Ball.Position, req.MinDistFromBall+ballRadius); err == nil {
			obstacles.Add(disc)
		}
	}
	return obstacles
}

// collides reports whether any instant of `traj` lies in an obstacle the start is not already
// inside of. Robots are allowed to drive out of an obstacle they start in.
func collides(traj trajectory.Trajectory, start r2.Point, obstacles geometry.ShapeSet) bool {
	var blocking geometry.ShapeSet
	for _, shape := range obstacles.Shapes() {
		if !shape.Contains(start) {
			blocking.Add(shape)
		}
	}
	for _, instant := range traj.Instants() {
		if blocking.Hit(instant.Pose.Position) {
			return true
		}
	}
	return false
}

func arrived(start trajectory.RobotInstant, target geometry.Pose) bool {
	return start.Pose.DistanceTo(target) < arrivalDistance && start.Velocity.Speed() < arrivalSpeed
}
