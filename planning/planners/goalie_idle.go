package planners

import (
	"math"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"

	"github.com/sslcore/planner/geometry"
	"github.com/sslcore/planner/planning"
	"github.com/sslcore/planner/trajectory"
)

// goalieStandoff is how far in front of the goal center the goalie waits, in meters.
const goalieStandoff = 0.5

// GoalieIdle keeps the goalie between the ball and the center of our goal, which sits at the
// origin with the field extending along +y. It never finishes.
type GoalieIdle struct {
	clock clock.Clock
}

// NewGoalieIdle returns a GoalieIdle planner.
func NewGoalieIdle(clk clock.Clock) *GoalieIdle {
	return &GoalieIdle{clock: orDefault(clk)}
}

// Name implements planning.Planner.
func (p *GoalieIdle) Name() string {
	return planning.GoalieIdleCommand
}

// idlePose returns where the goalie should stand for a ball at `ball`.
func idlePose(ball r2.Point, ballVisible bool) geometry.Pose {
	dir := r2.Point{X: 0, Y: 1}
	if ballVisible && ball.Norm() > 1e-6 {
		dir = ball.Normalize()
		// never stand behind the goal line
		if dir.Y < 0 {
			dir = r2.Point{X: math.Copysign(1, dir.X), Y: 0}
		}
	}
	position := dir.Mul(goalieStandoff)
	facing := ball.Sub(position)
	heading := math.Pi / 2
	if ballVisible && facing.Norm() > 1e-6 {
		heading = math.Atan2(facing.Y, facing.X)
	}
	return geometry.Pose{Position: position, Heading: heading}
}

// Plan implements planning.Planner.
func (p *GoalieIdle) Plan(req planning.PlanRequest) trajectory.Trajectory {
	var ball r2.Point
	var ballVisible bool
	if req.World != nil {
		ball, ballVisible = req.World.Ball.Position, req.World.Ball.Visible
	}
	target := idlePose(ball, ballVisible)
	return trajectory.StraightLine(req.Start, target, req.Constraints.MaxSpeed, req.Constraints.MaxAccel,
		trajectory.DefaultSampleInterval, p.clock.Now())
}

// Reset implements planning.Planner.
func (p *GoalieIdle) Reset() {}

// IsDone implements planning.Planner.
func (p *GoalieIdle) IsDone() bool {
	return false
}
