package planners

import (
	"math"

	"github.com/benbjohnson/clock"

	"github.com/sslcore/planner/geometry"
	"github.com/sslcore/planner/planning"
	"github.com/sslcore/planner/trajectory"
)

// PathTarget drives in a straight line to the commanded pose. It fails, returning an empty
// trajectory, when the target lies in an obstacle or the line crosses one.
type PathTarget struct {
	clock  clock.Clock
	target *geometry.Pose
	done   bool
}

// NewPathTarget returns a PathTarget planner.
func NewPathTarget(clk clock.Clock) *PathTarget {
	return &PathTarget{clock: orDefault(clk)}
}

// Name implements planning.Planner.
func (p *PathTarget) Name() string {
	return planning.PathTargetCommand
}

// Plan implements planning.Planner.
func (p *PathTarget) Plan(req planning.PlanRequest) trajectory.Trajectory {
	params, ok := req.Command.Params.(planning.PathTargetParams)
	if !ok {
		return trajectory.Trajectory{}
	}
	target := params.Target
	p.target = &target

	obstacles := obstaclesFor(req)
	if obstacles.Hit(target.Position) {
		return trajectory.Trajectory{}
	}

	p.done = arrived(req.Start, target)
	if p.done {
		return trajectory.Hold(req.Start, p.clock.Now())
	}

	maxSpeed := req.Constraints.MaxSpeed
	if params.TargetSpeed > 0 {
		maxSpeed = math.Min(maxSpeed, params.TargetSpeed)
	}
	traj := trajectory.StraightLine(req.Start, target, maxSpeed, req.Constraints.MaxAccel,
		trajectory.DefaultSampleInterval, p.clock.Now())
	if collides(traj, req.Start.Pose.Position, obstacles) {
		return trajectory.Trajectory{}
	}
	return traj
}

// Reset implements planning.Planner.
func (p *PathTarget) Reset() {
	p.target = nil
	p.done = false
}

// IsDone implements planning.Planner.
func (p *PathTarget) IsDone() bool {
	return p.target != nil && p.done
}
