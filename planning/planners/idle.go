package planners

import (
	"github.com/benbjohnson/clock"

	"github.com/sslcore/planner/planning"
	"github.com/sslcore/planner/trajectory"
)

// Idle holds the robot where it is. It is done as soon as it has planned once.
type Idle struct {
	clock   clock.Clock
	planned bool
}

// NewIdle returns an Idle planner.
func NewIdle(clk clock.Clock) *Idle {
	return &Idle{clock: orDefault(clk)}
}

// Name implements planning.Planner.
func (p *Idle) Name() string {
	return planning.IdleCommand
}

// Plan implements planning.Planner.
func (p *Idle) Plan(req planning.PlanRequest) trajectory.Trajectory {
	p.planned = true
	return trajectory.Hold(req.Start, p.clock.Now())
}

// Reset implements planning.Planner.
func (p *Idle) Reset() {
	p.planned = false
}

// IsDone implements planning.Planner.
func (p *Idle) IsDone() bool {
	return p.planned
}
