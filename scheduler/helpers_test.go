package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"go.uber.org/atomic"

	"github.com/sslcore/planner/geometry"
	"github.com/sslcore/planner/globalstate"
	"github.com/sslcore/planner/planning"
	"github.com/sslcore/planner/planning/planners"
	"github.com/sslcore/planner/trajectory"
)

type recordingPublisher struct {
	mu           sync.Mutex
	trajectories map[int][]trajectory.Trajectory
	setpoints    []planning.ManipulatorSetpoint
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{trajectories: map[int][]trajectory.Trajectory{}}
}

func (p *recordingPublisher) PublishTrajectory(ctx context.Context, robotID int, traj trajectory.Trajectory) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trajectories[robotID] = append(p.trajectories[robotID], traj)
	return nil
}

func (p *recordingPublisher) PublishSetpoint(ctx context.Context, setpoint planning.ManipulatorSetpoint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setpoints = append(p.setpoints, setpoint)
	return nil
}

func (p *recordingPublisher) published(robotID int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.trajectories[robotID])
}

func (p *recordingPublisher) lastSetpoint() (planning.ManipulatorSetpoint, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.setpoints) == 0 {
		return planning.ManipulatorSetpoint{}, false
	}
	return p.setpoints[len(p.setpoints)-1], true
}

// stubPlanner returns whatever its plan function returns and counts resets.
type stubPlanner struct {
	name   string
	plan   func(req planning.PlanRequest) trajectory.Trajectory
	resets atomic.Int32
	plans  atomic.Int32
	done   atomic.Bool
}

func (p *stubPlanner) Name() string { return p.name }

func (p *stubPlanner) Plan(req planning.PlanRequest) trajectory.Trajectory {
	p.plans.Inc()
	return p.plan(req)
}

func (p *stubPlanner) Reset() { p.resets.Inc() }

func (p *stubPlanner) IsDone() bool { return p.done.Load() }

func emptyPlan(planning.PlanRequest) trajectory.Trajectory {
	return trajectory.Trajectory{}
}

func holdPlan(clk clock.Clock) func(planning.PlanRequest) trajectory.Trajectory {
	return func(req planning.PlanRequest) trajectory.Trajectory {
		return trajectory.Hold(req.Start, clk.Now())
	}
}

// unanglePlan is stamped but has no angle profile.
func unanglePlan(clk clock.Clock) func(planning.PlanRequest) trajectory.Trajectory {
	return func(req planning.PlanRequest) trajectory.Trajectory {
		traj := trajectory.New([]trajectory.RobotInstant{req.Start})
		traj.Stamp(clk.Now())
		return traj
	}
}

// unstampedPlan has an angle profile but no creation time.
func unstampedPlan(req planning.PlanRequest) trajectory.Trajectory {
	traj := trajectory.New([]trajectory.RobotInstant{req.Start})
	traj.MarkAnglesValid()
	return traj
}

const (
	stubEmpty     = "stub_empty"
	stubNoAngles  = "stub_no_angles"
	stubUnstamped = "stub_unstamped"
	stubHold      = "stub_hold"
	testNumRobots = 3
	testTimeout   = 500 * time.Millisecond
)

// testRegistry is the default registry plus stubs for every kind of failure.
func testRegistry(clk clock.Clock) *planning.Registry {
	return planning.NewRegistry(
		planners.NewIdle(clk),
		planners.NewPathTarget(clk),
		planners.NewGoalieIdle(clk),
		&stubPlanner{name: stubEmpty, plan: emptyPlan},
		&stubPlanner{name: stubNoAngles, plan: unanglePlan(clk)},
		&stubPlanner{name: stubUnstamped, plan: unstampedPlan},
		&stubPlanner{name: stubHold, plan: holdPlan(clk)},
	)
}

func testConfig(clk clock.Clock) Config {
	conf := DefaultConfig()
	conf.NumRobots = testNumRobots
	conf.PerceptionTimeout = testTimeout
	conf.Clock = clk
	conf.NewPlanners = testRegistry
	return conf
}

// seedWorld publishes a world in which every robot is visible at (id, 0) and was seen now.
func seedWorld(state *globalstate.State) {
	now := state.Clock().Now()
	world := &globalstate.WorldState{LastUpdated: now}
	for id := 0; id < testNumRobots; id++ {
		world.OurRobots = append(world.OurRobots, globalstate.RobotState{
			Pose:      geometry.NewPose(float64(id), 0, 0),
			Visible:   true,
			Timestamp: now,
		})
	}
	state.SetWorld(world)
}

func mustCircle(center r2.Point, radius float64) geometry.Shape {
	c, err := geometry.NewCircle(center, radius)
	if err != nil {
		panic(err)
	}
	return c
}
