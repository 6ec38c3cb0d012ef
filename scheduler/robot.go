package scheduler

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/sslcore/planner/globalstate"
	"github.com/sslcore/planner/logging"
	"github.com/sslcore/planner/planning"
	"github.com/sslcore/planner/trajectory"
)

// Publisher delivers the output of a planning cycle. Implementations must be safe for concurrent
// use by every robot.
type Publisher interface {
	PublishTrajectory(ctx context.Context, robotID int, traj trajectory.Trajectory) error
	PublishSetpoint(ctx context.Context, setpoint planning.ManipulatorSetpoint) error
}

// RobotScheduler owns the planners of one robot and performs one planning cycle at a time.
// ExecuteIntent must only be called by one goroutine at a time, which Admission guarantees.
type RobotScheduler struct {
	robotID           int
	state             *globalstate.State
	publisher         Publisher
	clock             clock.Clock
	logger            logging.Logger
	metrics           *Metrics
	perceptionTimeout time.Duration
	unlimitedSpeed    float64

	planners *planning.Registry
	fallback planning.Planner

	mu             sync.Mutex
	active         planning.Planner
	lastTrajectory *trajectory.Trajectory

	hasBallSense atomic.Bool

	hypotheticalMu       sync.Mutex
	hypotheticalPlanners *planning.Registry
	hypotheticalFallback planning.Planner
}

// NewRobotScheduler returns a scheduler for `robotID` with its own planner instances.
func NewRobotScheduler(
	robotID int,
	conf Config,
	state *globalstate.State,
	publisher Publisher,
	logger logging.Logger,
) *RobotScheduler {
	conf = conf.withDefaults()
	return &RobotScheduler{
		robotID:              robotID,
		state:                state,
		publisher:            publisher,
		clock:                conf.Clock,
		logger:               logger,
		metrics:              conf.Metrics,
		perceptionTimeout:    conf.PerceptionTimeout,
		unlimitedSpeed:       conf.UnlimitedSpeed,
		planners:             conf.NewPlanners(conf.Clock),
		fallback:             conf.NewFallback(conf.Clock),
		hypotheticalPlanners: conf.NewPlanners(conf.Clock),
		hypotheticalFallback: conf.NewFallback(conf.Clock),
	}
}

// RobotID is the robot this scheduler plans for.
func (rs *RobotScheduler) RobotID() int {
	return rs.robotID
}

// SetBallSense records the latest break-beam reading of the robot.
func (rs *RobotScheduler) SetBallSense(hasBall bool) {
	rs.hasBallSense.Store(hasBall)
}

// MakeRequest builds the plan request for `intent` from a single snapshot of the global state.
func (rs *RobotScheduler) MakeRequest(intent planning.RobotIntent) planning.PlanRequest {
	return rs.makeRequest(rs.state.Snapshot(), intent)
}

func (rs *RobotScheduler) makeRequest(snap *globalstate.Snapshot, intent planning.RobotIntent) planning.PlanRequest {
	robot, _ := snap.World.Robot(rs.robotID)

	constraints := planning.DefaultConstraints()
	command := intent.Command
	switch override := snap.Overrides.MaxSpeed; {
	case override == 0:
		// A zero speed limit halts the robot in place.
		command = planning.EmptyCommand()
	case override < 0:
		constraints.MaxSpeed = rs.unlimitedSpeed
	default:
		constraints.MaxSpeed = override
	}

	virtual := intent.LocalObstacles.Clone()
	if snap.GoalieID != rs.robotID {
		virtual.AddSet(snap.DefAreaObstacles)
	}

	return planning.PlanRequest{
		Start: trajectory.RobotInstant{
			Pose:     robot.Pose,
			Velocity: robot.Velocity,
			Stamp:    robot.Timestamp,
		},
		Command:          command,
		Constraints:      constraints,
		RealObstacles:    snap.GlobalObstacles.Clone(),
		VirtualObstacles: virtual,
		RobotID:          rs.robotID,
		World:            snap.World,
		Priority:         intent.Priority,
		HasBallSense:     rs.hasBallSense.Load(),
		MinDistFromBall:  snap.Overrides.MinDistFromBall,
		DribblerSpeed:    math.Min(intent.DribblerSpeed, snap.Overrides.MaxDribblerSpeed),
	}
}

// RobotAlive reports whether the robot is visible and perception is recent enough to plan on.
func (rs *RobotScheduler) RobotAlive() bool {
	return rs.robotAlive(rs.state.Snapshot())
}

func (rs *RobotScheduler) robotAlive(snap *globalstate.Snapshot) bool {
	robot, ok := snap.World.Robot(rs.robotID)
	if !ok || !robot.Visible {
		return false
	}
	return rs.clock.Now().Before(snap.World.LastUpdated.Add(rs.perceptionTimeout))
}

// ExecuteIntent runs one planning cycle for `intent` and publishes its output. Nothing is
// published when the robot is not alive. Liveness and the plan request come from the same
// snapshot.
func (rs *RobotScheduler) ExecuteIntent(ctx context.Context, intent planning.RobotIntent) {
	snap := rs.state.Snapshot()
	if !rs.robotAlive(snap) {
		rs.metrics.skippedStale(rs.robotID)
		rs.logger.CDebugw(ctx, "skipping planning cycle, robot not alive")
		return
	}

	req := rs.makeRequest(snap, intent)
	traj := rs.SafePlan(req)

	rs.mu.Lock()
	rs.lastTrajectory = &traj
	plannerName := rs.active.Name()
	rs.mu.Unlock()
	rs.metrics.planned(rs.robotID, plannerName)

	if err := rs.publisher.PublishTrajectory(ctx, rs.robotID, traj); err != nil {
		rs.metrics.publishFailed(rs.robotID, "trajectory")
		rs.logger.CWarnw(ctx, "failed to publish trajectory", "error", err)
	}
	setpoint := planning.ManipulatorSetpoint{
		RobotID:       rs.robotID,
		ShootMode:     intent.ShootMode,
		TriggerMode:   intent.TriggerMode,
		KickSpeed:     intent.KickSpeed,
		DribblerSpeed: req.DribblerSpeed,
	}
	if err := rs.publisher.PublishSetpoint(ctx, setpoint); err != nil {
		rs.metrics.publishFailed(rs.robotID, "setpoint")
		rs.logger.CWarnw(ctx, "failed to publish manipulator setpoint", "error", err)
	}
}

// UnsafePlan plans with the planner named by the request's command and validates the result.
// The looked-up planner becomes the active planner even when planning fails.
func (rs *RobotScheduler) UnsafePlan(req planning.PlanRequest) (trajectory.Trajectory, error) {
	planner, ok := rs.planners.Lookup(req.Command.Name)
	if !ok {
		return trajectory.Trajectory{}, &planning.UnknownPlannerError{RobotID: rs.robotID, Name: req.Command.Name}
	}
	rs.setActive(planner)
	return planAndValidate(planner, req)
}

func planAndValidate(planner planning.Planner, req planning.PlanRequest) (trajectory.Trajectory, error) {
	traj := planner.Plan(req)
	if traj.Empty() {
		planner.Reset()
		return trajectory.Trajectory{}, &planning.PlannerProducedEmptyTrajectoryError{
			RobotID: req.RobotID,
			Planner: planner.Name(),
		}
	}
	if !traj.AnglesValid() {
		return trajectory.Trajectory{}, &planning.InvalidAngleProfileError{RobotID: req.RobotID, Planner: planner.Name()}
	}
	if _, ok := traj.TimeCreated(); !ok {
		return trajectory.Trajectory{}, &planning.MissingTimestampError{RobotID: req.RobotID, Planner: planner.Name()}
	}
	return traj, nil
}

// SafePlan plans like UnsafePlan but recovers from any planner failure by switching to the
// fallback planner. It always returns a usable trajectory.
func (rs *RobotScheduler) SafePlan(req planning.PlanRequest) trajectory.Trajectory {
	traj, err := rs.UnsafePlan(req)
	if err == nil {
		return traj
	}
	reason := failureReason(err)
	rs.metrics.fellBack(rs.robotID, reason)
	if planning.IsUnknownPlanner(err) {
		rs.logger.Errorw("no planner for motion command, falling back", "error", err)
	} else {
		rs.logger.Warnw("planning failed, falling back", "error", err)
	}

	rs.setActive(rs.fallback)
	return rs.planFallback(rs.fallback, req)
}

// planFallback plans with a failure-free planner. A fallback that fails anyway yields a hold at
// the current pose.
func (rs *RobotScheduler) planFallback(fallback planning.Planner, req planning.PlanRequest) trajectory.Trajectory {
	traj, err := planAndValidate(fallback, req)
	if err != nil {
		rs.logger.Errorw("fallback planner failed, holding position", "error", err)
		return trajectory.Hold(req.Start, rs.clock.Now())
	}
	return traj
}

func failureReason(err error) string {
	var empty *planning.PlannerProducedEmptyTrajectoryError
	var angles *planning.InvalidAngleProfileError
	var stamp *planning.MissingTimestampError
	switch {
	case planning.IsUnknownPlanner(err):
		return "unknown_planner"
	case errors.As(err, &empty):
		return "empty_trajectory"
	case errors.As(err, &angles):
		return "invalid_angles"
	case errors.As(err, &stamp):
		return "missing_timestamp"
	default:
		return "other"
	}
}

func (rs *RobotScheduler) setActive(planner planning.Planner) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.active = planner
}

// IsDone reports whether the active planner finished its motion. It is false until a planner
// has been activated.
func (rs *RobotScheduler) IsDone() bool {
	rs.mu.Lock()
	active := rs.active
	rs.mu.Unlock()
	if active == nil {
		return false
	}
	return active.IsDone()
}

// ActivePlanner is the name of the active planner, empty when none is active.
func (rs *RobotScheduler) ActivePlanner() string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.active == nil {
		return ""
	}
	return rs.active.Name()
}

// BeginGoal forgets the progress of the previous goal so that completion of one goal is never
// reported for the next.
func (rs *RobotScheduler) BeginGoal() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, name := range rs.planners.Names() {
		p, _ := rs.planners.Lookup(name)
		p.Reset()
	}
	rs.fallback.Reset()
	rs.active = nil
}

// TimeLeft is how long until the end of the last published trajectory, clamped at zero. It
// returns false when nothing was published yet.
func (rs *RobotScheduler) TimeLeft() (time.Duration, bool) {
	rs.mu.Lock()
	last := rs.lastTrajectory
	rs.mu.Unlock()
	if last == nil {
		return 0, false
	}
	left := last.EndTime().Sub(rs.clock.Now())
	if left < 0 {
		left = 0
	}
	return left, true
}

// LastTrajectory is the last trajectory published for the robot.
func (rs *RobotScheduler) LastTrajectory() (trajectory.Trajectory, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.lastTrajectory == nil {
		return trajectory.Trajectory{}, false
	}
	return *rs.lastTrajectory, true
}

// PlanHypothetical estimates how long `intent` would take from the current state without
// publishing anything or disturbing the live planners.
func (rs *RobotScheduler) PlanHypothetical(intent planning.RobotIntent) (time.Duration, error) {
	req := rs.MakeRequest(intent)

	rs.hypotheticalMu.Lock()
	defer rs.hypotheticalMu.Unlock()

	planner, ok := rs.hypotheticalPlanners.Lookup(req.Command.Name)
	if !ok {
		return 0, &planning.UnknownPlannerError{RobotID: rs.robotID, Name: req.Command.Name}
	}
	defer planner.Reset()
	traj, err := planAndValidate(planner, req)
	if err != nil {
		rs.logger.Debugw("hypothetical plan failed, estimating with fallback", "error", err)
		defer rs.hypotheticalFallback.Reset()
		traj = rs.planFallback(rs.hypotheticalFallback, req)
	}
	return traj.Duration(), nil
}

func (rs *RobotScheduler) String() string {
	return fmt.Sprintf("robot_%d", rs.robotID)
}
