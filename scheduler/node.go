// Package scheduler runs per-robot planning loops: admitting goals, planning each cycle with
// fallbacks, and publishing the resulting trajectories.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/sslcore/planner/globalstate"
	"github.com/sslcore/planner/logging"
	"github.com/sslcore/planner/planning"
	"github.com/sslcore/planner/trajectory"
)

var (
	// ErrUnknownRobot is returned for a robot id outside of the configured range.
	ErrUnknownRobot = errors.New("unknown robot")
	// ErrNodeClosed is returned once the node has been closed.
	ErrNodeClosed = errors.New("scheduler node closed")
)

// Node owns one RobotScheduler and one Admission per robot.
type Node struct {
	conf       Config
	state      *globalstate.State
	logger     logging.Logger
	robots     []*RobotScheduler
	admissions []*Admission

	cancelCtx  context.Context
	cancelFunc context.CancelFunc
	// startMu orders goal loop starts against Close so that Close waits for every started loop.
	startMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewNode creates the schedulers of every robot. Robot loggers are named robot_<id> under
// `logger`.
func NewNode(conf Config, state *globalstate.State, publisher Publisher, logger logging.Logger) (*Node, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	conf = conf.withDefaults()
	if state == nil {
		return nil, errors.New("global state is required")
	}
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}

	cancelCtx, cancelFunc := context.WithCancel(context.Background())
	n := &Node{
		conf:       conf,
		state:      state,
		logger:     logger,
		robots:     make([]*RobotScheduler, conf.NumRobots),
		admissions: make([]*Admission, conf.NumRobots),
		cancelCtx:  cancelCtx,
		cancelFunc: cancelFunc,
	}
	for id := 0; id < conf.NumRobots; id++ {
		robotLogger := n.robotLogger(id)
		n.robots[id] = NewRobotScheduler(id, conf, state, publisher, robotLogger)
		n.admissions[id] = NewAdmission(id, conf, n.robots[id], robotLogger)
	}
	logger.Infow("scheduler node started", "robots", conf.NumRobots, "control_rate_hz", conf.ControlRateHz)
	return n, nil
}

func (n *Node) robotLogger(id int) logging.Logger {
	subname := fmt.Sprintf("robot_%d", id)
	if n.conf.LogRegistry != nil {
		return n.conf.LogRegistry.Sublogger(n.logger, subname)
	}
	return n.logger.Sublogger(subname)
}

// NumRobots is the number of robots the node schedules.
func (n *Node) NumRobots() int {
	return len(n.robots)
}

// Robot returns the scheduler of `robotID`.
func (n *Node) Robot(robotID int) (*RobotScheduler, error) {
	if robotID < 0 || robotID >= len(n.robots) {
		return nil, errors.Wrapf(ErrUnknownRobot, "robot %d", robotID)
	}
	return n.robots[robotID], nil
}

// SubmitIntent admits `intent` for its robot, superseding the goal in flight, and blocks until
// the goal finishes. Ending ctx cancels the goal.
func (n *Node) SubmitIntent(ctx context.Context, intent planning.RobotIntent) (Result, error) {
	if n.closed.Load() {
		return Result{}, ErrNodeClosed
	}
	robot, err := n.Robot(intent.RobotID)
	if err != nil {
		return Result{}, err
	}
	if err := intent.Validate(); err != nil {
		return Result{}, err
	}
	if n.conf.StrictPlannerNames && !robot.planners.Has(intent.Command.Name) {
		return Result{}, &planning.UnknownPlannerError{RobotID: intent.RobotID, Name: intent.Command.Name}
	}

	admission := n.admissions[intent.RobotID]
	goal, err := admission.Submit(ctx, intent)
	if err != nil {
		return Result{}, errors.Wrap(err, "waiting for admission")
	}
	if err := n.start(admission, goal); err != nil {
		return goal.result, err
	}

	select {
	case <-goal.Done():
	case <-ctx.Done():
		goal.Cancel()
		<-goal.Done()
	}
	return goal.result, nil
}

// start runs the loop of an admitted goal unless the node is closed. A goal admitted after Close
// is finished as canceled on the caller's goroutine so that its robot is not left executing.
func (n *Node) start(admission *Admission, goal *Goal) error {
	n.startMu.Lock()
	defer n.startMu.Unlock()
	if n.closed.Load() {
		goal.Cancel()
		admission.Execute(n.cancelCtx, goal)
		return ErrNodeClosed
	}
	admission.Start(n.cancelCtx, goal)
	return nil
}

// Cancel cancels the goal in flight for `robotID`. It does nothing when the robot is idle.
func (n *Node) Cancel(robotID int) error {
	if _, err := n.Robot(robotID); err != nil {
		return err
	}
	n.admissions[robotID].Cancel()
	return nil
}

// PlanHypothetical estimates the time `intent` would take without executing it.
func (n *Node) PlanHypothetical(ctx context.Context, intent planning.RobotIntent) (time.Duration, error) {
	if n.closed.Load() {
		return 0, ErrNodeClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	robot, err := n.Robot(intent.RobotID)
	if err != nil {
		return 0, err
	}
	if err := intent.Validate(); err != nil {
		return 0, err
	}
	return robot.PlanHypothetical(intent)
}

// TimeLeft is the remaining time of the last trajectory published for `robotID`.
func (n *Node) TimeLeft(robotID int) (time.Duration, bool, error) {
	robot, err := n.Robot(robotID)
	if err != nil {
		return 0, false, err
	}
	left, ok := robot.TimeLeft()
	return left, ok, nil
}

// LastTrajectory is the last trajectory published for `robotID`.
func (n *Node) LastTrajectory(robotID int) (trajectory.Trajectory, bool, error) {
	robot, err := n.Robot(robotID)
	if err != nil {
		return trajectory.Trajectory{}, false, err
	}
	traj, ok := robot.LastTrajectory()
	return traj, ok, nil
}

// SetBallSense records the break-beam reading of `robotID`.
func (n *Node) SetBallSense(robotID int, hasBall bool) error {
	robot, err := n.Robot(robotID)
	if err != nil {
		return err
	}
	robot.SetBallSense(hasBall)
	return nil
}

// IsConnected reports whether the node is open and perception arrived within the perception
// timeout.
func (n *Node) IsConnected() bool {
	if n.closed.Load() {
		return false
	}
	received := n.state.LastWorldReceived()
	if received.IsZero() {
		return false
	}
	return n.conf.Clock.Since(received) < n.conf.PerceptionTimeout
}

// Close cancels every goal and waits for all goal loops to exit.
func (n *Node) Close() error {
	var err error
	n.closeOnce.Do(func() {
		n.startMu.Lock()
		n.closed.Store(true)
		n.cancelFunc()
		n.startMu.Unlock()
		for _, admission := range n.admissions {
			admission.Wait()
		}
		err = multierr.Combine(n.logger.Sync())
	})
	return err
}
