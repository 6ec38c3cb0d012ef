package scheduler

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"github.com/sslcore/planner/geometry"
	"github.com/sslcore/planner/globalstate"
	"github.com/sslcore/planner/logging"
	"github.com/sslcore/planner/planning"
)

func newTestNode(t *testing.T, modify func(*Config)) (*Node, *globalstate.State, *recordingPublisher) {
	t.Helper()
	clk := clock.New()
	state := globalstate.NewState(clk, testNumRobots)
	seedWorld(state)
	conf := testConfig(clk)
	conf.ControlRateHz = 500
	conf.PerceptionTimeout = time.Hour
	if modify != nil {
		modify(&conf)
	}
	pub := newRecordingPublisher()
	node, err := NewNode(conf, state, pub, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(func() { test.That(t, node.Close(), test.ShouldBeNil) })
	return node, state, pub
}

func TestNewNodeValidates(t *testing.T) {
	logger := logging.NewTestLogger(t)
	state := globalstate.NewState(nil, 1)

	conf := DefaultConfig()
	conf.ControlRateHz = -1
	_, err := NewNode(conf, state, newRecordingPublisher(), logger)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewNode(DefaultConfig(), nil, newRecordingPublisher(), logger)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewNode(DefaultConfig(), state, nil, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNodeUnknownRobot(t *testing.T) {
	node, _, _ := newTestNode(t, nil)
	test.That(t, node.NumRobots(), test.ShouldEqual, testNumRobots)

	for _, id := range []int{-1, testNumRobots} {
		_, err := node.SubmitIntent(context.Background(), intentFor(id, planning.IdleCommand))
		test.That(t, errors.Is(err, ErrUnknownRobot), test.ShouldBeTrue)
		test.That(t, errors.Is(node.Cancel(id), ErrUnknownRobot), test.ShouldBeTrue)
		_, _, err = node.TimeLeft(id)
		test.That(t, errors.Is(err, ErrUnknownRobot), test.ShouldBeTrue)
		_, err = node.PlanHypothetical(context.Background(), intentFor(id, planning.IdleCommand))
		test.That(t, errors.Is(err, ErrUnknownRobot), test.ShouldBeTrue)
		test.That(t, errors.Is(node.SetBallSense(id, true), ErrUnknownRobot), test.ShouldBeTrue)
	}
}

func TestNodeRejectsIntentWithoutCommand(t *testing.T) {
	node, _, pub := newTestNode(t, nil)

	var intent planning.RobotIntent
	test.That(t, json.Unmarshal([]byte(`{"robot_id": 1, "dribbler_speed": 0.3}`), &intent), test.ShouldBeNil)

	_, err := node.SubmitIntent(context.Background(), intent)
	test.That(t, errors.Is(err, planning.ErrInvalidIntent), test.ShouldBeTrue)
	_, err = node.PlanHypothetical(context.Background(), intent)
	test.That(t, errors.Is(err, planning.ErrInvalidIntent), test.ShouldBeTrue)
	test.That(t, pub.published(1), test.ShouldEqual, 0)
	_, ok, err := node.TimeLeft(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestNodeSubmitIntentSucceeds(t *testing.T) {
	node, _, pub := newTestNode(t, nil)

	result, err := node.SubmitIntent(context.Background(), intentFor(1, planning.IdleCommand))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Outcome, test.ShouldEqual, OutcomeSucceeded)
	test.That(t, result.IsDone, test.ShouldBeTrue)
	test.That(t, pub.published(1), test.ShouldEqual, 1)
	test.That(t, pub.published(0), test.ShouldEqual, 0)

	_, ok, err := node.TimeLeft(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	traj, ok, err := node.LastTrajectory(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, traj.Empty(), test.ShouldBeFalse)

	// A second idle goal must plan again rather than inherit the completed one.
	_, err = node.SubmitIntent(context.Background(), intentFor(1, planning.IdleCommand))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pub.published(1), test.ShouldEqual, 2)
}

func TestNodeSupersedes(t *testing.T) {
	node, _, pub := newTestNode(t, nil)

	first := make(chan Result, 1)
	go func() {
		result, err := node.SubmitIntent(context.Background(), intentFor(0, planning.GoalieIdleCommand))
		test.That(t, err, test.ShouldBeNil)
		first <- result
	}()
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, pub.published(0), test.ShouldBeGreaterThan, 1)
	})

	second, err := node.SubmitIntent(context.Background(), intentFor(0, planning.IdleCommand))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, second.Outcome, test.ShouldEqual, OutcomeSucceeded)
	test.That(t, (<-first).Outcome, test.ShouldEqual, OutcomeSuperseded)
}

func TestNodeRobotsRunIndependently(t *testing.T) {
	node, _, pub := newTestNode(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan Result, 1)
	go func() {
		result, err := node.SubmitIntent(ctx, intentFor(0, planning.GoalieIdleCommand))
		test.That(t, err, test.ShouldBeNil)
		done <- result
	}()

	result, err := node.SubmitIntent(context.Background(), intentFor(2, planning.IdleCommand))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Outcome, test.ShouldEqual, OutcomeSucceeded)

	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, pub.published(0), test.ShouldBeGreaterThan, 0)
	})
	cancel()
	test.That(t, (<-done).Outcome, test.ShouldEqual, OutcomeCanceled)
}

func TestNodeCancel(t *testing.T) {
	node, _, pub := newTestNode(t, nil)
	test.That(t, node.Cancel(2), test.ShouldBeNil)

	done := make(chan Result, 1)
	go func() {
		result, err := node.SubmitIntent(context.Background(), intentFor(2, planning.GoalieIdleCommand))
		test.That(t, err, test.ShouldBeNil)
		done <- result
	}()
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, pub.published(2), test.ShouldBeGreaterThan, 0)
	})
	test.That(t, node.Cancel(2), test.ShouldBeNil)
	result := <-done
	test.That(t, result.Outcome, test.ShouldEqual, OutcomeCanceled)
	test.That(t, result.IsDone, test.ShouldBeFalse)
}

func TestNodeStrictPlannerNames(t *testing.T) {
	node, _, pub := newTestNode(t, func(conf *Config) { conf.StrictPlannerNames = true })
	_, err := node.SubmitIntent(context.Background(), intentFor(0, "no_such_planner"))
	test.That(t, planning.IsUnknownPlanner(err), test.ShouldBeTrue)
	test.That(t, pub.published(0), test.ShouldEqual, 0)
}

func TestNodeUnknownPlannerFallsBack(t *testing.T) {
	node, _, pub := newTestNode(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	result, err := node.SubmitIntent(ctx, intentFor(0, "no_such_planner"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pub.published(0), test.ShouldBeGreaterThan, 0)
	if result.Outcome != OutcomeSucceeded {
		test.That(t, result.Outcome, test.ShouldEqual, OutcomeCanceled)
	}
	robot, err := node.Robot(0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, robot.ActivePlanner(), test.ShouldEqual, planning.EscapeObstaclesCommand)
}

func TestNodePlanHypothetical(t *testing.T) {
	node, _, pub := newTestNode(t, nil)

	intent := intentFor(1, planning.PathTargetCommand)
	intent.Command = planning.PathTarget(geometry.NewPose(3, 2, 0))
	estimate, err := node.PlanHypothetical(context.Background(), intent)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, estimate, test.ShouldBeGreaterThan, time.Second)
	test.That(t, pub.published(1), test.ShouldEqual, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = node.PlanHypothetical(ctx, intent)
	test.That(t, err, test.ShouldBeError, context.Canceled)
}

func TestNodeIsConnected(t *testing.T) {
	mock := clock.NewMock()
	state := globalstate.NewState(mock, testNumRobots)
	conf := testConfig(mock)
	node, err := NewNode(conf, state, newRecordingPublisher(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, node.IsConnected(), test.ShouldBeFalse)
	seedWorld(state)
	test.That(t, node.IsConnected(), test.ShouldBeTrue)
	mock.Add(testTimeout)
	test.That(t, node.IsConnected(), test.ShouldBeFalse)
	seedWorld(state)
	test.That(t, node.IsConnected(), test.ShouldBeTrue)

	test.That(t, node.Close(), test.ShouldBeNil)
	test.That(t, node.IsConnected(), test.ShouldBeFalse)
	test.That(t, node.Close(), test.ShouldBeNil)

	_, err = node.SubmitIntent(context.Background(), intentFor(0, planning.IdleCommand))
	test.That(t, err, test.ShouldEqual, ErrNodeClosed)
}

func TestNodeGoalAdmittedDuringClose(t *testing.T) {
	clk := clock.New()
	state := globalstate.NewState(clk, testNumRobots)
	seedWorld(state)
	conf := testConfig(clk)
	conf.PerceptionTimeout = time.Hour
	pub := newRecordingPublisher()
	node, err := NewNode(conf, state, pub, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	admission := node.admissions[2]
	goal, err := admission.Submit(context.Background(), intentFor(2, planning.GoalieIdleCommand))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, node.Close(), test.ShouldBeNil)

	test.That(t, node.start(admission, goal), test.ShouldEqual, ErrNodeClosed)
	result, err := goal.Wait(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Outcome, test.ShouldEqual, OutcomeCanceled)
	executing, _ := admission.TaskState()
	test.That(t, executing, test.ShouldBeFalse)
	test.That(t, pub.published(2), test.ShouldEqual, 0)
}

func TestNodeCloseWhileSubmitting(t *testing.T) {
	clk := clock.New()
	state := globalstate.NewState(clk, testNumRobots)
	seedWorld(state)
	conf := testConfig(clk)
	conf.ControlRateHz = 500
	conf.PerceptionTimeout = time.Hour
	node, err := NewNode(conf, state, newRecordingPublisher(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	var wg sync.WaitGroup
	errs := make(chan error, 30)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := node.SubmitIntent(context.Background(), intentFor(id%testNumRobots, planning.GoalieIdleCommand))
			errs <- err
		}(i)
	}
	test.That(t, node.Close(), test.ShouldBeNil)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			test.That(t, errors.Is(err, ErrNodeClosed), test.ShouldBeTrue)
		}
	}
	for _, admission := range node.admissions {
		executing, _ := admission.TaskState()
		test.That(t, executing, test.ShouldBeFalse)
	}
}

func TestNodeCloseCancelsGoals(t *testing.T) {
	clk := clock.New()
	state := globalstate.NewState(clk, testNumRobots)
	seedWorld(state)
	conf := testConfig(clk)
	conf.ControlRateHz = 500
	conf.PerceptionTimeout = time.Hour
	pub := newRecordingPublisher()
	node, err := NewNode(conf, state, pub, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	done := make(chan Result, 1)
	go func() {
		result, err := node.SubmitIntent(context.Background(), intentFor(1, planning.GoalieIdleCommand))
		test.That(t, err, test.ShouldBeNil)
		done <- result
	}()
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, pub.published(1), test.ShouldBeGreaterThan, 0)
	})
	test.That(t, node.Close(), test.ShouldBeNil)
	test.That(t, (<-done).Outcome, test.ShouldEqual, OutcomeCanceled)
}

func TestNodeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	node, _, _ := newTestNode(t, func(conf *Config) { conf.Metrics = NewMetrics(reg) })

	_, err := node.SubmitIntent(context.Background(), intentFor(1, planning.IdleCommand))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, testutil.ToFloat64(node.conf.Metrics.outcomes.WithLabelValues("1", "succeeded")), test.ShouldEqual, 1.)
	test.That(t, testutil.ToFloat64(node.conf.Metrics.plans.WithLabelValues("1", planning.IdleCommand)), test.ShouldEqual, 1.)

	robot, err := node.Robot(1)
	test.That(t, err, test.ShouldBeNil)
	robot.SafePlan(robot.MakeRequest(intentFor(1, stubEmpty)))
	test.That(t, testutil.ToFloat64(node.conf.Metrics.fallbacks.WithLabelValues("1", "empty_trajectory")), test.ShouldEqual, 1.)
}
