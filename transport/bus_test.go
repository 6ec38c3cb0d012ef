package transport

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/sslcore/planner/geometry"
	"github.com/sslcore/planner/planning"
	"github.com/sslcore/planner/trajectory"
)

func testTrajectory() trajectory.Trajectory {
	start := trajectory.RobotInstant{
		Pose:  geometry.NewPose(0, 0, 0),
		Stamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	return trajectory.StraightLine(start, geometry.NewPose(1, 0, 0), 2, 2, trajectory.DefaultSampleInterval, start.Stamp)
}

func TestBusLatches(t *testing.T) {
	bus := NewBus()
	_, ok := bus.Latest("a")
	test.That(t, ok, test.ShouldBeFalse)

	early := bus.Subscribe("a", 4)
	defer early.Close()
	bus.Publish("a", 1)
	bus.Publish("a", 2)
	test.That(t, <-early.C, test.ShouldEqual, 1)
	test.That(t, <-early.C, test.ShouldEqual, 2)

	late := bus.Subscribe("a", 4)
	defer late.Close()
	test.That(t, <-late.C, test.ShouldEqual, 2)

	latest, ok := bus.Latest("a")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, latest, test.ShouldEqual, 2)

	other := bus.Subscribe("b", 1)
	defer other.Close()
	select {
	case v := <-other.C:
		t.Fatalf("unexpected value %v", v)
	default:
	}
}

func TestBusDropsOldest(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe("a", 2)
	for i := 0; i < 5; i++ {
		bus.Publish("a", i)
	}
	test.That(t, <-sub.C, test.ShouldEqual, 3)
	test.That(t, <-sub.C, test.ShouldEqual, 4)

	sub.Close()
	sub.Close()
	_, open := <-sub.C
	test.That(t, open, test.ShouldBeFalse)
	bus.Publish("a", 5)
}

func TestBusPublisher(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(TrajectoryTopic(3), 1)
	defer sub.Close()

	traj := testTrajectory()
	test.That(t, bus.PublishTrajectory(context.Background(), 3, traj), test.ShouldBeNil)
	msg, ok := bus.LatestTrajectory(3)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, msg.RobotID, test.ShouldEqual, 3)
	test.That(t, msg.Instants, test.ShouldHaveLength, traj.Len())
	test.That(t, (<-sub.C).(trajectory.Msg).RobotID, test.ShouldEqual, 3)

	_, ok = bus.LatestTrajectory(2)
	test.That(t, ok, test.ShouldBeFalse)

	err := bus.PublishTrajectory(context.Background(), 3, trajectory.New(nil))
	test.That(t, errors.Is(err, trajectory.ErrCannotSerialize), test.ShouldBeTrue)

	setpoint := planning.ManipulatorSetpoint{RobotID: 3, KickSpeed: 2, DribblerSpeed: 0.3}
	test.That(t, bus.PublishSetpoint(context.Background(), setpoint), test.ShouldBeNil)
	got, ok := bus.LatestSetpoint(3)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, got, test.ShouldResemble, setpoint)
}

type failingPublisher struct{ err error }

func (fp failingPublisher) PublishTrajectory(context.Context, int, trajectory.Trajectory) error {
	return fp.err
}

func (fp failingPublisher) PublishSetpoint(context.Context, planning.ManipulatorSetpoint) error {
	return fp.err
}

func TestPublishersFanOut(t *testing.T) {
	bus1, bus2 := NewBus(), NewBus()
	pubs := Publishers{bus1, failingPublisher{errors.New("offline")}, bus2}

	err := pubs.PublishTrajectory(context.Background(), 0, testTrajectory())
	test.That(t, err, test.ShouldBeError, "offline")
	_, ok := bus1.LatestTrajectory(0)
	test.That(t, ok, test.ShouldBeTrue)
	_, ok = bus2.LatestTrajectory(0)
	test.That(t, ok, test.ShouldBeTrue)

	err = pubs.PublishSetpoint(context.Background(), planning.ManipulatorSetpoint{RobotID: 1})
	test.That(t, err, test.ShouldBeError, "offline")
	_, ok = bus2.LatestSetpoint(1)
	test.That(t, ok, test.ShouldBeTrue)

	test.That(t, Publishers{bus1}.PublishSetpoint(context.Background(), planning.ManipulatorSetpoint{}), test.ShouldBeNil)
}

func TestTopics(t *testing.T) {
	test.That(t, TrajectoryTopic(2), test.ShouldEqual, "planning.trajectory.2")
	test.That(t, SetpointTopic(2), test.ShouldEqual, "control.manipulator_setpoint.2")
	test.That(t, RobotMoveTopic(2), test.ShouldEqual, "planning.robot_move.2")
	test.That(t, RobotCancelTopic(2), test.ShouldEqual, "planning.robot_move.2.cancel")

	id, err := robotIDFromTopic(RobotMoveTopicRoot, RobotMoveTopic(11))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, id, test.ShouldEqual, 11)
	id, err = robotIDFromTopic(RobotMoveTopicRoot, RobotCancelTopic(4))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, id, test.ShouldEqual, 4)

	_, err = robotIDFromTopic(RobotMoveTopicRoot, "planning.robot_move.x")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = robotIDFromTopic(RobotMoveTopicRoot, "planning.trajectory.1")
	test.That(t, err, test.ShouldNotBeNil)
}
