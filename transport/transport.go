// Package transport delivers planner output to consumers and planner input from clients. Every
// publisher in this package satisfies scheduler.Publisher.
package transport

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/sslcore/planner/planning"
	"github.com/sslcore/planner/scheduler"
	"github.com/sslcore/planner/trajectory"
)

// Topic roots. Robot topics append ".<robot id>".
const (
	TrajectoryTopicRoot = "planning.trajectory"
	SetpointTopicRoot   = "control.manipulator_setpoint"
	RobotMoveTopicRoot  = "planning.robot_move"
	cancelSuffix        = "cancel"
)

// TrajectoryTopic is where trajectories of `robotID` are published.
func TrajectoryTopic(robotID int) string {
	return fmt.Sprintf("%s.%d", TrajectoryTopicRoot, robotID)
}

// SetpointTopic is where manipulator setpoints of `robotID` are published.
func SetpointTopic(robotID int) string {
	return fmt.Sprintf("%s.%d", SetpointTopicRoot, robotID)
}

// RobotMoveTopic is where move requests for `robotID` are received.
func RobotMoveTopic(robotID int) string {
	return fmt.Sprintf("%s.%d", RobotMoveTopicRoot, robotID)
}

// RobotCancelTopic is where cancel requests for `robotID` are received.
func RobotCancelTopic(robotID int) string {
	return fmt.Sprintf("%s.%d.%s", RobotMoveTopicRoot, robotID, cancelSuffix)
}

// robotIDFromTopic extracts the robot id following `root` in `topic`.
func robotIDFromTopic(root, topic string) (int, error) {
	rest, ok := strings.CutPrefix(topic, root+".")
	if !ok {
		return 0, errors.Errorf("topic %q is not under %q", topic, root)
	}
	rest, _ = strings.CutSuffix(rest, "."+cancelSuffix)
	robotID, err := strconv.Atoi(rest)
	if err != nil {
		return 0, errors.Wrapf(err, "topic %q has no robot id", topic)
	}
	return robotID, nil
}

// Publishers fans every publish out to all of its members.
type Publishers []scheduler.Publisher

var _ scheduler.Publisher = Publishers(nil)

// PublishTrajectory publishes to every member and combines their errors.
func (ps Publishers) PublishTrajectory(ctx context.Context, robotID int, traj trajectory.Trajectory) error {
	var errs error
	for _, p := range ps {
		errs = multierr.Append(errs, p.PublishTrajectory(ctx, robotID, traj))
	}
	return errs
}

// PublishSetpoint publishes to every member and combines their errors.
func (ps Publishers) PublishSetpoint(ctx context.Context, setpoint planning.ManipulatorSetpoint) error {
	var errs error
	for _, p := range ps {
		errs = multierr.Append(errs, p.PublishSetpoint(ctx, setpoint))
	}
	return errs
}
