package planning

import (
	"fmt"

	"github.com/pkg/errors"
)

// UnknownPlannerError is returned when no planner is registered under a motion command name.
// This is a configuration error rather than a planning failure.
type UnknownPlannerError struct {
	RobotID int
	Name    string
}

func (e *UnknownPlannerError) Error() string {
	return fmt.Sprintf("robot %d: motion command name <%s> does not exist", e.RobotID, e.Name)
}

// PlannerProducedEmptyTrajectoryError is returned when a planner failed to find a trajectory.
type PlannerProducedEmptyTrajectoryError struct {
	RobotID int
	Planner string
}

func (e *PlannerProducedEmptyTrajectoryError) Error() string {
	return fmt.Sprintf("robot %d: planner <%s> failed to create valid trajectory", e.RobotID, e.Planner)
}

// InvalidAngleProfileError is returned for a trajectory whose headings were never planned.
type InvalidAngleProfileError struct {
	RobotID int
	Planner string
}

func (e *InvalidAngleProfileError) Error() string {
	return fmt.Sprintf("robot %d: trajectory returned from <%s> has no angle profile", e.RobotID, e.Planner)
}

// MissingTimestampError is returned for a trajectory without a creation time.
type MissingTimestampError struct {
	RobotID int
	Planner string
}

func (e *MissingTimestampError) Error() string {
	return fmt.Sprintf("robot %d: trajectory returned from <%s> has no timestamp", e.RobotID, e.Planner)
}

// IsUnknownPlanner reports whether err is, or wraps, an UnknownPlannerError.
func IsUnknownPlanner(err error) bool {
	var target *UnknownPlannerError
	return errors.As(err, &target)
}

// IsInvalidTrajectory reports whether err describes a trajectory that came back malformed.
func IsInvalidTrajectory(err error) bool {
	var angles *InvalidAngleProfileError
	var stamp *MissingTimestampError
	return errors.As(err, &angles) || errors.As(err, &stamp)
}

// IsPlannerFailure reports whether err is one of the planner-level errors that the safe planning
// path recovers from.
func IsPlannerFailure(err error) bool {
	var empty *PlannerProducedEmptyTrajectoryError
	return errors.As(err, &empty) || IsInvalidTrajectory(err) || IsUnknownPlanner(err)
}
