package planning_test

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/sslcore/planner/geometry"
	"github.com/sslcore/planner/planning"
	"github.com/sslcore/planner/trajectory"
)

type namedPlanner struct {
	name string
}

func (p namedPlanner) Name() string                                    { return p.name }
func (p namedPlanner) Plan(planning.PlanRequest) trajectory.Trajectory { return trajectory.Trajectory{} }
func (p namedPlanner) Reset()                                          {}
func (p namedPlanner) IsDone() bool                                    { return false }

func TestRegistry(t *testing.T) {
	reg := planning.NewRegistry(namedPlanner{"path_target"}, namedPlanner{"idle"}, namedPlanner{"pivot"})
	test.That(t, reg.Names(), test.ShouldResemble, []string{"idle", "path_target", "pivot"})
	test.That(t, reg.Has("pivot"), test.ShouldBeTrue)

	p, ok := reg.Lookup("idle")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p.Name(), test.ShouldEqual, "idle")

	_, ok = reg.Lookup("line_kick")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestMotionCommandJSON(t *testing.T) {
	var intent planning.RobotIntent
	err := json.Unmarshal([]byte(`{
		"robot_id": 2,
		"motion_command": {
			"name": "path_target",
			"params": {"target": {"position": {"X": 1.5, "Y": 2}, "heading": 0.5}, "target_speed": "1.2"}
		},
		"shoot_mode": "chip",
		"dribbler_speed": 0.4,
		"local_obstacles": [{"type": "circle", "x": 1, "y": 1, "r": 0.2}]
	}`), &intent)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, intent.RobotID, test.ShouldEqual, 2)
	test.That(t, intent.ShootMode, test.ShouldEqual, planning.ShootModeChip)
	test.That(t, intent.LocalObstacles.Len(), test.ShouldEqual, 1)
	test.That(t, intent.Command.Name, test.ShouldEqual, planning.PathTargetCommand)

	params, ok := intent.Command.Params.(planning.PathTargetParams)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, params.Target, test.ShouldResemble, geometry.NewPose(1.5, 2, 0.5))
	test.That(t, params.TargetSpeed, test.ShouldEqual, 1.2)

	data, err := json.Marshal(intent.Command)
	test.That(t, err, test.ShouldBeNil)
	var again planning.MotionCommand
	test.That(t, json.Unmarshal(data, &again), test.ShouldBeNil)
	test.That(t, again, test.ShouldResemble, intent.Command)
}

func TestDecodeMotionCommand(t *testing.T) {
	cmd, err := planning.DecodeMotionCommand(planning.GoalieIdleCommand, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmd, test.ShouldResemble, planning.MotionCommand{Name: planning.GoalieIdleCommand})

	// names without a decoder keep their raw parameters
	cmd, err = planning.DecodeMotionCommand("line_kick", map[string]any{"target": 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmd.Params, test.ShouldResemble, map[string]any{"target": 1})

	_, err = planning.DecodeMotionCommand(planning.PathTargetCommand, map[string]any{"bogus": true})
	test.That(t, err, test.ShouldNotBeNil)

	var mc planning.MotionCommand
	test.That(t, json.Unmarshal([]byte(`{"params": {}}`), &mc), test.ShouldNotBeNil)
}

func TestErrorPredicates(t *testing.T) {
	unknown := errors.Wrap(&planning.UnknownPlannerError{RobotID: 1, Name: "pivot"}, "planning")
	empty := &planning.PlannerProducedEmptyTrajectoryError{RobotID: 1, Planner: "path_target"}
	angles := &planning.InvalidAngleProfileError{RobotID: 1, Planner: "path_target"}
	stamp := &planning.MissingTimestampError{RobotID: 1, Planner: "path_target"}

	test.That(t, planning.IsUnknownPlanner(unknown), test.ShouldBeTrue)
	test.That(t, planning.IsUnknownPlanner(empty), test.ShouldBeFalse)
	test.That(t, planning.IsInvalidTrajectory(angles), test.ShouldBeTrue)
	test.That(t, planning.IsInvalidTrajectory(stamp), test.ShouldBeTrue)
	test.That(t, planning.IsInvalidTrajectory(empty), test.ShouldBeFalse)
	for _, err := range []error{unknown, empty, angles, stamp} {
		test.That(t, planning.IsPlannerFailure(err), test.ShouldBeTrue)
	}
	test.That(t, planning.IsPlannerFailure(errors.New("other")), test.ShouldBeFalse)
	test.That(t, unknown.Error(), test.ShouldContainSubstring, "<pivot> does not exist")
}

func TestRobotIntentValidate(t *testing.T) {
	var intent planning.RobotIntent
	test.That(t, json.Unmarshal([]byte(`{"robot_id": 1, "dribbler_speed": 0.3}`), &intent), test.ShouldBeNil)
	err := intent.Validate()
	test.That(t, errors.Is(err, planning.ErrInvalidIntent), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "robot 1")

	intent.Command = planning.EmptyCommand()
	test.That(t, intent.Validate(), test.ShouldBeNil)
}
