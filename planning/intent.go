package planning

import (
	"github.com/pkg/errors"

	"github.com/sslcore/planner/geometry"
)

// ShootMode selects the kicker.
type ShootMode string

// Shoot modes.
const (
	ShootModeKick ShootMode = "kick"
	ShootModeChip ShootMode = "chip"
)

// TriggerMode selects when the kicker fires.
type TriggerMode string

// Trigger modes.
const (
	TriggerStandDown   TriggerMode = "stand_down"
	TriggerImmediate   TriggerMode = "immediate"
	TriggerOnBreakBeam TriggerMode = "on_break_beam"
)

// RobotIntent is what strategy wants one robot to do this planning cycle. The scheduler treats
// it as immutable.
type RobotIntent struct {
	RobotID        int               `json:"robot_id"`
	Command        MotionCommand     `json:"motion_command"`
	ShootMode      ShootMode         `json:"shoot_mode,omitempty"`
	TriggerMode    TriggerMode       `json:"trigger_mode,omitempty"`
	KickSpeed      float64           `json:"kick_speed"`
	DribblerSpeed  float64           `json:"dribbler_speed"`
	Priority       int               `json:"priority"`
	LocalObstacles geometry.ShapeSet `json:"local_obstacles"`
}

// ErrInvalidIntent is wrapped by the errors of RobotIntent.Validate.
var ErrInvalidIntent = errors.New("invalid intent")

// Validate rejects an intent that does not name a motion command.
func (ri RobotIntent) Validate() error {
	if ri.Command.Name == "" {
		return errors.Wrapf(ErrInvalidIntent, "robot %d: no motion command", ri.RobotID)
	}
	return nil
}

// ManipulatorSetpoint is the kicker/dribbler command sent alongside a trajectory.
type ManipulatorSetpoint struct {
	RobotID       int         `json:"robot_id"`
	ShootMode     ShootMode   `json:"shoot_mode"`
	TriggerMode   TriggerMode `json:"trigger_mode"`
	KickSpeed     float64     `json:"kick_speed"`
	DribblerSpeed float64     `json:"dribbler_speed"`
}
