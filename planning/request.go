package planning

import (
	"github.com/sslcore/planner/geometry"
	"github.com/sslcore/planner/globalstate"
	"github.com/sslcore/planner/trajectory"
)

// RobotConstraints are the kinematic limits a planner must respect.
type RobotConstraints struct {
	MaxSpeed        float64 `json:"max_speed"`
	MaxAccel        float64 `json:"max_accel"`
	MaxAngularSpeed float64 `json:"max_angular_speed"`
	MaxAngularAccel float64 `json:"max_angular_accel"`
}

// DefaultConstraints returns the limits of a standard robot.
func DefaultConstraints() RobotConstraints {
	return RobotConstraints{
		MaxSpeed:        3.0,
		MaxAccel:        3.0,
		MaxAngularSpeed: 6.0,
		MaxAngularAccel: 12.0,
	}
}

// PlanRequest is everything a planner needs for one robot for one cycle. It is built fresh each
// cycle and borrows the world state of the snapshot it was built from.
type PlanRequest struct {
	Start       trajectory.RobotInstant
	Command     MotionCommand
	Constraints RobotConstraints
	// RealObstacles are permanent field obstacles.
	RealObstacles geometry.ShapeSet
	// VirtualObstacles are intent-local obstacles plus, for every robot but the goalie, the
	// defense areas.
	VirtualObstacles geometry.ShapeSet
	RobotID          int
	World            *globalstate.WorldState
	Priority         int
	HasBallSense     bool
	MinDistFromBall  float64
	DribblerSpeed    float64
}

// AllObstacles is the union of real and virtual obstacles.
func (req PlanRequest) AllObstacles() geometry.ShapeSet {
	all := req.RealObstacles.Clone()
	all.AddSet(req.VirtualObstacles)
	return all
}
