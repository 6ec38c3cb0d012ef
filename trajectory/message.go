package trajectory

import (
	"time"

	"github.com/pkg/errors"

	"github.com/sslcore/planner/geometry"
)

// InstantMsg is one sample of a published trajectory. Offset is relative to the first instant.
type InstantMsg struct {
	Pose     geometry.Pose  `json:"pose"`
	Velocity geometry.Twist `json:"velocity"`
	Offset   time.Duration  `json:"offset_ns"`
}

// Msg is the wire form of a Trajectory.
type Msg struct {
	RobotID   int          `json:"robot_id"`
	StartTime time.Time    `json:"start_time"`
	Created   time.Time    `json:"created"`
	Instants  []InstantMsg `json:"instants"`
}

// ErrCannotSerialize is returned when converting a trajectory that did not come from a
// successful plan.
var ErrCannotSerialize = errors.New("cannot serialize trajectory with invalid angles or no timestamp")

// Message converts the trajectory for publishing.
func (t Trajectory) Message(robotID int) (Msg, error) {
	created, ok := t.TimeCreated()
	if !ok || !t.anglesValid {
		return Msg{}, ErrCannotSerialize
	}
	msg := Msg{
		RobotID:   robotID,
		StartTime: t.StartTime(),
		Created:   created,
		Instants:  make([]InstantMsg, 0, len(t.instants)),
	}
	for _, instant := range t.instants {
		msg.Instants = append(msg.Instants, InstantMsg{
			Pose:     instant.Pose,
			Velocity: instant.Velocity,
			Offset:   instant.Stamp.Sub(msg.StartTime),
		})
	}
	return msg, nil
}

// FromMessage rebuilds a Trajectory from its wire form.
func FromMessage(msg Msg) Trajectory {
	instants := make([]RobotInstant, 0, len(msg.Instants))
	for _, instant := range msg.Instants {
		instants = append(instants, RobotInstant{
			Pose:     instant.Pose,
			Velocity: instant.Velocity,
			Stamp:    msg.StartTime.Add(instant.Offset),
		})
	}
	t := Trajectory{instants: instants, anglesValid: true}
	t.Stamp(msg.Created)
	return t
}
