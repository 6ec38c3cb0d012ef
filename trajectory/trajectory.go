// Package trajectory contains the time-stamped robot motion produced by planners.
package trajectory

import (
	"time"

	"github.com/sslcore/planner/geometry"
)

// RobotInstant is the state of a robot at one point in time.
type RobotInstant struct {
	Pose     geometry.Pose  `json:"pose"`
	Velocity geometry.Twist `json:"velocity"`
	Stamp    time.Time      `json:"stamp"`
}

// Trajectory is an ordered sequence of instants. A trajectory coming out of a successful plan is
// non-empty, has a valid angle profile and carries a creation time. An empty trajectory means the
// planner failed.
type Trajectory struct {
	instants    []RobotInstant
	created     *time.Time
	anglesValid bool
}

// New returns an unstamped trajectory over `instants` whose angle profile is not yet valid.
func New(instants []RobotInstant) Trajectory {
	owned := make([]RobotInstant, len(instants))
	copy(owned, instants)
	return Trajectory{instants: owned}
}

// MarkAnglesValid records that the headings of every instant have been planned.
func (t *Trajectory) MarkAnglesValid() {
	t.anglesValid = true
}

// Stamp sets the creation time.
func (t *Trajectory) Stamp(created time.Time) {
	t.created = &created
}

// Empty reports whether the trajectory has no instants.
func (t Trajectory) Empty() bool {
	return len(t.instants) == 0
}

// Len is the number of instants.
func (t Trajectory) Len() int {
	return len(t.instants)
}

// Instants returns a copy of the instants.
func (t Trajectory) Instants() []RobotInstant {
	out := make([]RobotInstant, len(t.instants))
	copy(out, t.instants)
	return out
}

// AnglesValid reports whether the angle profile is valid.
func (t Trajectory) AnglesValid() bool {
	return t.anglesValid
}

// TimeCreated returns the creation time, if the trajectory was stamped.
func (t Trajectory) TimeCreated() (time.Time, bool) {
	if t.created == nil {
		return time.Time{}, false
	}
	return *t.created, true
}

// First returns the first instant. It panics on an empty trajectory.
func (t Trajectory) First() RobotInstant {
	return t.instants[0]
}

// Last returns the final instant. It panics on an empty trajectory.
func (t Trajectory) Last() RobotInstant {
	return t.instants[len(t.instants)-1]
}

// StartTime is the stamp of the first instant, zero when empty.
func (t Trajectory) StartTime() time.Time {
	if t.Empty() {
		return time.Time{}
	}
	return t.First().Stamp
}

// EndTime is the stamp of the final instant, zero when empty.
func (t Trajectory) EndTime() time.Time {
	if t.Empty() {
		return time.Time{}
	}
	return t.Last().Stamp
}

// Duration is the time between the first and last instants.
func (t Trajectory) Duration() time.Duration {
	if t.Empty() {
		return 0
	}
	return t.EndTime().Sub(t.StartTime())
}
