package globalstate

import (
	"time"

	"github.com/golang/geo/r2"

	"github.com/sslcore/planner/geometry"
)

// RobotState is the perceived state of one of our robots.
type RobotState struct {
	Pose      geometry.Pose  `json:"pose"`
	Velocity  geometry.Twist `json:"velocity"`
	Visible   bool           `json:"visible"`
	Timestamp time.Time      `json:"timestamp"`
}

// BallState is the perceived state of the ball.
type BallState struct {
	Position r2.Point `json:"position"`
	Velocity r2.Point `json:"velocity"`
	Visible  bool     `json:"visible"`
}

// WorldState is one perception update. It must not be mutated once handed to State.
type WorldState struct {
	OurRobots   []RobotState `json:"our_robots"`
	Ball        BallState    `json:"ball"`
	LastUpdated time.Time    `json:"last_updated"`
}

// Robot returns the state of robot `id`.
func (w *WorldState) Robot(id int) (RobotState, bool) {
	if w == nil || id < 0 || id >= len(w.OurRobots) {
		return RobotState{}, false
	}
	return w.OurRobots[id], true
}

// PlayState is the referee-driven game state.
type PlayState string

// Play states.
const (
	PlayStateHalt    PlayState = "halt"
	PlayStateStop    PlayState = "stop"
	PlayStateSetup   PlayState = "setup"
	PlayStateReady   PlayState = "ready"
	PlayStatePlaying PlayState = "playing"
	PlayStatePenalty PlayState = "penalty"
)

// GlobalOverride holds the coach's limits applied on top of every intent.
type GlobalOverride struct {
	// MaxSpeed of zero halts every robot; negative means unlimited.
	MaxSpeed         float64 `json:"max_speed"`
	MaxDribblerSpeed float64 `json:"max_dribbler_speed"`
	MinDistFromBall  float64 `json:"min_dist_from_ball"`
}

// DefaultOverride places no limits.
func DefaultOverride() GlobalOverride {
	return GlobalOverride{MaxSpeed: -1, MaxDribblerSpeed: 1, MinDistFromBall: 0}
}
