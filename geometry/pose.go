// Package geometry defines the planar poses, velocities and obstacle shapes the planner reasons
// about. Positions are in meters on the field plane, headings in radians.
package geometry

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

// Pose is a position on the field plus a heading.
type Pose struct {
	Position r2.Point `json:"position"`
	Heading  float64  `json:"heading"`
}

// NewPose returns the pose at (x, y) facing `heading`.
func NewPose(x, y, heading float64) Pose {
	return Pose{Position: r2.Point{X: x, Y: y}, Heading: heading}
}

// DistanceTo is the euclidean distance between the two positions.
func (p Pose) DistanceTo(other Pose) float64 {
	return p.Position.Sub(other.Position).Norm()
}

func (p Pose) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3frad)", p.Position.X, p.Position.Y, p.Heading)
}

// Twist is a planar velocity.
type Twist struct {
	Linear  r2.Point `json:"linear"`
	Angular float64  `json:"angular"`
}

// Speed is the magnitude of the linear velocity.
func (t Twist) Speed() float64 {
	return t.Linear.Norm()
}

// IsZero reports whether the twist is stationary.
func (t Twist) IsZero() bool {
	return t.Linear.X == 0 && t.Linear.Y == 0 && t.Angular == 0
}

// NormalizeAngle wraps an angle into (-pi, pi].
func NormalizeAngle(angle float64) float64 {
	angle = math.Mod(angle, 2*math.Pi)
	if angle <= -math.Pi {
		angle += 2 * math.Pi
	} else if angle > math.Pi {
		angle -= 2 * math.Pi
	}
	return angle
}
