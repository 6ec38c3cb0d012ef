package trajectory

import (
	"math"
	"time"

	"github.com/sslcore/planner/geometry"
)

// DefaultSampleInterval is the spacing between instants of generated profiles.
const DefaultSampleInterval = 50 * time.Millisecond

// trapezoid is a 1D rest-to-rest (or moving-to-rest) velocity profile.
type trapezoid struct {
	distance, v0, vPeak, accel, decel float64
	tAccel, tCruise, tDecel           float64
}

func newTrapezoid(distance, v0, maxSpeed, maxAccel float64) trapezoid {
	p := trapezoid{distance: distance, v0: math.Min(math.Max(v0, 0), maxSpeed), accel: maxAccel, decel: maxAccel}

	// Already too fast to stop within the distance at the nominal rate: brake harder.
	if stopping := p.v0 * p.v0 / (2 * maxAccel); stopping >= distance {
		p.vPeak = p.v0
		p.decel = p.v0 * p.v0 / (2 * distance)
		p.tDecel = p.v0 / p.decel
		return p
	}

	dAccel := (maxSpeed*maxSpeed - p.v0*p.v0) / (2 * maxAccel)
	dDecel := maxSpeed * maxSpeed / (2 * maxAccel)
	if dAccel+dDecel > distance {
		p.vPeak = math.Sqrt((2*maxAccel*distance + p.v0*p.v0) / 2)
		p.tAccel = (p.vPeak - p.v0) / maxAccel
		p.tDecel = p.vPeak / maxAccel
		return p
	}
	p.vPeak = maxSpeed
	p.tAccel = (maxSpeed - p.v0) / maxAccel
	p.tDecel = maxSpeed / maxAccel
	p.tCruise = (distance - dAccel - dDecel) / maxSpeed
	return p
}

func (p trapezoid) total() float64 {
	return p.tAccel + p.tCruise + p.tDecel
}

// sample returns the travelled distance and speed `t` seconds in.
func (p trapezoid) sample(t float64) (float64, float64) {
	switch {
	case t <= 0:
		return 0, p.v0
	case t < p.tAccel:
		return p.v0*t + 0.5*p.accel*t*t, p.v0 + p.accel*t
	}
	sAccel := p.v0*p.tAccel + 0.5*p.accel*p.tAccel*p.tAccel
	if t < p.tAccel+p.tCruise {
		return sAccel + p.vPeak*(t-p.tAccel), p.vPeak
	}
	sCruise := sAccel + p.vPeak*p.tCruise
	td := t - p.tAccel - p.tCruise
	if td >= p.tDecel {
		return p.distance, 0
	}
	return math.Min(sCruise+p.vPeak*td-0.5*p.decel*td*td, p.distance), p.vPeak - p.decel*td
}

// StraightLine samples a straight-line motion from `start` to `goal` that respects the speed and
// acceleration limits and ends at rest. Headings are blended from the start heading to the goal
// heading along the path. The result is stamped with `created` and has a valid angle profile.
// A non-positive speed or acceleration limit yields a single hold-position instant.
func StraightLine(start RobotInstant, goal geometry.Pose, maxSpeed, maxAccel float64, dt time.Duration, created time.Time) Trajectory {
	if dt <= 0 {
		dt = DefaultSampleInterval
	}
	delta := goal.Position.Sub(start.Pose.Position)
	distance := delta.Norm()
	headingDelta := geometry.NormalizeAngle(goal.Heading - start.Pose.Heading)
	if distance < 1e-6 || maxSpeed <= 0 || maxAccel <= 0 {
		return Hold(start, created)
	}
	dir := delta.Normalize()

	profile := newTrapezoid(distance, start.Velocity.Linear.Dot(dir), maxSpeed, maxAccel)
	total := profile.total()
	instants := make([]RobotInstant, 0, int(total/dt.Seconds())+2)
	for elapsed := 0.0; ; elapsed += dt.Seconds() {
		if elapsed > total {
			elapsed = total
		}
		s, v := profile.sample(elapsed)
		frac := s / distance
		instants = append(instants, RobotInstant{
			Pose: geometry.Pose{
				Position: start.Pose.Position.Add(dir.Mul(s)),
				Heading:  geometry.NormalizeAngle(start.Pose.Heading + headingDelta*frac),
			},
			Velocity: geometry.Twist{
				Linear:  dir.Mul(v),
				Angular: headingDelta * v / distance,
			},
			Stamp: start.Stamp.Add(time.Duration(elapsed * float64(time.Second))),
		})
		if elapsed >= total {
			break
		}
	}
	traj := New(instants)
	traj.MarkAnglesValid()
	traj.Stamp(created)
	return traj
}

// Hold is the degenerate trajectory that keeps the robot where `start` is, at rest.
func Hold(start RobotInstant, created time.Time) Trajectory {
	traj := New([]RobotInstant{{Pose: start.Pose, Stamp: start.Stamp}})
	traj.MarkAnglesValid()
	traj.Stamp(created)
	return traj
}
