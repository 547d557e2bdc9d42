// Package robot owns the simulated robot's ground-truth pose and advances it
// toward a moving target once per tick.
package robot

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

const (
	// DefaultSpeed is the per-tick step cap in render units.
	DefaultSpeed = 2.5
	// DefaultPeriod is the nominal tick period at 100 ticks per second.
	DefaultPeriod = 10 * time.Millisecond
)

// Pose is the robot's ground-truth position and heading in render space.
// Heading is in radians, measured from +X toward +Y (screen down).
type Pose struct {
	Pos     r2.Vec
	Heading float64
}

// Delta is the motion between two poses, in render units and radians.
type Delta struct {
	D      r2.Vec
	DTheta float64
}

// Kinematics advances a single robot toward a target at a capped speed.
type Kinematics struct {
	pose   Pose
	last   Pose
	speed  float64
	period time.Duration
}

// Option customises a Kinematics at construction.
type Option func(*Kinematics)

// WithSpeed sets the per-tick step cap in render units.
func WithSpeed(speed float64) Option {
	return func(k *Kinematics) {
		if speed > 0 {
			k.speed = speed
		}
	}
}

// WithPeriod sets the nominal tick period the speed cap refers to.
func WithPeriod(period time.Duration) Option {
	return func(k *Kinematics) {
		if period > 0 {
			k.period = period
		}
	}
}

// New places the robot at start. The odometry reference starts at the same pose.
func New(start Pose, opts ...Option) *Kinematics {
	k := &Kinematics{
		pose:   start,
		last:   start,
		speed:  DefaultSpeed,
		period: DefaultPeriod,
	}
	for _, o := range opts {
		o(k)
	}
	return k
}

// StartPose is the conventional start: 10 units right of and below centre,
// heading 10 degrees.
func StartPose(center r2.Vec) Pose {
	return Pose{
		Pos:     r2.Add(center, r2.Vec{X: 10, Y: 10}),
		Heading: 10 * math.Pi / 180,
	}
}

// Pose returns the current pose.
func (k *Kinematics) Pose() Pose { return k.pose }

// Speed returns the per-tick step cap.
func (k *Kinematics) Speed() float64 { return k.speed }

// Period returns the nominal tick period.
func (k *Kinematics) Period() time.Duration { return k.period }

// Advance moves the robot one tick toward target. The step is the speed cap
// scaled by dt relative to the nominal period; a non-positive dt counts as one
// period. Once the target is within one step the robot stops translating and
// only turns to face it, which keeps it from jittering around the pointer.
func (k *Kinematics) Advance(target r2.Vec, dt time.Duration) Pose {
	step := k.speed
	if dt > 0 && dt != k.period {
		step = k.speed * float64(dt) / float64(k.period)
	}

	d := r2.Sub(target, k.pose.Pos)
	dist := r2.Norm(d)
	theta := math.Atan2(d.Y, d.X)
	if dist > step {
		k.pose.Pos = r2.Add(k.pose.Pos, r2.Vec{X: step * math.Cos(theta), Y: step * math.Sin(theta)})
	}
	k.pose.Heading = theta
	return k.pose
}

// Odometry returns the motion since the previous call (or since New) and
// moves the reference to the current pose. DTheta is wrapped into (-pi, pi].
func (k *Kinematics) Odometry() Delta {
	d := Delta{
		D:      r2.Sub(k.pose.Pos, k.last.Pos),
		DTheta: NormalizeAngle(k.pose.Heading - k.last.Heading),
	}
	k.last = k.pose
	return d
}

// NormalizeAngle wraps a into (-pi, pi].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
