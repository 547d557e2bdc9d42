// Package sensor simulates the robot's three distance sensors by casting rays
// from the robot against the arena walls.
package sensor

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Garsondee/Robot-Sense/internal/robot"
	"github.com/Garsondee/Robot-Sense/internal/world"
)

// fallbackReach is how far along the ray the fallback endpoint is placed when
// no wall is hit.
const fallbackReach = 1000

// Beam names one of the three mounted sensors. The value doubles as the
// protocol keyword for its reading.
type Beam string

const (
	Front Beam = "front"
	Left  Beam = "left"
	Right Beam = "right"
)

// Beams lists the sensors in the order their readings are sent.
var Beams = [3]Beam{Front, Left, Right}

// Offset returns the beam's heading relative to the robot heading. Render
// space has Y down, so "left" is a negative turn.
func (b Beam) Offset() float64 {
	switch b {
	case Left:
		return -math.Pi / 2
	case Right:
		return math.Pi / 2
	default:
		return 0
	}
}

// Reading is one ray cast result.
type Reading struct {
	Beam Beam
	// End is the wall impact point in render space.
	End r2.Vec
	// RenderDistance is the ray length in render units.
	RenderDistance float64
	// Distance is the ray length in physical units.
	Distance float64
	// Fallback is set when no wall was hit and End is a far point along the ray.
	Fallback bool
}

// Model casts rays against the arena of a world.
type Model struct {
	world *world.World
}

// New returns a sensor model bound to w.
func New(w *world.World) *Model {
	return &Model{world: w}
}

// Cast sends a ray from origin along heading and returns the closest wall hit.
func (m *Model) Cast(origin r2.Vec, heading float64) Reading {
	end, t, ok := castToBounds(origin, heading, m.world.Width(), m.world.Height())
	r := Reading{End: end, RenderDistance: t, Fallback: !ok}
	r.Distance = m.world.ToPhysical(t)
	return r
}

// Scan casts all three beams from pose, in Beams order.
func (m *Model) Scan(pose robot.Pose) [3]Reading {
	var out [3]Reading
	for i, b := range Beams {
		out[i] = m.Cast(pose.Pos, pose.Heading+b.Offset())
		out[i].Beam = b
	}
	return out
}

// castToBounds intersects the ray origin + t*(cos h, sin h), t > 0, with the
// four walls of the [0,w]x[0,h] rectangle and returns the closest hit. The
// bool is false when nothing was hit; the point is then fallbackReach along the
// ray and t is fallbackReach.
func castToBounds(origin r2.Vec, heading, w, h float64) (r2.Vec, float64, bool) {
	dx, dy := math.Cos(heading), math.Sin(heading)

	best := math.Inf(1)
	var hit r2.Vec

	consider := func(t, x, y float64) {
		if t > 0 && t < best {
			best = t
			hit = r2.Vec{X: x, Y: y}
		}
	}

	// Vertical walls x=0 and x=w.
	if dx != 0 {
		for _, wallX := range [2]float64{0, w} {
			t := (wallX - origin.X) / dx
			y := origin.Y + t*dy
			if y >= 0 && y <= h {
				consider(t, wallX, y)
			}
		}
	}
	// Horizontal walls y=0 and y=h.
	if dy != 0 {
		for _, wallY := range [2]float64{0, h} {
			t := (wallY - origin.Y) / dy
			x := origin.X + t*dx
			if x >= 0 && x <= w {
				consider(t, x, wallY)
			}
		}
	}

	if math.IsInf(best, 1) {
		return r2.Vec{X: origin.X + dx*fallbackReach, Y: origin.Y + dy*fallbackReach}, fallbackReach, false
	}
	return hit, best, true
}
