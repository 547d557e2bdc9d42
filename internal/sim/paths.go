package sim

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Garsondee/Robot-Sense/internal/world"
)

// Scripted paths for headless runs.
const (
	PathCircle = "circle"
	PathSquare = "square"
	PathStill  = "still"
)

// Paths lists the names accepted by PathByName.
var Paths = []string{PathCircle, PathSquare, PathStill}

// CirclePath moves the target around a circle, one lap per ticksPerLap.
func CirclePath(center r2.Vec, radius float64, ticksPerLap int) TargetFunc {
	if ticksPerLap <= 0 {
		ticksPerLap = 1
	}
	return func(tick int) r2.Vec {
		a := 2 * math.Pi * float64(tick%ticksPerLap) / float64(ticksPerLap)
		return r2.Add(center, r2.Vec{X: radius * math.Cos(a), Y: radius * math.Sin(a)})
	}
}

// SquarePath visits the corners of a square around center, dwelling
// ticksPerSide ticks on each.
func SquarePath(center r2.Vec, half float64, ticksPerSide int) TargetFunc {
	if ticksPerSide <= 0 {
		ticksPerSide = 1
	}
	corners := [4]r2.Vec{
		{X: center.X + half, Y: center.Y - half},
		{X: center.X + half, Y: center.Y + half},
		{X: center.X - half, Y: center.Y + half},
		{X: center.X - half, Y: center.Y - half},
	}
	return func(tick int) r2.Vec {
		return corners[(tick/ticksPerSide)%len(corners)]
	}
}

// PathByName builds a named path sized to w. Circles and squares use a third
// of the arena so that all three beams keep hitting walls at varied ranges.
func PathByName(name string, w *world.World) (TargetFunc, error) {
	c := w.Center()
	r := math.Min(w.Width(), w.Height()) / 3
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PathCircle:
		return CirclePath(c, r, 1200), nil
	case PathSquare:
		return SquarePath(c, r, 300), nil
	case PathStill:
		return func(int) r2.Vec { return c }, nil
	default:
		return nil, errors.Errorf("unknown path %q (want one of %s)", name, strings.Join(Paths, ", "))
	}
}
