// Package world describes the rectangular arena the robot drives in and the
// fixed scale between render space (pixels, origin top-left, Y down) and the
// physical frame used by the localization engine (centred, Y up).
package world

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r2"
)

// Unit is the physical length unit spoken by the engine.
type Unit string

const (
	Meters Unit = "m"
	Inches Unit = "in"
)

// inchesPerMeter matches the engine's own conversion constant.
const inchesPerMeter = 39.3701

// PerMeter returns how many of u make up one meter.
func (u Unit) PerMeter() (float64, error) {
	switch u {
	case Meters, "":
		return 1, nil
	case Inches:
		return inchesPerMeter, nil
	default:
		return 0, errors.Errorf("unknown unit %q", string(u))
	}
}

// Config declares the arena extents. RenderHeight may differ from RenderWidth;
// both axes still share the scale derived from the width.
type Config struct {
	RenderWidth  float64
	RenderHeight float64
	// HalfWidthMeters is the wall-to-centre distance of the real arena.
	HalfWidthMeters float64
	Unit            Unit
}

// DefaultConfig is a 600px square window over a 12ft field, reported in inches
// (0.234 in per render unit). With Unit set to Meters the same arena gives
// 0.00594 m per render unit and a 600px ray measures 3.566 m.
func DefaultConfig() Config {
	return Config{
		RenderWidth:     600,
		RenderHeight:    600,
		HalfWidthMeters: 1.78308,
		Unit:            Inches,
	}
}

// World holds the arena bounds and the derived conversion factors. It is
// immutable after New.
type World struct {
	width  float64
	height float64
	unit   Unit

	// scale is physical units per render unit; pixelsPerUnit is its inverse.
	scale         float64
	pixelsPerUnit float64
}

// New validates cfg and derives the conversion factors.
func New(cfg Config) (*World, error) {
	if cfg.RenderWidth <= 0 || cfg.RenderHeight <= 0 {
		return nil, errors.Errorf("render extent must be positive, got %gx%g", cfg.RenderWidth, cfg.RenderHeight)
	}
	if cfg.HalfWidthMeters <= 0 {
		return nil, errors.Errorf("arena half width must be positive, got %g", cfg.HalfWidthMeters)
	}
	perMeter, err := cfg.Unit.PerMeter()
	if err != nil {
		return nil, err
	}
	unit := cfg.Unit
	if unit == "" {
		unit = Meters
	}
	physicalWidth := 2 * cfg.HalfWidthMeters * perMeter
	scale := physicalWidth / cfg.RenderWidth
	return &World{
		width:         cfg.RenderWidth,
		height:        cfg.RenderHeight,
		unit:          unit,
		scale:         scale,
		pixelsPerUnit: 1 / scale,
	}, nil
}

// Width returns the render-space width.
func (w *World) Width() float64 { return w.width }

// Height returns the render-space height.
func (w *World) Height() float64 { return w.height }

// Unit returns the physical unit of every value handed to or read from the engine.
func (w *World) Unit() Unit { return w.unit }

// Scale returns physical units per render unit.
func (w *World) Scale() float64 { return w.scale }

// PixelsPerUnit returns render units per physical unit.
func (w *World) PixelsPerUnit() float64 { return w.pixelsPerUnit }

// PhysicalWidth returns the arena width in physical units.
func (w *World) PhysicalWidth() float64 { return w.width * w.scale }

// PhysicalHeight returns the arena height in physical units.
func (w *World) PhysicalHeight() float64 { return w.height * w.scale }

// ToPhysical converts a render-space length to physical units.
func (w *World) ToPhysical(renderDist float64) float64 {
	return renderDist * w.scale
}

// ToRender converts a physical length to render units.
func (w *World) ToRender(physicalDist float64) float64 {
	return physicalDist * w.pixelsPerUnit
}

// Center returns the render-space centre of the arena.
func (w *World) Center() r2.Vec {
	return r2.Vec{X: w.width / 2, Y: w.height / 2}
}

// ToEngine converts a render-space point into the engine frame.
func (w *World) ToEngine(p r2.Vec) (x, y float64) {
	c := w.Center()
	return (p.X - c.X) * w.scale, (c.Y - p.Y) * w.scale
}

// FromEngine converts an engine-frame point into render space.
func (w *World) FromEngine(x, y float64) r2.Vec {
	c := w.Center()
	return r2.Vec{X: c.X + x*w.pixelsPerUnit, Y: c.Y - y*w.pixelsPerUnit}
}

// Contains reports whether p lies inside the arena, boundary included.
func (w *World) Contains(p r2.Vec) bool {
	return p.X >= 0 && p.X <= w.width && p.Y >= 0 && p.Y <= w.height
}

// Clamp returns p pulled back onto the arena.
func (w *World) Clamp(p r2.Vec) r2.Vec {
	return r2.Vec{
		X: math.Max(0, math.Min(w.width, p.X)),
		Y: math.Max(0, math.Min(w.height, p.Y)),
	}
}

// Bounds returns the arena rectangle in render space.
func (w *World) Bounds() r2.Box {
	return r2.Box{Max: r2.Vec{X: w.width, Y: w.height}}
}
