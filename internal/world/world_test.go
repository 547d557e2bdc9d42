package world

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func metricWorld(t *testing.T) *World {
	t.Helper()
	w, err := New(Config{RenderWidth: 600, RenderHeight: 600, HalfWidthMeters: 1.78308, Unit: Meters})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

func TestScale_Meters(t *testing.T) {
	w := metricWorld(t)
	if math.Abs(w.Scale()-0.00594) > 1e-5 {
		t.Fatalf("expected scale ~0.00594 m/px, got %.6f", w.Scale())
	}
	if got := w.ToPhysical(600); math.Abs(got-3.566) > 1e-3 {
		t.Fatalf("expected 600px -> ~3.566m, got %.4f", got)
	}
	if got := w.Width() * w.Scale(); math.Abs(got-w.PhysicalWidth()) > 1e-12 {
		t.Fatalf("renderExtent*scale should equal physical extent: %.6f vs %.6f", got, w.PhysicalWidth())
	}
}

func TestScale_InchesMatchesEngineConstant(t *testing.T) {
	w, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := (2 * 1.78308 / 600) * 39.3701
	if math.Abs(w.Scale()-want) > 1e-12 {
		t.Fatalf("expected %.9f in/px, got %.9f", want, w.Scale())
	}
	if w.Unit() != Inches {
		t.Fatalf("expected inches, got %q", w.Unit())
	}
}

func TestRoundTrip_PhysicalRenderPhysical(t *testing.T) {
	w := metricWorld(t)
	for _, v := range []float64{0, 1e-6, 0.25, 1.78308, 3.56616, -2.5, 1234.5} {
		got := w.ToPhysical(w.ToRender(v))
		if math.Abs(got-v) > 1e-9*math.Max(1, math.Abs(v)) {
			t.Fatalf("round trip of %g returned %g", v, got)
		}
	}
}

func TestEngineFrame_CentreAndYFlip(t *testing.T) {
	w := metricWorld(t)
	x, y := w.ToEngine(w.Center())
	if x != 0 || y != 0 {
		t.Fatalf("centre should map to engine origin, got (%g,%g)", x, y)
	}
	// Up on screen is +Y in the engine frame.
	_, y = w.ToEngine(r2.Vec{X: 300, Y: 0})
	if math.Abs(y-1.78308) > 1e-9 {
		t.Fatalf("top edge should be +half width, got %g", y)
	}
	p := w.FromEngine(1.0, -0.5)
	bx, by := w.ToEngine(p)
	if math.Abs(bx-1.0) > 1e-9 || math.Abs(by+0.5) > 1e-9 {
		t.Fatalf("engine round trip mismatch: (%g,%g)", bx, by)
	}
}

func TestNew_RejectsBadExtents(t *testing.T) {
	cases := []Config{
		{RenderWidth: 0, RenderHeight: 600, HalfWidthMeters: 1},
		{RenderWidth: 600, RenderHeight: -1, HalfWidthMeters: 1},
		{RenderWidth: 600, RenderHeight: 600, HalfWidthMeters: 0},
		{RenderWidth: 600, RenderHeight: 600, HalfWidthMeters: 1, Unit: "furlong"},
	}
	for i, c := range cases {
		if _, err := New(c); err == nil {
			t.Fatalf("case %d: expected error for %+v", i, c)
		}
	}
}

func TestClampAndContains(t *testing.T) {
	w := metricWorld(t)
	if !w.Contains(r2.Vec{X: 0, Y: 600}) {
		t.Fatal("boundary point should be contained")
	}
	if w.Contains(r2.Vec{X: -1, Y: 10}) {
		t.Fatal("point left of the arena should not be contained")
	}
	got := w.Clamp(r2.Vec{X: -20, Y: 900})
	if got.X != 0 || got.Y != 600 {
		t.Fatalf("expected clamp to (0,600), got %+v", got)
	}
}

func TestBounds(t *testing.T) {
	w := metricWorld(t)
	b := w.Bounds()
	if b.Min != (r2.Vec{}) || b.Max != (r2.Vec{X: 600, Y: 600}) {
		t.Fatalf("unexpected bounds %+v", b)
	}
}
