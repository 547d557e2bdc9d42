package game

import (
	"math"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Garsondee/Robot-Sense/internal/particles"
	"github.com/Garsondee/Robot-Sense/internal/protocol"
	"github.com/Garsondee/Robot-Sense/internal/sim"
	"github.com/Garsondee/Robot-Sense/internal/world"
)

func newTestGame(t *testing.T, opts ...Option) (*Game, *sim.Sim) {
	t.Helper()
	w, err := world.New(world.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	s := sim.New(w)
	return New(s, opts...), s
}

func TestSquareCorners(t *testing.T) {
	c := r2.Vec{X: 100, Y: 100}
	got := squareCorners(c, 10, 0)
	want := [4]r2.Vec{{X: 110, Y: 90}, {X: 110, Y: 110}, {X: 90, Y: 110}, {X: 90, Y: 90}}
	if got != want {
		t.Fatalf("axis-aligned corners: got %v want %v", got, want)
	}

	rotated := squareCorners(c, 10, math.Pi/4)
	for i, p := range rotated {
		if d := r2.Norm(r2.Sub(p, c)); math.Abs(d-10*math.Sqrt2) > 1e-9 {
			t.Fatalf("corner %d at distance %.4f from centre", i, d)
		}
	}
	// A 45 degree turn puts the first corner straight ahead on +X.
	if math.Abs(rotated[0].X-(100+10*math.Sqrt2)) > 1e-9 || math.Abs(rotated[0].Y-100) > 1e-9 {
		t.Fatalf("unexpected first corner %v", rotated[0])
	}
}

func TestNew_Layout(t *testing.T) {
	g, _ := newTestGame(t)
	w, h := g.Layout(0, 0)
	if w != 600+logPanelWidth || h != 600 {
		t.Fatalf("expected %dx600 layout, got %dx%d", 600+logPanelWidth, w, h)
	}
}

func TestTelemetryReport(t *testing.T) {
	el := NewEngineLog()
	el.Add(protocol.Diagnostic{Stream: protocol.StreamError, Text: "sensor out of range"})
	el.Add(protocol.Diagnostic{Stream: protocol.StreamOutput, Text: "resampled"})
	g, s := newTestGame(t, WithEngineLog(el))

	s.Store().SetEstimatedPose(particles.EstimatedPose{X: 1, Y: 2, Heading: 0})
	s.Step(r2.Vec{X: 400, Y: 310})

	report := g.TelemetryReport()
	for _, want := range []string{"Robot-Sense telemetry", "Estimate", "front", "left", "right", "1 errors", "[stderr] sensor out of range", "[stdout] resampled"} {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q:\n%s", want, report)
		}
	}
}

func TestCopyReport(t *testing.T) {
	var copied string
	g, _ := newTestGame(t, WithClipboard(func(s string) error {
		copied = s
		return nil
	}))
	g.copyReport()
	if !strings.Contains(copied, "Robot-Sense telemetry") {
		t.Fatalf("clipboard did not receive the report: %q", copied)
	}
	if g.notice != "telemetry copied" || g.noticeTTL != noticeTicks {
		t.Fatalf("unexpected notice %q ttl=%d", g.notice, g.noticeTTL)
	}

	failing, _ := newTestGame(t, WithClipboard(func(string) error { return errors.New("no xclip") }))
	failing.copyReport()
	if failing.notice != "clipboard unavailable" {
		t.Fatalf("expected failure notice, got %q", failing.notice)
	}
}
