package sim

import (
	"fmt"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Garsondee/Robot-Sense/internal/particles"
	"github.com/Garsondee/Robot-Sense/internal/protocol"
	"github.com/Garsondee/Robot-Sense/internal/robot"
)

// Metrics summarise a run so far: the ground truth, the engine's estimate of
// it and the traffic that produced it. Positions are in engine units.
type Metrics struct {
	Session string
	Ticks   int
	Unit    string

	Truth       particles.EstimatedPose
	Estimate    particles.EstimatedPose
	HasEstimate bool
	// PositionError and HeadingError compare Estimate against Truth.
	PositionError float64
	HeadingError  float64

	Particles int
	Spread    particles.Spread
	HasSpread bool

	Traffic    protocol.Stats
	HasTraffic bool
	SendErrors int
}

// Metrics reads the store and the ground truth. The engine frame has Y up, so
// the truth heading is the render heading mirrored.
func (s *Sim) Metrics() Metrics {
	snap := s.store.ReadAll()
	pose := s.kin.Pose()
	tx, ty := s.world.ToEngine(pose.Pos)

	m := Metrics{
		Session:    s.session.String(),
		Ticks:      s.tick,
		Unit:       string(s.world.Unit()),
		Truth:      particles.EstimatedPose{X: tx, Y: ty, Heading: robot.NormalizeAngle(-pose.Heading)},
		Particles:  len(snap.Particles),
		SendErrors: s.sendErrors,
	}
	if snap.HasPose {
		m.Estimate = snap.Pose
		m.HasEstimate = true
		m.PositionError = math.Hypot(snap.Pose.X-tx, snap.Pose.Y-ty)
		m.HeadingError = math.Abs(robot.NormalizeAngle(snap.Pose.Heading - m.Truth.Heading))
	}
	m.Spread, m.HasSpread = snap.Spread()
	if s.sender != nil {
		m.Traffic = s.sender.Stats()
		m.HasTraffic = true
	}
	return m
}

// Table renders the metrics as a two-column text table.
func (m Metrics) Table() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Session", m.Session})
	t.AppendRow(table.Row{"Ticks", m.Ticks})
	t.AppendRow(table.Row{"Truth", formatPose(m.Truth, m.Unit)})
	if m.HasEstimate {
		t.AppendRow(table.Row{"Estimate", formatPose(m.Estimate, m.Unit)})
		t.AppendRow(table.Row{"Position error", fmt.Sprintf("%.2f %s", m.PositionError, m.Unit)})
		t.AppendRow(table.Row{"Heading error", fmt.Sprintf("%.3f rad", m.HeadingError)})
	} else {
		t.AppendRow(table.Row{"Estimate", "none"})
	}
	t.AppendRow(table.Row{"Particles", m.Particles})
	if m.HasSpread {
		t.AppendRow(table.Row{"Cloud mean", fmt.Sprintf("(%.2f, %.2f)", m.Spread.MeanX, m.Spread.MeanY)})
		t.AppendRow(table.Row{"Cloud std", fmt.Sprintf("(%.2f, %.2f)", m.Spread.StdX, m.Spread.StdY)})
	}
	if m.HasTraffic {
		t.AppendRow(table.Row{"Frames sent", m.Traffic.FramesSent})
		t.AppendRow(table.Row{"Send failures", m.Traffic.SendFailures})
		t.AppendRow(table.Row{"Frames dropped", m.Traffic.Dropped})
		t.AppendRow(table.Row{"Particle lines", m.Traffic.Particles})
		t.AppendRow(table.Row{"Pose lines", m.Traffic.Poses})
		t.AppendRow(table.Row{"Malformed lines", m.Traffic.Malformed})
		t.AppendRow(table.Row{"Engine messages", m.Traffic.Diagnostics + m.Traffic.EngineErrors})
	}
	t.AppendRow(table.Row{"Tick send errors", m.SendErrors})
	return t.Render()
}

func formatPose(p particles.EstimatedPose, unit string) string {
	return fmt.Sprintf("(%.2f, %.2f) %s, %.3f rad", p.X, p.Y, unit, p.Heading)
}
