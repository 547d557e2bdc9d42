package game

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/Garsondee/Robot-Sense/internal/protocol"
)

// reportLogLines is how many engine log lines the telemetry report includes.
const reportLogLines = 20

// TelemetryReport is the text copied by the C key: the run metrics table,
// the current sensor readings and the tail of the engine log.
func (g *Game) TelemetryReport() string {
	m := g.sim.Metrics()

	var b strings.Builder
	fmt.Fprintf(&b, "--- Robot-Sense telemetry ---\n")
	b.WriteString(m.Table())
	b.WriteString("\n\n== sensors ==\n")
	for _, r := range g.sim.Readings() {
		fmt.Fprintf(&b, "%-5s %.3f %s end=(%.1f, %.1f) fallback=%v\n", r.Beam, r.Distance, m.Unit, r.End.X, r.End.Y, r.Fallback)
	}

	recent := g.log.Recent()
	if len(recent) > reportLogLines {
		recent = recent[len(recent)-reportLogLines:]
	}
	errCount := lo.CountBy(recent, func(d protocol.Diagnostic) bool { return d.Stream == protocol.StreamError })
	fmt.Fprintf(&b, "\n== engine log (last %d, %d errors) ==\n", len(recent), errCount)
	if len(recent) == 0 {
		b.WriteString("(no engine messages yet)\n")
	}
	for _, d := range recent {
		fmt.Fprintf(&b, "%s [%s] %s\n", d.At.Format("15:04:05.000"), d.Stream, d.Text)
	}
	return b.String()
}
