package game

import (
	"fmt"
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/Garsondee/Robot-Sense/internal/protocol"
)

const (
	logPanelWidth = 320
	logMaxEntries = 60
	logLineHeight = 11
	logLineChars  = 50
)

// EngineLog is a ring buffer of engine diagnostics rendered on-screen. It is
// written from the protocol listener goroutines and read by Draw.
type EngineLog struct {
	mu      sync.Mutex
	entries []protocol.Diagnostic
	head    int
	count   int
	total   int
}

// NewEngineLog creates an engine log with a fixed capacity.
func NewEngineLog() *EngineLog {
	return &EngineLog{
		entries: make([]protocol.Diagnostic, logMaxEntries),
	}
}

// Add appends an entry, overwriting the oldest once full.
func (el *EngineLog) Add(d protocol.Diagnostic) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.entries[el.head] = d
	el.head = (el.head + 1) % logMaxEntries
	if el.count < logMaxEntries {
		el.count++
	}
	el.total++
}

// Sink adapts the log to the protocol client's diagnostic hook.
func (el *EngineLog) Sink() protocol.DiagnosticSink {
	return el.Add
}

// Recent returns entries in chronological order (oldest first).
func (el *EngineLog) Recent() []protocol.Diagnostic {
	el.mu.Lock()
	defer el.mu.Unlock()
	result := make([]protocol.Diagnostic, el.count)
	for i := 0; i < el.count; i++ {
		idx := (el.head - el.count + i + logMaxEntries) % logMaxEntries
		result[i] = el.entries[idx]
	}
	return result
}

// Total is the number of entries ever added.
func (el *EngineLog) Total() int {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.total
}

func formatDiagnostic(d protocol.Diagnostic) string {
	prefix := "  "
	if d.Stream == protocol.StreamError {
		prefix = "! "
	}
	line := prefix + d.Text
	if len(line) > logLineChars {
		line = line[:logLineChars-1] + "~"
	}
	return line
}

// Draw renders the log panel at panelX, newest entry at the bottom.
func (el *EngineLog) Draw(screen *ebiten.Image, panelX int, panelH int) {
	vector.FillRect(screen, float32(panelX), 0, float32(logPanelWidth), float32(panelH), color.RGBA{R: 10, G: 12, B: 14, A: 248}, false)
	vector.StrokeLine(screen, float32(panelX), 0, float32(panelX), float32(panelH), 1.0, color.RGBA{R: 50, G: 60, B: 70, A: 255}, false)

	vector.FillRect(screen, float32(panelX), 0, float32(logPanelWidth), 16, color.RGBA{R: 20, G: 26, B: 32, A: 255}, false)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("ENGINE LOG (%d)", el.Total()), panelX+8, 2)
	vector.StrokeLine(screen, float32(panelX), 16, float32(panelX+logPanelWidth), 16, 1.0, color.RGBA{R: 50, G: 70, B: 80, A: 200}, false)

	entries := el.Recent()
	maxVisible := (panelH - 24) / logLineHeight
	if len(entries) > maxVisible {
		entries = entries[len(entries)-maxVisible:]
	}
	recent := 3

	y := 20
	for i, e := range entries {
		if i >= len(entries)-recent {
			vector.FillRect(screen, float32(panelX+2), float32(y), float32(logPanelWidth-4), float32(logLineHeight), color.RGBA{R: 30, G: 36, B: 44, A: 160}, false)
		}
		dot := color.RGBA{R: 120, G: 140, B: 160, A: 255}
		if e.Stream == protocol.StreamError {
			dot = color.RGBA{R: 210, G: 70, B: 70, A: 255}
		}
		vector.FillRect(screen, float32(panelX+5), float32(y+3), 3, 5, dot, false)
		ebitenutil.DebugPrintAt(screen, formatDiagnostic(e), panelX+10, y)
		y += logLineHeight
	}
}
