// Package game is the ebiten front end: it feeds the cursor to the simulator
// as the target each tick and draws the arena, the robot, its sensor beams and
// the engine's particle cloud.
package game

import (
	"image/color"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Garsondee/Robot-Sense/internal/logging"
	"github.com/Garsondee/Robot-Sense/internal/sim"
)

// noticeTicks is how long a status notice stays on screen.
const noticeTicks = 200

// Game implements ebiten.Game around a sim.Sim.
type Game struct {
	sim    *sim.Sim
	logger logging.Logger
	log    *EngineLog

	arenaW, arenaH int
	width, height  int

	face      text.Face
	robotBuf  *ebiten.Image
	showHUD   bool
	showLog   bool
	paused    bool
	quitting  bool
	copyText  func(string) error
	notice    string
	noticeTTL int
}

// Option configures a Game.
type Option func(*Game)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(g *Game) { g.logger = l }
}

// WithEngineLog shows log in the side panel. The same log should be given to
// the protocol client as its diagnostic sink.
func WithEngineLog(log *EngineLog) Option {
	return func(g *Game) { g.log = log }
}

// WithClipboard replaces the clipboard writer used by the copy key.
func WithClipboard(write func(string) error) Option {
	return func(g *Game) { g.copyText = write }
}

// New wraps s. Images are allocated lazily on the first Draw.
func New(s *sim.Sim, opts ...Option) *Game {
	w := s.World()
	g := &Game{
		sim:      s,
		logger:   logging.NewBlankLogger(),
		arenaW:   int(w.Width()),
		arenaH:   int(w.Height()),
		face:     text.NewGoXFace(basicfont.Face7x13),
		showHUD:  true,
		showLog:  true,
		copyText: clipboard.WriteAll,
	}
	for _, o := range opts {
		o(g)
	}
	if g.log == nil {
		g.log = NewEngineLog()
	}
	g.width = g.arenaW + logPanelWidth
	g.height = g.arenaH
	return g
}

// Size is the logical screen size: the arena plus the log panel.
func (g *Game) Size() (int, int) { return g.width, g.height }

// Update runs one simulation tick with the cursor as the target. Closing the
// window or pressing Escape ends the loop with ebiten.Termination.
func (g *Game) Update() error {
	if ebiten.IsWindowBeingClosed() || g.quitting {
		g.logger.Infow("window closing", "ticks", g.sim.Tick())
		return ebiten.Termination
	}
	g.handleInput()

	if g.noticeTTL > 0 {
		g.noticeTTL--
	}
	if g.paused {
		return nil
	}
	mx, my := ebiten.CursorPosition()
	g.sim.Step(r2.Vec{X: float64(mx), Y: float64(my)})
	return nil
}

// handleInput processes key toggles (edge-triggered).
func (g *Game) handleInput() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		g.quitting = true
	case inpututil.IsKeyJustPressed(ebiten.KeyH):
		g.showHUD = !g.showHUD
	case inpututil.IsKeyJustPressed(ebiten.KeyL):
		g.showLog = !g.showLog
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		g.paused = !g.paused
	case inpututil.IsKeyJustPressed(ebiten.KeyC):
		g.copyReport()
	}
}

// copyReport puts the telemetry report on the system clipboard.
func (g *Game) copyReport() {
	report := g.TelemetryReport()
	if err := g.copyText(report); err != nil {
		g.logger.Warnw("clipboard unavailable", "error", err)
		g.setNotice("clipboard unavailable")
		return
	}
	g.setNotice("telemetry copied")
}

func (g *Game) setNotice(msg string) {
	g.notice = msg
	g.noticeTTL = noticeTicks
}

// Draw renders the arena, the estimate and the robot, then the overlays.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 12, G: 14, B: 16, A: 255})

	g.drawArena(screen)
	snap := g.sim.Store().ReadAll()
	g.drawParticles(screen, snap)
	g.drawEstimate(screen, snap)
	g.drawBeams(screen)
	g.drawTarget(screen)
	g.drawRobot(screen)

	if g.showLog {
		g.log.Draw(screen, g.arenaW, g.height)
	}
	if g.showHUD {
		g.drawHUD(screen, snap)
	}
}

// Layout fixes the logical screen; the window scale is applied by ebiten.
func (g *Game) Layout(_, _ int) (int, int) {
	return g.width, g.height
}
