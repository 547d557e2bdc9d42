package game

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/Garsondee/Robot-Sense/internal/particles"
)

const (
	hudLineHeight = 14
	hudPad        = 6
)

// hudLines lists the per-frame status lines shown in the top-left corner.
func (g *Game) hudLines(snap particles.Snapshot) []string {
	w := g.sim.World()
	unit := string(w.Unit())
	pose := g.sim.Pose()

	lines := []string{
		fmt.Sprintf("tick %d  tps %.0f", g.sim.Tick(), ebiten.ActualTPS()),
		fmt.Sprintf("robot (%.0f, %.0f) %.0f deg", pose.Pos.X, pose.Pos.Y, pose.Heading*180/math.Pi),
	}
	for _, r := range g.sim.Readings() {
		mark := ""
		if r.Fallback {
			mark = " (no hit)"
		}
		lines = append(lines, fmt.Sprintf("%-5s %7.2f %s%s", r.Beam, r.Distance, unit, mark))
	}
	if snap.HasPose {
		lines = append(lines, fmt.Sprintf("estimate (%.1f, %.1f) %s", snap.Pose.X, snap.Pose.Y, unit))
	} else {
		lines = append(lines, "estimate: waiting")
	}
	lines = append(lines, fmt.Sprintf("particles %d", len(snap.Particles)))
	if sp, ok := snap.Spread(); ok {
		lines = append(lines, fmt.Sprintf("spread %.1f x %.1f %s", sp.StdX, sp.StdY, unit))
	}
	if n := g.sim.SendErrors(); n > 0 {
		lines = append(lines, fmt.Sprintf("send errors %d", n))
	}
	if g.paused {
		lines = append(lines, "PAUSED")
	}
	if g.noticeTTL > 0 {
		lines = append(lines, g.notice)
	}
	lines = append(lines, "[H] hud [L] log [P] pause [C] copy [Esc] quit")
	return lines
}

// drawHUD renders the status box with the basic bitmap face.
func (g *Game) drawHUD(screen *ebiten.Image, snap particles.Snapshot) {
	body := strings.Join(g.hudLines(snap), "\n")
	tw, th := text.Measure(body, g.face, hudLineHeight)

	bx, by := float32(4), float32(4)
	boxW, boxH := float32(tw)+2*hudPad, float32(th)+2*hudPad
	vector.FillRect(screen, bx, by, boxW, boxH, color.RGBA{R: 6, G: 8, B: 12, A: 200}, false)
	vector.StrokeRect(screen, bx, by, boxW, boxH, 1.0, color.RGBA{R: 60, G: 80, B: 100, A: 180}, false)

	opts := &text.DrawOptions{}
	opts.GeoM.Translate(float64(bx+hudPad), float64(by+hudPad))
	opts.ColorScale.ScaleWithColor(color.RGBA{R: 220, G: 230, B: 240, A: 255})
	opts.LineSpacing = hudLineHeight
	text.Draw(screen, body, g.face, opts)
}
