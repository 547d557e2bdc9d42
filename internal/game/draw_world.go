package game

import (
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Garsondee/Robot-Sense/internal/particles"
)

const (
	gridDivisions  = 6
	robotHalfSize  = 10
	particleRadius = 2
)

var (
	groundColor   = color.RGBA{R: 236, G: 236, B: 232, A: 255}
	gridColor     = color.RGBA{R: 190, G: 190, B: 186, A: 255}
	borderColor   = color.RGBA{R: 60, G: 64, B: 70, A: 255}
	robotColor    = color.RGBA{R: 40, G: 90, B: 200, A: 255}
	estimateColor = color.RGBA{R: 128, G: 128, B: 128, A: 200}
	particleColor = color.RGBA{R: 220, G: 30, B: 30, A: 255}
	beamColor     = color.RGBA{R: 20, G: 170, B: 60, A: 255}
	targetColor   = color.RGBA{R: 90, G: 90, B: 90, A: 255}
)

// squareCorners returns the corners of a square of half-size half centred on
// c and rotated by heading, in drawing order.
func squareCorners(c r2.Vec, half, heading float64) [4]r2.Vec {
	sin, cos := math.Sincos(heading)
	local := [4]r2.Vec{{X: half, Y: -half}, {X: half, Y: half}, {X: -half, Y: half}, {X: -half, Y: -half}}
	var out [4]r2.Vec
	for i, p := range local {
		out[i] = r2.Vec{X: c.X + p.X*cos - p.Y*sin, Y: c.Y + p.X*sin + p.Y*cos}
	}
	return out
}

func squarePath(c r2.Vec, half, heading float64) *vector.Path {
	corners := squareCorners(c, half, heading)
	var path vector.Path
	path.MoveTo(float32(corners[0].X), float32(corners[0].Y))
	for _, p := range corners[1:] {
		path.LineTo(float32(p.X), float32(p.Y))
	}
	path.Close()
	return &path
}

// fillSquare draws a rotated square by filling it white into a scratch buffer
// and compositing that with the tint.
func (g *Game) fillSquare(screen *ebiten.Image, c r2.Vec, half, heading float64, tint color.Color) {
	if g.robotBuf == nil {
		g.robotBuf = ebiten.NewImage(g.arenaW, g.arenaH)
	}
	g.robotBuf.Clear()
	vector.FillPath(g.robotBuf, squarePath(c, half, heading), &vector.FillOptions{}, &vector.DrawPathOptions{AntiAlias: true})

	opts := &ebiten.DrawImageOptions{}
	opts.ColorScale.ScaleWithColor(tint)
	screen.DrawImage(g.robotBuf, opts)
}

func (g *Game) drawArena(screen *ebiten.Image) {
	w, h := float32(g.arenaW), float32(g.arenaH)
	vector.FillRect(screen, 0, 0, w, h, groundColor, false)
	drawGrid(screen, g.arenaW, g.arenaH, gridDivisions, gridColor)
	vector.StrokeRect(screen, 1, 1, w-2, h-2, 2.0, borderColor, false)
}

// drawGrid splits the arena into divisions x divisions cells.
func drawGrid(screen *ebiten.Image, w, h, divisions int, c color.Color) {
	if divisions <= 0 {
		return
	}
	for i := 1; i < divisions; i++ {
		x := float32(w) * float32(i) / float32(divisions)
		y := float32(h) * float32(i) / float32(divisions)
		vector.StrokeLine(screen, x, 0, x, float32(h), 1.0, c, false)
		vector.StrokeLine(screen, 0, y, float32(w), y, 1.0, c, false)
	}
}

func (g *Game) drawParticles(screen *ebiten.Image, snap particles.Snapshot) {
	w := g.sim.World()
	for _, p := range snap.Particles {
		pos := w.FromEngine(p.X, p.Y)
		if !w.Contains(pos) {
			continue
		}
		vector.FillCircle(screen, float32(pos.X), float32(pos.Y), particleRadius, particleColor, true)
	}
}

// drawEstimate draws the engine's pose as a grey square. The engine heading is
// measured with Y up, so it is mirrored for the screen.
func (g *Game) drawEstimate(screen *ebiten.Image, snap particles.Snapshot) {
	if !snap.HasPose {
		return
	}
	pos := g.sim.World().FromEngine(snap.Pose.X, snap.Pose.Y)
	g.fillSquare(screen, pos, robotHalfSize, -snap.Pose.Heading, estimateColor)
}

func (g *Game) drawBeams(screen *ebiten.Image) {
	origin := g.sim.Pose().Pos
	for _, r := range g.sim.Readings() {
		vector.StrokeLine(screen, float32(origin.X), float32(origin.Y), float32(r.End.X), float32(r.End.Y), 1.0, beamColor, true)
		if !r.Fallback {
			vector.FillCircle(screen, float32(r.End.X), float32(r.End.Y), 3, beamColor, true)
		}
	}
}

func (g *Game) drawTarget(screen *ebiten.Image) {
	t := g.sim.Target()
	x, y := float32(t.X), float32(t.Y)
	vector.StrokeLine(screen, x-5, y, x+5, y, 1.0, targetColor, false)
	vector.StrokeLine(screen, x, y-5, x, y+5, 1.0, targetColor, false)
}

func (g *Game) drawRobot(screen *ebiten.Image) {
	pose := g.sim.Pose()
	g.fillSquare(screen, pose.Pos, robotHalfSize, pose.Heading, robotColor)
	nose := r2.Add(pose.Pos, r2.Scale(robotHalfSize, r2.Vec{X: math.Cos(pose.Heading), Y: math.Sin(pose.Heading)}))
	vector.StrokeLine(screen, float32(pose.Pos.X), float32(pose.Pos.Y), float32(nose.X), float32(nose.Y), 2.0, color.White, true)
	vector.FillCircle(screen, float32(pose.Pos.X), float32(pose.Pos.Y), 2, color.Black, true)
}
