// Command visualizer opens a window with the simulated robot, drives it toward
// the mouse pointer and shows the localization engine's particle cloud and
// pose estimate as they arrive.
package main

import (
	"log"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/Garsondee/Robot-Sense/internal/config"
	"github.com/Garsondee/Robot-Sense/internal/game"
	"github.com/Garsondee/Robot-Sense/internal/logging"
	"github.com/Garsondee/Robot-Sense/internal/particles"
	"github.com/Garsondee/Robot-Sense/internal/protocol"
	"github.com/Garsondee/Robot-Sense/internal/sim"
	"github.com/Garsondee/Robot-Sense/internal/world"
)

// drainTimeout bounds how long shutdown waits for the engine's last output.
const drainTimeout = 2 * time.Second

func main() {
	app := &cli.App{
		Name:      "visualizer",
		Usage:     "drive a simulated robot against a localization engine",
		ArgsUsage: "[-- engine args...]",
		Flags:     config.Flags(),
		Action:    run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.FromContext(c)
	if err != nil {
		return err
	}
	if err := cfg.Engine.Validate(); err != nil {
		return errors.Wrap(err, "set --engine or engine.name in the config file")
	}

	logger, err := logging.New("robot-sense", cfg.LogOptions())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	w, err := world.New(cfg.World())
	if err != nil {
		return err
	}

	store := particles.NewStore()
	engineLog := game.NewEngineLog()
	client, err := protocol.StartEngine(cfg.Engine, store, logger.Named("engine"),
		protocol.WithDiagnosticSink(engineLog.Sink()))
	if err != nil {
		return err
	}

	s := sim.New(w,
		sim.WithSender(client),
		sim.WithStore(store),
		sim.WithLogger(logger.Named("sim")),
		sim.WithSpeed(cfg.Robot.Speed),
		sim.WithPeriod(cfg.Period()),
	)
	s.Start()

	g := game.New(s, game.WithLogger(logger.Named("game")), game.WithEngineLog(engineLog))
	width, height := g.Size()
	ebiten.SetTPS(cfg.Loop.TPS)
	ebiten.SetWindowTitle(cfg.Window.Title)
	ebiten.SetWindowSize(int(float64(width)*cfg.Window.Scale), int(float64(height)*cfg.Window.Scale))
	ebiten.SetWindowClosingHandled(true)

	runErr := ebiten.RunGame(g)
	closeErr := client.Close()
	select {
	case <-client.Done():
	case <-time.After(drainTimeout):
		logger.Warn("engine did not close its output after exit")
	}
	logger.Infow("session ended", "session", s.Session().String(), "ticks", s.Tick(), "stats", client.Stats())
	return multierr.Combine(runErr, closeErr)
}
