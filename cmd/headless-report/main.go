// Command headless-report drives the simulated robot along a scripted path
// without a window, once per run, and reports how well the localization
// engine tracked it.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/Garsondee/Robot-Sense/internal/config"
	"github.com/Garsondee/Robot-Sense/internal/logging"
	"github.com/Garsondee/Robot-Sense/internal/particles"
	"github.com/Garsondee/Robot-Sense/internal/protocol"
	"github.com/Garsondee/Robot-Sense/internal/sim"
	"github.com/Garsondee/Robot-Sense/internal/world"
)

const (
	drainTimeout = 2 * time.Second
	// inboxSize bounds engine diagnostics waiting for the next tick.
	inboxSize = 256
)

type runStats struct {
	runIndex int
	metrics  sim.Metrics

	fallbackReadings int
	sendFailures     int
	engineErrors     int
}

func main() {
	flags := append(config.Flags(),
		&cli.IntFlag{Name: "runs", Value: 1, Usage: "number of runs, each with a fresh engine"},
		&cli.IntFlag{Name: "ticks", Value: 1000, Usage: "ticks per run"},
		&cli.StringFlag{Name: "path", Value: sim.PathCircle, Usage: "target path: circle, square or still"},
		&cli.Float64Flag{Name: "tolerance", Value: 6, Usage: "position error, in engine units, counted as tracking"},
		&cli.BoolFlag{Name: "verbose", Usage: "print the per-tick simulation log"},
	)
	app := &cli.App{
		Name:      "headless-report",
		Usage:     "run scripted paths against a localization engine and report tracking error",
		ArgsUsage: "[-- engine args...]",
		Flags:     flags,
		Action:    run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	runs, ticks := c.Int("runs"), c.Int("ticks")
	if runs <= 0 {
		return errors.New("--runs must be > 0")
	}
	if ticks <= 0 {
		return errors.New("--ticks must be > 0")
	}

	cfg, err := config.FromContext(c)
	if err != nil {
		return err
	}
	logger, err := logging.New("headless", cfg.LogOptions())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	w, err := world.New(cfg.World())
	if err != nil {
		return err
	}
	target, err := sim.PathByName(c.String("path"), w)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	out := c.App.Writer
	fmt.Fprintf(out, "=== Headless Localization Report ===\n")
	fmt.Fprintf(out, "path=%s runs=%d ticks=%d tps=%d engine=%q\n\n", c.String("path"), runs, ticks, cfg.Loop.TPS, cfg.Engine.Name)
	if cfg.Engine.Name == "" {
		fmt.Fprintf(out, "no engine configured: running the simulator offline\n\n")
	}

	all := make([]runStats, 0, runs)
	for i := 1; i <= runs; i++ {
		rs, simLog, err := runOnce(ctx, i, cfg, w, logger, target, ticks)
		if c.Bool("verbose") && simLog != nil {
			fmt.Fprint(out, simLog.Format())
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Fprintf(out, "interrupted during run %d\n", i)
				break
			}
			return err
		}
		all = append(all, rs)
		printRun(out, rs, c.Float64("tolerance"))
	}
	printAggregate(out, all, c.Float64("tolerance"))
	return nil
}

func runOnce(
	ctx context.Context,
	index int,
	cfg config.Config,
	w *world.World,
	logger logging.Logger,
	target sim.TargetFunc,
	ticks int,
) (runStats, *sim.SimLog, error) {
	store := particles.NewStore()
	opts := []sim.Option{
		sim.WithStore(store),
		sim.WithLogger(logger.Named("sim")),
		sim.WithSpeed(cfg.Robot.Speed),
		sim.WithPeriod(cfg.Period()),
	}

	var client *protocol.Client
	if cfg.Engine.Name != "" {
		inbox := sim.NewInbox(inboxSize)
		var err error
		client, err = protocol.StartEngine(cfg.Engine, store, logger.Named("engine"),
			protocol.WithDiagnosticSink(inbox.Sink()))
		if err != nil {
			return runStats{}, nil, err
		}
		opts = append(opts, sim.WithSender(client), sim.WithInbox(inbox))
	}

	s := sim.New(w, opts...)
	runErr := s.Run(ctx, clock.New(), ticks, target)
	if client != nil {
		runErr = multierr.Append(runErr, client.Close())
		select {
		case <-client.Done():
		case <-time.After(drainTimeout):
			logger.Warnw("engine did not close its output after exit", "run", index)
		}
		s.RecordDiagnostics()
	}

	rs := runStats{
		runIndex:         index,
		metrics:          s.Metrics(),
		fallbackReadings: s.Log().Count(sim.CategorySensor, "fallback"),
		sendFailures:     s.Log().Count(sim.CategorySend, "failed"),
		engineErrors:     s.Log().Count(sim.CategoryEngine, "stderr"),
	}
	return rs, s.Log(), runErr
}

// judgeTracking decides whether the engine's final estimate was within
// tolerance of the ground truth.
func judgeTracking(rs runStats, tolerance float64) (bool, string) {
	m := rs.metrics
	switch {
	case !m.HasEstimate:
		return false, "no_estimate"
	case m.PositionError > tolerance:
		return false, fmt.Sprintf("position_error=%.2f>%.2f", m.PositionError, tolerance)
	default:
		return true, fmt.Sprintf("position_error=%.2f", m.PositionError)
	}
}

func printRun(out io.Writer, rs runStats, tolerance float64) {
	fmt.Fprintf(out, "--- Run %d ---\n", rs.runIndex)
	fmt.Fprintln(out, rs.metrics.Table())
	ok, reason := judgeTracking(rs, tolerance)
	fmt.Fprintf(out, "tracking=%v (%s) fallback_readings=%d send_failures=%d engine_errors=%d\n\n",
		ok, reason, rs.fallbackReadings, rs.sendFailures, rs.engineErrors)
}

type aggregate struct {
	runs          int
	tracked       int
	withEstimate  int
	meanPosError  float64
	maxPosError   float64
	meanHeadError float64
	framesSent    uint64
	malformed     uint64
}

func summarizeRuns(all []runStats, tolerance float64) aggregate {
	agg := aggregate{runs: len(all)}
	estimated := lo.Filter(all, func(rs runStats, _ int) bool { return rs.metrics.HasEstimate })
	agg.withEstimate = len(estimated)
	agg.tracked = lo.CountBy(all, func(rs runStats) bool {
		ok, _ := judgeTracking(rs, tolerance)
		return ok
	})
	for _, rs := range all {
		agg.framesSent += rs.metrics.Traffic.FramesSent
		agg.malformed += rs.metrics.Traffic.Malformed
	}
	if len(estimated) == 0 {
		return agg
	}

	posErrs := stats.Float64Data(lo.Map(estimated, func(rs runStats, _ int) float64 { return rs.metrics.PositionError }))
	headErrs := stats.Float64Data(lo.Map(estimated, func(rs runStats, _ int) float64 { return rs.metrics.HeadingError }))
	agg.meanPosError, _ = posErrs.Mean()
	agg.maxPosError, _ = posErrs.Max()
	agg.meanHeadError, _ = headErrs.Mean()
	return agg
}

func printAggregate(out io.Writer, all []runStats, tolerance float64) {
	agg := summarizeRuns(all, tolerance)
	t := table.NewWriter()
	t.SetTitle("Aggregate")
	t.AppendHeader(table.Row{"Runs", "Tracked", "With estimate", "Mean pos err", "Max pos err", "Mean heading err", "Frames", "Malformed"})
	t.AppendRow(table.Row{
		agg.runs,
		agg.tracked,
		agg.withEstimate,
		fmt.Sprintf("%.2f", agg.meanPosError),
		fmt.Sprintf("%.2f", agg.maxPosError),
		fmt.Sprintf("%.3f", agg.meanHeadError),
		agg.framesSent,
		agg.malformed,
	})
	fmt.Fprintln(out, t.Render())
}
