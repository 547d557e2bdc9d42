// Package sim drives one simulated robot tick by tick: advance toward the
// target, cast the three sensor beams, and report readings and odometry to the
// localization engine.
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Garsondee/Robot-Sense/internal/logging"
	"github.com/Garsondee/Robot-Sense/internal/particles"
	"github.com/Garsondee/Robot-Sense/internal/protocol"
	"github.com/Garsondee/Robot-Sense/internal/robot"
	"github.com/Garsondee/Robot-Sense/internal/sensor"
	"github.com/Garsondee/Robot-Sense/internal/world"
)

// Sender is the outbound half of the engine connection. *protocol.Client
// implements it.
type Sender interface {
	SendTick(protocol.TickFrames) error
	RequestSnapshot() error
	Stats() protocol.Stats
}

// TargetFunc returns the target for a given tick.
type TargetFunc func(tick int) r2.Vec

// Sim owns the ground-truth robot and the per-tick sequence. It is not safe
// for concurrent use; the particle store it reads is.
type Sim struct {
	world   *world.World
	kin     *robot.Kinematics
	sensors *sensor.Model
	store   *particles.Store
	sender  Sender
	logger  logging.Logger
	log     *SimLog
	inbox   *Inbox
	session uuid.UUID

	speed  float64
	period time.Duration
	start  *robot.Pose

	tick       int
	target     r2.Vec
	readings   [3]sensor.Reading
	sendErrors int
}

// Option configures a Sim.
type Option func(*Sim)

// WithSender connects the sim to an engine. Without one the sim runs offline.
func WithSender(s Sender) Option {
	return func(sm *Sim) { sm.sender = s }
}

// WithStore sets the particle store read for metrics.
func WithStore(store *particles.Store) Option {
	return func(sm *Sim) { sm.store = store }
}

// WithLogger sets the logger; a session id is attached to it.
func WithLogger(l logging.Logger) Option {
	return func(sm *Sim) { sm.logger = l }
}

// WithInbox records engine diagnostics delivered to inbox in the SimLog.
func WithInbox(in *Inbox) Option {
	return func(sm *Sim) { sm.inbox = in }
}

// WithVerbose records per-tick pose and sensor entries in the SimLog.
func WithVerbose(v bool) Option {
	return func(sm *Sim) { sm.log = NewSimLog(v) }
}

// WithSpeed overrides the per-tick step cap.
func WithSpeed(speed float64) Option {
	return func(sm *Sim) { sm.speed = speed }
}

// WithPeriod overrides the tick period.
func WithPeriod(period time.Duration) Option {
	return func(sm *Sim) { sm.period = period }
}

// WithStartPose places the robot somewhere other than the default start.
func WithStartPose(p robot.Pose) Option {
	return func(sm *Sim) { sm.start = &p }
}

// New builds a sim over w.
func New(w *world.World, opts ...Option) *Sim {
	s := &Sim{
		world:   w,
		sensors: sensor.New(w),
		logger:  logging.NewBlankLogger(),
		log:     NewSimLog(false),
		session: uuid.New(),
		speed:   robot.DefaultSpeed,
		period:  robot.DefaultPeriod,
	}
	for _, o := range opts {
		o(s)
	}
	if s.store == nil {
		s.store = particles.NewStore()
	}
	s.logger = s.logger.With("session", s.session.String())

	start := robot.StartPose(w.Center())
	if s.start != nil {
		start = *s.start
	}
	s.kin = robot.New(start, robot.WithSpeed(s.speed), robot.WithPeriod(s.period))
	s.target = start.Pos
	s.readings = s.sensors.Scan(start)
	return s
}

// Start sends the initial particle request so the cloud is drawn before the
// robot first moves.
func (s *Sim) Start() {
	if s.sender == nil {
		return
	}
	if err := s.sender.RequestSnapshot(); err != nil {
		s.sendFailed(err)
		return
	}
	s.logger.Infow("simulation started", "period", s.period, "speed", s.speed)
}

// Step runs one tick toward target. The target is clamped to the arena. Send
// failures are counted and logged; the robot keeps moving regardless. Engine
// diagnostics received since the last step are logged under this tick.
func (s *Sim) Step(target r2.Vec) protocol.TickFrames {
	s.tick++
	s.RecordDiagnostics()
	s.target = s.world.Clamp(target)

	pose := s.kin.Advance(s.target, s.period)
	s.readings = s.sensors.Scan(pose)
	delta := s.kin.Odometry()

	frames := protocol.TickFrames{
		Front:  s.readings[0].Distance,
		Left:   s.readings[1].Distance,
		Right:  s.readings[2].Distance,
		DX:     s.world.ToPhysical(delta.D.X),
		DY:     s.world.ToPhysical(delta.D.Y),
		DTheta: delta.DTheta,
	}

	s.log.AddVerbose(s.tick, CategoryMove, "pose",
		fmt.Sprintf("(%.1f, %.1f) heading %.3f", pose.Pos.X, pose.Pos.Y, pose.Heading), r2.Norm(delta.D))
	for _, r := range s.readings {
		if r.Fallback {
			s.log.Add(s.tick, CategorySensor, "fallback", string(r.Beam), r.RenderDistance)
			continue
		}
		s.log.AddVerbose(s.tick, CategorySensor, string(r.Beam), fmt.Sprintf("%.2f", r.Distance), r.Distance)
	}

	if s.sender != nil {
		if err := s.sender.SendTick(frames); err != nil {
			s.sendFailed(err)
		}
	}
	return frames
}

// RecordDiagnostics moves pending engine diagnostics into the SimLog under
// the current tick. Step does this itself; call it once more after the engine
// has exited to keep its last words.
func (s *Sim) RecordDiagnostics() {
	if s.inbox == nil {
		return
	}
	s.inbox.drain(func(d protocol.Diagnostic) {
		s.log.Add(s.tick, CategoryEngine, d.Stream.String(), d.Text, 0)
	})
}

func (s *Sim) sendFailed(err error) {
	s.sendErrors++
	s.log.Add(s.tick, CategorySend, "failed", err.Error(), float64(s.sendErrors))
	s.logger.Debugw("send failed", "tick", s.tick, "error", err)
}

// Run steps the sim on every tick of clk's ticker until ticks steps have run
// (ticks <= 0 means forever) or ctx is done.
func (s *Sim) Run(ctx context.Context, clk clock.Clock, ticks int, target TargetFunc) error {
	ticker := clk.Ticker(s.period)
	defer ticker.Stop()

	s.Start()
	for ran := 0; ticks <= 0 || ran < ticks; ran++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		s.Step(target(s.tick + 1))
	}
	s.logger.Infow("simulation finished", "ticks", s.tick, "send_errors", s.sendErrors)
	return nil
}

// Tick returns the number of steps taken.
func (s *Sim) Tick() int { return s.tick }

// Pose returns the ground-truth pose.
func (s *Sim) Pose() robot.Pose { return s.kin.Pose() }

// Target returns the last clamped target.
func (s *Sim) Target() r2.Vec { return s.target }

// Readings returns the sensor readings of the last step.
func (s *Sim) Readings() [3]sensor.Reading { return s.readings }

// SendErrors returns how many sends have failed.
func (s *Sim) SendErrors() int { return s.sendErrors }

// World returns the arena.
func (s *Sim) World() *world.World { return s.world }

// Store returns the particle store.
func (s *Sim) Store() *particles.Store { return s.store }

// Log returns the run's SimLog.
func (s *Sim) Log() *SimLog { return s.log }

// Session identifies this run in logs and reports.
func (s *Sim) Session() uuid.UUID { return s.session }

// Period returns the tick period.
func (s *Sim) Period() time.Duration { return s.period }
