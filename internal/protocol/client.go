package protocol

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/Garsondee/Robot-Sense/internal/logging"
	"github.com/Garsondee/Robot-Sense/internal/particles"
)

const (
	// maxLineBytes bounds a single inbound line; longer lines are discarded.
	maxLineBytes = 1 << 20
	// sendQueueBatches is how many ticks of outbound frames may wait for the
	// writer before new ones are dropped.
	sendQueueBatches = 64
	// closeTimeout bounds each shutdown step that depends on the engine.
	closeTimeout = time.Second
)

var (
	// ErrClosed is returned by sends after Close.
	ErrClosed = errors.New("protocol client closed")
	// ErrQueueFull is returned when the engine is not keeping up and a send
	// was dropped.
	ErrQueueFull = errors.New("engine send queue full")
)

// Stream identifies which engine pipe a diagnostic came from.
type Stream int

const (
	StreamOutput Stream = iota
	StreamError
)

func (s Stream) String() string {
	if s == StreamError {
		return "stderr"
	}
	return "stdout"
}

// Diagnostic is a line of engine text that is not protocol data.
type Diagnostic struct {
	At     time.Time
	Stream Stream
	Text   string
}

// DiagnosticSink receives engine diagnostics from the listener goroutines. It
// must not block and must be safe for concurrent use.
type DiagnosticSink func(Diagnostic)

// Stats are running counters of protocol traffic.
type Stats struct {
	FramesSent   uint64
	SendFailures uint64
	// Dropped counts frames discarded because the engine was not reading.
	Dropped      uint64
	Particles    uint64
	Poses        uint64
	Malformed    uint64
	Diagnostics  uint64
	EngineErrors uint64
}

// TickFrames holds everything sent to the engine for one tick. Distances and
// deltas are in engine units; DY is along the render Y axis (down) and is
// negated on the wire.
type TickFrames struct {
	Front, Left, Right float64
	DX, DY, DTheta     float64
}

type frame struct {
	kind string
	line string
}

// Client frames requests to the engine and feeds its replies into a particle
// store. Sends only enqueue: one writer goroutine owns the engine's stdin, so
// a stalled engine costs dropped frames, never a blocked caller. Replies are
// consumed by two detached listeners started with Listen.
type Client struct {
	logger logging.Logger
	store  *particles.Store
	sink   DiagnosticSink

	stdin     io.WriteCloser
	w         *bufio.Writer
	stdinOnce sync.Once
	stdinErr  error

	// mu orders enqueues against Close closing the queue.
	mu         sync.Mutex
	closed     bool
	queue      chan []frame
	writerDone chan struct{}
	writeErr   atomic.Error
	dropWarned atomic.Bool

	outDone  chan struct{}
	diagDone chan struct{}

	framesSent   atomic.Uint64
	sendFailures atomic.Uint64
	dropped      atomic.Uint64
	nParticles   atomic.Uint64
	nPoses       atomic.Uint64
	malformed    atomic.Uint64
	diagnostics  atomic.Uint64
	engineErrors atomic.Uint64
}

// Option configures a Client.
type Option func(*Client)

// WithDiagnosticSink forwards engine diagnostics to sink in addition to the log.
func WithDiagnosticSink(sink DiagnosticSink) Option {
	return func(c *Client) { c.sink = sink }
}

// NewClient wraps the engine's stdin and starts the writer. Call Listen to
// start consuming replies.
func NewClient(stdin io.WriteCloser, store *particles.Store, logger logging.Logger, opts ...Option) *Client {
	c := &Client{
		logger:     logger,
		store:      store,
		stdin:      stdin,
		w:          bufio.NewWriter(stdin),
		queue:      make(chan []frame, sendQueueBatches),
		writerDone: make(chan struct{}),
		outDone:    make(chan struct{}),
		diagDone:   make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	go c.writeLoop()
	return c
}

// Listen starts the output and diagnostic listeners. Each runs until its pipe
// reaches EOF. A nil reader counts as already closed.
func (c *Client) Listen(stdout, stderr io.Reader) {
	if stdout == nil {
		close(c.outDone)
	} else {
		go c.readOutput(stdout)
	}
	if stderr == nil {
		close(c.diagDone)
	} else {
		go c.readDiagnostics(stderr)
	}
}

// Done is closed once the output listener has seen EOF.
func (c *Client) Done() <-chan struct{} { return c.outDone }

// DiagnosticsDone is closed once the diagnostic listener has seen EOF.
func (c *Client) DiagnosticsDone() <-chan struct{} { return c.diagDone }

// SendFrame queues one line for the engine. It never blocks: if the engine
// has stopped accepting input it returns that error, and if the queue is full
// the frame is dropped and ErrQueueFull is returned.
func (c *Client) SendFrame(kind string, values ...float64) error {
	return c.enqueue(frame{kind: kind, line: FormatFrame(kind, values...)})
}

// SendTick queues the per-tick sequence: the three sensor readings, the
// odometry delta, then the particle and pose requests. The six frames are
// queued or dropped together so the engine never sees a partial tick.
func (c *Client) SendTick(f TickFrames) error {
	return c.enqueue(
		frame{CmdFront, FormatFrame(CmdFront, f.Front)},
		frame{CmdLeft, FormatFrame(CmdLeft, f.Left)},
		frame{CmdRight, FormatFrame(CmdRight, f.Right)},
		frame{CmdChange, FormatFrame(CmdChange, f.DX, -f.DY, f.DTheta)},
		frame{CmdGet, FormatFrame(CmdGet)},
		frame{CmdPose, FormatFrame(CmdPose)},
	)
}

// RequestSnapshot asks for the full particle set.
func (c *Client) RequestSnapshot() error {
	return c.SendFrame(CmdGet)
}

func (c *Client) enqueue(batch ...frame) error {
	if err := c.writeErr.Load(); err != nil {
		c.sendFailures.Add(uint64(len(batch)))
		return errors.Wrapf(err, "sending %s", batch[0].kind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.queue <- batch:
		c.dropWarned.Store(false)
		return nil
	default:
		c.dropped.Add(uint64(len(batch)))
		if c.dropWarned.CompareAndSwap(false, true) {
			c.logger.Warnw("engine is not reading input, dropping frames", "frame", batch[0].kind)
		}
		return errors.Wrapf(ErrQueueFull, "sending %s", batch[0].kind)
	}
}

// writeLoop owns stdin: it writes and flushes each frame in order, and closes
// stdin once the queue is closed and drained.
func (c *Client) writeLoop() {
	defer close(c.writerDone)
	defer c.closeStdin()
	for batch := range c.queue {
		if c.writeErr.Load() != nil {
			continue
		}
		for _, f := range batch {
			if err := c.write(f.line); err != nil {
				c.sendFailed(f.kind, err)
				break
			}
			c.framesSent.Inc()
		}
	}
}

func (c *Client) write(line string) error {
	if _, err := c.w.WriteString(line); err != nil {
		return err
	}
	return c.w.Flush()
}

// sendFailed records the first write error; once the engine is gone every
// later send fails the same way, so only that one is logged.
func (c *Client) sendFailed(kind string, err error) {
	c.sendFailures.Inc()
	if c.writeErr.CompareAndSwap(nil, err) {
		c.logger.Warnw("engine stopped accepting input", "frame", kind, "error", err)
	}
}

func (c *Client) closeStdin() {
	c.stdinOnce.Do(func() {
		if err := c.stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			c.stdinErr = errors.Wrap(err, "closing engine stdin")
		}
	})
}

// Close queues the terminal exit command and closes the engine's stdin once
// it is written. Each step waits at most closeTimeout; if the engine is not
// reading, stdin is closed without the exit. Close does not wait for the
// listeners.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	var errs error
	exit := []frame{{CmdExit, FormatFrame(CmdExit)}}
	select {
	case c.queue <- exit:
	case <-time.After(closeTimeout):
		c.dropped.Inc()
		errs = multierr.Append(errs, errors.Wrap(ErrQueueFull, "sending exit"))
	}
	close(c.queue)

	select {
	case <-c.writerDone:
	case <-time.After(closeTimeout):
		// Closing stdin unblocks the writer's pending write.
		c.closeStdin()
		select {
		case <-c.writerDone:
		case <-time.After(closeTimeout):
		}
		errs = multierr.Append(errs, errors.New("engine did not read exit"))
	}
	c.closeStdin()
	if err := c.writeErr.Load(); err != nil {
		errs = multierr.Append(errs, errors.Wrap(err, "engine stdin"))
	}
	return multierr.Append(errs, c.stdinErr)
}

// Stats returns a copy of the traffic counters.
func (c *Client) Stats() Stats {
	return Stats{
		FramesSent:   c.framesSent.Load(),
		SendFailures: c.sendFailures.Load(),
		Dropped:      c.dropped.Load(),
		Particles:    c.nParticles.Load(),
		Poses:        c.nPoses.Load(),
		Malformed:    c.malformed.Load(),
		Diagnostics:  c.diagnostics.Load(),
		EngineErrors: c.engineErrors.Load(),
	}
}

// readOutput consumes engine stdout until EOF.
func (c *Client) readOutput(r io.Reader) {
	defer close(c.outDone)
	lr := newLineReader(r, maxLineBytes)
	for {
		line, tooLong, err := lr.next()
		if err != nil {
			c.readDone("engine output", err)
			return
		}
		if tooLong {
			c.malformed.Inc()
			c.logger.Warnw("dropping oversized engine line", "limit", maxLineBytes)
			continue
		}
		c.handleOutputLine(line)
	}
}

// readDone logs why a listener stopped. EOF and a pipe already closed by the
// exiting engine are normal.
func (c *Client) readDone(what string, err error) {
	if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
		c.logger.Errorw("error reading "+what, "error", err)
	}
	c.logger.Debug(what + " closed")
}

func (c *Client) handleOutputLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	msg, err := ParseLine(line)
	if err != nil {
		c.malformed.Inc()
		c.logger.Warnw("dropping malformed engine line", "line", line, "error", err)
		return
	}
	switch msg.Kind {
	case KindParticle:
		c.store.Upsert(msg.Index, particles.Particle{X: msg.X, Y: msg.Y, Weight: msg.Weight})
		c.nParticles.Inc()
	case KindPose:
		c.store.SetEstimatedPose(particles.EstimatedPose{X: msg.X, Y: msg.Y, Heading: msg.Heading})
		c.nPoses.Inc()
	default:
		c.diagnostics.Inc()
		c.logger.Infow("engine output", "text", msg.Text)
		c.emit(StreamOutput, msg.Text)
	}
}

// readDiagnostics consumes engine stderr until EOF.
func (c *Client) readDiagnostics(r io.Reader) {
	defer close(c.diagDone)
	lr := newLineReader(r, maxLineBytes)
	for {
		line, tooLong, err := lr.next()
		if err != nil {
			c.readDone("engine diagnostics", err)
			return
		}
		text := strings.TrimSpace(line)
		if tooLong {
			c.engineErrors.Inc()
			c.logger.Warnw("dropping oversized engine diagnostic", "limit", maxLineBytes)
			continue
		}
		if text == "" {
			continue
		}
		c.engineErrors.Inc()
		c.logger.Errorw("engine error", "text", text)
		c.emit(StreamError, text)
	}
}

func (c *Client) emit(stream Stream, text string) {
	if c.sink == nil {
		return
	}
	c.sink(Diagnostic{At: time.Now(), Stream: stream, Text: text})
}
