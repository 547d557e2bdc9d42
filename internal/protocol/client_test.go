package protocol

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Garsondee/Robot-Sense/internal/logging"
	"github.com/Garsondee/Robot-Sense/internal/logging/loggingtest"
	"github.com/Garsondee/Robot-Sense/internal/particles"
)

// fakeEngine is an in-memory engine: the test reads what the client sends on
// sent and writes replies into out and errOut.
type fakeEngine struct {
	sent   *bufio.Scanner
	out    *io.PipeWriter
	errOut *io.PipeWriter

	stdinR *io.PipeReader
}

type diagRecorder struct {
	mu    sync.Mutex
	diags []Diagnostic
}

func (r *diagRecorder) sink(d Diagnostic) {
	r.mu.Lock()
	r.diags = append(r.diags, d)
	r.mu.Unlock()
}

func (r *diagRecorder) all() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Diagnostic(nil), r.diags...)
}

func newFakeEngine(t *testing.T, opts ...Option) (*Client, *fakeEngine, *particles.Store) {
	t.Helper()
	stdinR, stdinW := io.Pipe()
	outR, outW := io.Pipe()
	errR, errW := io.Pipe()

	store := particles.NewStore()
	c := NewClient(stdinW, store, loggingtest.NewLogger(t), opts...)
	c.Listen(outR, errR)

	fe := &fakeEngine{sent: bufio.NewScanner(stdinR), out: outW, errOut: errW, stdinR: stdinR}
	t.Cleanup(func() {
		_ = outW.Close()
		_ = errW.Close()
		_ = stdinR.Close()
		_ = c.Close()
		// Listeners log on exit; they must finish before the test does.
		<-c.Done()
		<-c.DiagnosticsDone()
	})
	return c, fe, store
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func (fe *fakeEngine) reply(t *testing.T, lines ...string) {
	t.Helper()
	for _, l := range lines {
		_, err := io.WriteString(fe.out, l+"\n")
		require.NoError(t, err)
	}
}

func TestOutputListener_ParticleOverwrite(t *testing.T) {
	c, fe, store := newFakeEngine(t)

	fe.reply(t, "particle 3 1.2 -0.4 0.01")
	require.Eventually(t, func() bool { return store.Len() == 1 }, time.Second, time.Millisecond)
	require.Equal(t, particles.Particle{Index: 3, X: 1.2, Y: -0.4, Weight: 0.01}, store.ReadAll().Particles[3])

	fe.reply(t, "particle 3 1.3 -0.4 0.02")
	require.NoError(t, fe.out.Close())
	waitClosed(t, c.Done())

	p := store.ReadAll().Particles[3]
	require.Equal(t, 1.3, p.X)
	require.Equal(t, -0.4, p.Y)
	require.Equal(t, uint64(2), c.Stats().Particles)
}

func TestOutputListener_MalformedLineIsDropped(t *testing.T) {
	logger, logs := loggingtest.NewObservedLogger(t)
	stdinR, stdinW := io.Pipe()
	defer stdinR.Close()
	outR, outW := io.Pipe()

	store := particles.NewStore()
	c := NewClient(stdinW, store, logger)
	c.Listen(outR, nil)

	_, err := io.WriteString(outW, "particle abc\nparticle 1 0.5 0.25 0.1\n")
	require.NoError(t, err)
	require.NoError(t, outW.Close())
	waitClosed(t, c.Done())

	snap := store.ReadAll()
	require.Len(t, snap.Particles, 1)
	require.Equal(t, 0.5, snap.Particles[1].X)
	require.Equal(t, uint64(1), c.Stats().Malformed)
	require.Equal(t, 1, logs.FilterMessage("dropping malformed engine line").Len())
}

func TestOutputListener_PoseAndPassthrough(t *testing.T) {
	rec := &diagRecorder{}
	c, fe, store := newFakeEngine(t, WithDiagnosticSink(rec.sink))

	fe.reply(t, "", "pose 1 2 0.5", "filter converged", "pose 3 4 1.5")
	require.NoError(t, fe.out.Close())
	waitClosed(t, c.Done())

	snap := store.ReadAll()
	require.True(t, snap.HasPose)
	require.Equal(t, particles.EstimatedPose{X: 3, Y: 4, Heading: 1.5}, snap.Pose)

	diags := rec.all()
	require.Len(t, diags, 1)
	require.Equal(t, StreamOutput, diags[0].Stream)
	require.Equal(t, "filter converged", diags[0].Text)
	require.Equal(t, uint64(2), c.Stats().Poses)
}

func TestDiagnosticListener_SurfacesStderr(t *testing.T) {
	rec := &diagRecorder{}
	c, fe, _ := newFakeEngine(t, WithDiagnosticSink(rec.sink))

	_, err := io.WriteString(fe.errOut, "bad sensor value\n\n  \nsegfault imminent\n")
	require.NoError(t, err)
	require.NoError(t, fe.errOut.Close())
	waitClosed(t, c.DiagnosticsDone())

	diags := rec.all()
	require.Len(t, diags, 2)
	require.Equal(t, StreamError, diags[0].Stream)
	require.Equal(t, "bad sensor value", diags[0].Text)
	require.Equal(t, "segfault imminent", diags[1].Text)
	require.Equal(t, uint64(2), c.Stats().EngineErrors)
}

func TestListeners_StopOnEOFWithoutSpinning(t *testing.T) {
	c, fe, _ := newFakeEngine(t)
	require.NoError(t, fe.out.Close())
	require.NoError(t, fe.errOut.Close())
	waitClosed(t, c.Done())
	waitClosed(t, c.DiagnosticsDone())
}

func TestSendTick_OrderAndSign(t *testing.T) {
	c, fe, _ := newFakeEngine(t)

	require.NoError(t, c.SendTick(TickFrames{Front: 10, Left: 20.5, Right: 30, DX: 0.25, DY: 0.5, DTheta: -0.1}))

	want := []string{
		"front 10",
		"left 20.5",
		"right 30",
		"change 0.25 -0.5 -0.1",
		"get",
		"pose",
	}
	for _, w := range want {
		require.True(t, fe.sent.Scan())
		require.Equal(t, w, fe.sent.Text())
	}
	require.Eventually(t, func() bool { return c.Stats().FramesSent == 6 }, time.Second, time.Millisecond)
}

func TestClose_SendsExitAndClosesStdin(t *testing.T) {
	c, fe, _ := newFakeEngine(t)

	errCh := make(chan error, 1)
	go func() { errCh <- c.Close() }()

	require.True(t, fe.sent.Scan())
	require.Equal(t, "exit", fe.sent.Text())
	require.False(t, fe.sent.Scan(), "stdin should be closed after exit")
	require.NoError(t, <-errCh)

	require.ErrorIs(t, c.SendFrame(CmdGet), ErrClosed)
	require.NoError(t, c.Close())
}

func TestSendFrame_EngineGoneIsNotFatal(t *testing.T) {
	logger, logs := loggingtest.NewObservedLogger(t)
	stdinR, stdinW := io.Pipe()
	c := NewClient(stdinW, particles.NewStore(), logger)
	require.NoError(t, stdinR.Close())

	require.Eventually(t, func() bool { return c.SendFrame(CmdGet) != nil }, time.Second, time.Millisecond)
	for i := 0; i < 3; i++ {
		require.Error(t, c.SendFrame(CmdGet))
	}
	st := c.Stats()
	require.GreaterOrEqual(t, st.SendFailures, uint64(4))
	require.Equal(t, uint64(0), st.FramesSent)

	require.Error(t, c.Close())
	require.Equal(t, 1, logs.FilterMessage("engine stopped accepting input").Len())
}

func TestOutputListener_OversizedLineIsSkipped(t *testing.T) {
	logger, logs := loggingtest.NewObservedLogger(t)
	stdinR, stdinW := io.Pipe()
	defer stdinR.Close()
	outR, outW := io.Pipe()

	store := particles.NewStore()
	c := NewClient(stdinW, store, logger)
	c.Listen(outR, nil)

	go func() {
		_, _ = io.WriteString(outW, strings.Repeat("x", 2*maxLineBytes)+"\n")
		_, _ = io.WriteString(outW, "particle 1 0.5 0.25 0.1\n")
		_ = outW.Close()
	}()
	waitClosed(t, c.Done())

	snap := store.ReadAll()
	require.Len(t, snap.Particles, 1)
	require.Equal(t, 0.25, snap.Particles[1].Y)
	require.Equal(t, uint64(1), c.Stats().Malformed)
	require.Equal(t, 1, logs.FilterMessage("dropping oversized engine line").Len())
}

func TestDiagnosticListener_OversizedLineIsSkipped(t *testing.T) {
	rec := &diagRecorder{}
	c, fe, _ := newFakeEngine(t, WithDiagnosticSink(rec.sink))

	go func() {
		_, _ = io.WriteString(fe.errOut, strings.Repeat("e", maxLineBytes+10)+"\nstill here\n")
		_ = fe.errOut.Close()
	}()
	waitClosed(t, c.DiagnosticsDone())

	diags := rec.all()
	require.Len(t, diags, 1)
	require.Equal(t, "still here", diags[0].Text)
}

func TestLineReader_FinalLineWithoutNewline(t *testing.T) {
	lr := newLineReader(strings.NewReader("pose 1 2 3\r\nparticle 0 1 1 1"), 64)

	line, tooLong, err := lr.next()
	require.NoError(t, err)
	require.False(t, tooLong)
	require.Equal(t, "pose 1 2 3", line)

	line, _, err = lr.next()
	require.NoError(t, err)
	require.Equal(t, "particle 0 1 1 1", line)

	_, _, err = lr.next()
	require.ErrorIs(t, err, io.EOF)
}

func TestSendTick_StalledEngineDoesNotBlock(t *testing.T) {
	stdinR, stdinW, err := os.Pipe()
	require.NoError(t, err)
	defer stdinR.Close()
	c := NewClient(stdinW, particles.NewStore(), logging.NewBlankLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			_ = c.SendTick(TickFrames{Front: 1, Left: 2, Right: 3})
		}
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("SendTick blocked on an engine that is not reading")
	}

	st := c.Stats()
	require.Positive(t, st.Dropped)
	require.Zero(t, st.Dropped%6, "ticks are dropped whole")

	closed := make(chan error, 1)
	go func() { closed <- c.Close() }()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close blocked on an engine that is not reading")
	}
}
