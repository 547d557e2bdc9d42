package protocol

import (
	"os/exec"

	"github.com/pkg/errors"

	"github.com/Garsondee/Robot-Sense/internal/logging"
	"github.com/Garsondee/Robot-Sense/internal/particles"
)

// ProcessConfig describes how to launch the engine executable.
type ProcessConfig struct {
	Name string   `json:"name" yaml:"name"`
	Args []string `json:"args" yaml:"args"`
	CWD  string   `json:"cwd" yaml:"cwd"`
	Env  []string `json:"env" yaml:"env"`
}

// Validate reports whether the config names an executable.
func (pc ProcessConfig) Validate() error {
	if pc.Name == "" {
		return errors.New("engine executable name is required")
	}
	return nil
}

// StartEngine launches the engine with its three standard pipes wired to a new
// Client and starts both listeners. The process is reaped in the background
// once both of its output pipes have closed.
func StartEngine(pc ProcessConfig, store *particles.Store, logger logging.Logger, opts ...Option) (*Client, error) {
	if err := pc.Validate(); err != nil {
		return nil, err
	}

	//nolint:gosec // the engine path comes from the operator's own config.
	cmd := exec.Command(pc.Name, pc.Args...)
	cmd.Dir = pc.CWD
	if len(pc.Env) > 0 {
		cmd.Env = append(cmd.Environ(), pc.Env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "engine stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "engine stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "engine stderr pipe")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "starting engine %q", pc.Name)
	}
	logger.Infow("engine started", "path", pc.Name, "args", pc.Args, "pid", cmd.Process.Pid)

	c := NewClient(stdin, store, logger, opts...)
	c.Listen(stdout, stderr)

	// Wait closes the pipes, so it must only run after both readers are done.
	go func() {
		<-c.Done()
		<-c.DiagnosticsDone()
		if err := cmd.Wait(); err != nil {
			logger.Warnw("engine exited", "error", err)
			return
		}
		logger.Infow("engine exited", "status", cmd.ProcessState.ExitCode())
	}()
	return c, nil
}
