package runner

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"procrunner/pkg/fixture"
	"procrunner/pkg/log"
	"procrunner/pkg/system"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const readChunkSize = 32 * 1024

// DefaultOutputGrace is how long output may keep arriving after the process
// has exited before the pipes are closed.
const DefaultOutputGrace = 2 * time.Second

// Config selects how runners produced by a Factory behave.
type Config struct {
	// Replay substitutes each descriptor's fixture for the real process.
	Replay bool
	// FixtureDir is the base for relative fixture paths.
	FixtureDir string
	// Fs is where fixtures are read from. Defaults to system.AppFs.
	Fs     afero.Fs
	Logger log.Logger
	// OutputGrace overrides DefaultOutputGrace.
	OutputGrace time.Duration
}

// Factory creates Runners that share one Config.
type Factory struct {
	cfg Config
}

func NewFactory(cfg Config) *Factory {
	if cfg.Fs == nil {
		cfg.Fs = system.AppFs
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	return &Factory{cfg: cfg}
}

// Replay reports whether runners from this factory replay fixtures.
func (f *Factory) Replay() bool {
	return f.cfg.Replay
}

// MakeRunner binds d to a Runner.
func (f *Factory) MakeRunner(d Descriptor) Runner {
	d.RequiredOptions = slices.Clone(d.RequiredOptions)
	if d.Args == nil {
		d.Args = FixedArgs(nil)
	}
	return &commandRunner{desc: d, cfg: f.cfg}
}

type commandRunner struct {
	desc Descriptor
	cfg  Config
}

func (r *commandRunner) Descriptor() Descriptor {
	d := r.desc
	d.RequiredOptions = slices.Clone(d.RequiredOptions)
	return d
}

func (r *commandRunner) Run(opts Options, onDone DoneFunc, onOutput OutputFunc) (*Process, error) {
	_, proc, err := r.launch(opts, onDone, onOutput)
	return proc, err
}

func (r *commandRunner) Start(ctx context.Context, opts Options) (*Invocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inv := newInvocation()
	id, proc, err := r.launch(opts, inv.finish, inv.deliver)
	if err != nil {
		return nil, err
	}
	inv.id = id
	inv.process = proc

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				inv.Cancel()
			case <-inv.done:
			}
		}()
	}
	return inv, nil
}

// launch runs the precondition checks synchronously and then hands off to
// the replay or spawn path.
func (r *commandRunner) launch(opts Options, onDone DoneFunc, onOutput OutputFunc) (string, *Process, error) {
	name := r.desc.label()
	if strings.TrimSpace(r.desc.Command) == "" {
		return "", nil, fmt.Errorf("%s: %w", name, ErrEmptyCommand)
	}
	for _, opt := range r.desc.RequiredOptions {
		if !opts.Has(opt) {
			return "", nil, &MissingOptionError{Tool: name, Option: opt}
		}
	}

	args, err := r.desc.Args.Args(opts)
	if err != nil {
		return "", nil, fmt.Errorf("%s: error resolving arguments: %w", name, err)
	}

	if onDone == nil {
		onDone = func(Result) {}
	}
	if onOutput == nil {
		onOutput = func(string) {}
	}

	id := uuid.NewString()
	logger := r.cfg.Logger
	logger.Info(fmt.Sprintf("About to run: %s", commandLine(r.desc.Command, args)), "tool", name, "invocation", id)

	if r.cfg.Replay {
		logger.Info("Replay mode is on, command will not execute", "tool", name, "invocation", id)
		r.replay(id, onDone, onOutput)
		return id, nil, nil
	}
	return id, r.spawn(id, args, onDone, onOutput), nil
}

// FixturePath resolves d's fixture against the configured fixture directory.
// It returns "" when d has no fixture.
func (f *Factory) FixturePath(d Descriptor) string {
	return resolveFixture(f.cfg.FixtureDir, d.FixturePath)
}

func resolveFixture(dir, p string) string {
	if p == "" || filepath.IsAbs(p) || dir == "" {
		return p
	}
	return filepath.Join(dir, p)
}

func (r *commandRunner) replay(id string, onDone DoneFunc, onOutput OutputFunc) {
	name := r.desc.label()
	path := resolveFixture(r.cfg.FixtureDir, r.desc.FixturePath)
	if path == "" {
		r.cfg.Logger.Warn(fmt.Sprintf("Error: %s", ErrNoFixture.Error()), "tool", name, "invocation", id)
		go onDone(Result{Err: fmt.Errorf("%s: %w", name, ErrNoFixture), ExitCode: -1})
		return
	}

	go func() {
		lines, err := fixture.Load(r.cfg.Fs, path)
		if err != nil {
			r.cfg.Logger.Warn(fmt.Sprintf("Error: %s", err.Error()), "tool", name, "invocation", id, "fixture", path)
			onDone(Result{Err: fmt.Errorf("error reading fixture %s: %w", path, err), ExitCode: -1})
			return
		}
		for _, line := range lines {
			onOutput(line)
		}
		onDone(Result{ExitCode: 0})
	}()
}

func (r *commandRunner) spawn(id string, args []string, onDone DoneFunc, onOutput OutputFunc) *Process {
	cmd, err := system.Start(r.desc.Command, args)
	if err != nil {
		go onDone(Result{Err: err, ExitCode: -1})
		return nil
	}

	var (
		status  system.ExitStatus
		waitErr error
	)
	exited := make(chan struct{})
	go func() {
		status, waitErr = cmd.Wait()
		close(exited)
	}()

	chunks := make(chan string)
	drained := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go pump(cmd.Stdout, chunks, &wg)
	go pump(cmd.Stderr, chunks, &wg)
	go func() {
		wg.Wait()
		close(chunks)
		close(drained)
	}()

	// A descendant that inherited the pipes may outlive the process. Once the
	// process has exited its output gets outputGrace to drain, then the pipes
	// are closed from our side.
	go func() {
		select {
		case <-drained:
		case <-exited:
			timer := time.NewTimer(r.outputGrace())
			defer timer.Stop()
			select {
			case <-drained:
			case <-timer.C:
				r.cfg.Logger.Debug("Output still open after exit, closing pipes", "tool", r.desc.label(), "invocation", id)
			}
		}
		cmd.CloseOutput()
	}()

	// Single dispatcher: callbacks for one invocation never overlap and
	// onDone only fires once the output is drained and the process has exited.
	go func() {
		for chunk := range chunks {
			onOutput(chunk)
		}
		<-exited
		if waitErr != nil {
			onDone(Result{Err: waitErr, ExitCode: -1})
			return
		}
		r.cfg.Logger.Debug("Process finished", "tool", r.desc.label(), "invocation", id, "exit_code", status.Code, "signal", status.Signal)
		onDone(Result{ExitCode: status.Code, Signal: status.Signal})
	}()

	return &Process{proc: cmd.Process()}
}

func (r *commandRunner) outputGrace() time.Duration {
	if r.cfg.OutputGrace > 0 {
		return r.cfg.OutputGrace
	}
	return DefaultOutputGrace
}

func pump(r io.Reader, out chan<- string, wg *sync.WaitGroup) {
	defer wg.Done()
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out <- string(buf[:n])
		}
		if err != nil {
			return
		}
	}
}
