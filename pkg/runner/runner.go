// Package runner turns declarative command descriptors into runnable tools.
//
// A Factory binds a Descriptor to a Runner. Each Run either launches the
// external command and streams its combined stdout/stderr, or, in replay
// mode, plays back a canned fixture file. Completion is reported exactly once,
// after all output has been delivered.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"procrunner/pkg/system"
)

// ErrNoFixture is reported in replay mode for descriptors without a fixture.
var ErrNoFixture = errors.New("replay mode is not supported: no fixture configured")

// ErrEmptyCommand is returned when a descriptor has no command.
var ErrEmptyCommand = errors.New("command cannot be empty")

// Options holds the per-invocation option values. Keys beyond the
// descriptor's required options are allowed.
type Options map[string]any

// Has reports whether name is set to a non-nil value.
func (o Options) Has(name string) bool {
	v, ok := o[name]
	return ok && v != nil
}

// String formats the named option with fmt.Sprint, or returns "" when unset.
func (o Options) String(name string) string {
	if !o.Has(name) {
		return ""
	}
	return fmt.Sprint(o[name])
}

// ArgsBuilder resolves the argument vector for one invocation.
// Implementations must not have side effects.
type ArgsBuilder interface {
	Args(opts Options) ([]string, error)
}

// FixedArgs is an argument list that does not depend on options.
type FixedArgs []string

func (a FixedArgs) Args(Options) ([]string, error) {
	return slices.Clone([]string(a)), nil
}

// ArgsFunc computes the argument list from options.
type ArgsFunc func(opts Options) []string

func (f ArgsFunc) Args(opts Options) ([]string, error) {
	return f(opts), nil
}

// Descriptor describes one external tool. It is treated as immutable once
// handed to a Factory and may back any number of concurrent invocations.
type Descriptor struct {
	Name            string
	Command         string
	Args            ArgsBuilder
	RequiredOptions []string
	// FixturePath is the canned output used in replay mode. Empty means the
	// tool cannot be replayed.
	FixturePath string
}

func (d Descriptor) label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Command
}

// MissingOptionError reports a required option absent from an invocation.
type MissingOptionError struct {
	Tool   string
	Option string
}

func (e *MissingOptionError) Error() string {
	return fmt.Sprintf("%s: option %s must be defined", e.Tool, e.Option)
}

// Result is the terminal outcome of an invocation.
//
// Err is set when the process could not be launched or the fixture could not
// be read; ExitCode is then -1. Otherwise exactly one of ExitCode and Signal is
// meaningful: Signal names the terminating signal (e.g. "SIGTERM") and
// ExitCode is -1, or Signal is empty and ExitCode holds the exit status.
// A non-zero exit is not an error.
type Result struct {
	Err      error
	ExitCode int
	Signal   string
}

// Success reports a clean zero exit.
func (r Result) Success() bool {
	return r.Err == nil && r.Signal == "" && r.ExitCode == 0
}

func (r Result) String() string {
	switch {
	case r.Err != nil:
		return fmt.Sprintf("error: %v", r.Err)
	case r.Signal != "":
		return fmt.Sprintf("terminated by %s", r.Signal)
	default:
		return fmt.Sprintf("exit code %d", r.ExitCode)
	}
}

// Process is a handle on a running external process.
type Process struct {
	proc *os.Process
}

func (p *Process) Pid() int {
	return p.proc.Pid
}

// Signal sends sig to the process.
func (p *Process) Signal(sig os.Signal) error {
	return p.proc.Signal(sig)
}

// Kill terminates the process and everything in its process group
// immediately.
func (p *Process) Kill() error {
	return system.KillGroup(p.proc)
}

// OutputFunc receives successive fragments of combined output.
type OutputFunc func(text string)

// DoneFunc receives the terminal result of an invocation.
type DoneFunc func(res Result)

// Runner executes a bound Descriptor.
type Runner interface {
	// Descriptor returns the descriptor this runner is bound to.
	Descriptor() Descriptor
	// Run validates opts and starts the invocation, returning immediately.
	// A missing required option or an argument resolution failure is
	// returned synchronously and no callback fires. Otherwise onOutput is
	// called zero or more times, never concurrently, and then onDone exactly
	// once. The returned Process is nil in replay mode and when the launch
	// failed.
	Run(opts Options, onDone DoneFunc, onOutput OutputFunc) (*Process, error)
	// Start is the channel-based form of Run.
	Start(ctx context.Context, opts Options) (*Invocation, error)
}

func commandLine(command string, args []string) string {
	return strings.TrimSpace(command + " " + strings.Join(args, " "))
}
