package system

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// ExitStatus describes how a finished process terminated.
// Code is -1 when the process was terminated by a signal.
type ExitStatus struct {
	Code   int
	Signal string
}

// Cmd is a started external process with its output pipes.
type Cmd struct {
	cmd    *exec.Cmd
	Stdout io.ReadCloser
	Stderr io.ReadCloser
}

// Start launches name with args passed as a literal argument vector.
// No shell is involved and stdin is left unconnected. The process leads its
// own process group so KillGroup also reaches anything it spawned.
func Start(name string, args []string) (*Cmd, error) {
	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("error creating stdout pipe for %s: %w", name, err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return nil, fmt.Errorf("error creating stderr pipe for %s: %w", name, err)
	}

	cmd := exec.Command(name, args...)
	cmd.Stdout = outW
	cmd.Stderr = errW
	setProcessGroup(cmd)

	err = cmd.Start()
	// The child holds its own copies of the write ends.
	outW.Close()
	errW.Close()
	if err != nil {
		outR.Close()
		errR.Close()
		return nil, err
	}
	return &Cmd{cmd: cmd, Stdout: outR, Stderr: errR}, nil
}

// Process returns the underlying OS process.
func (c *Cmd) Process() *os.Process {
	return c.cmd.Process
}

// Wait waits for the process to exit. It does not wait for the pipes: output
// may still be buffered, and a descendant that inherited them can keep them
// open after the process is gone. A non-zero exit or a signal is reported in
// the status, not as an error.
func (c *Cmd) Wait() (ExitStatus, error) {
	err := c.cmd.Wait()
	state := c.cmd.ProcessState
	if state == nil {
		return ExitStatus{Code: -1}, err
	}

	status := ExitStatus{Code: state.ExitCode()}
	if sig, ok := signalName(state); ok {
		status.Code = -1
		status.Signal = sig
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return status, err
	}
	return status, nil
}

// CloseOutput closes the read ends of both pipes. Blocked reads return
// os.ErrClosed.
func (c *Cmd) CloseOutput() {
	c.Stdout.Close()
	c.Stderr.Close()
}
