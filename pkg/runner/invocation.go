package runner

import (
	"context"
	"sync"
)

// Invocation is one running execution started with Runner.Start.
//
// Output yields fragments in delivery order and is closed after the last one.
// Delivery blocks until each fragment is received, so callers must either
// drain Output or call Wait.
type Invocation struct {
	id         string
	output     chan string
	done       chan struct{}
	result     Result
	process    *Process
	cancelOnce sync.Once
}

func newInvocation() *Invocation {
	return &Invocation{
		output: make(chan string),
		done:   make(chan struct{}),
	}
}

func (inv *Invocation) deliver(text string) {
	inv.output <- text
}

func (inv *Invocation) finish(res Result) {
	inv.result = res
	close(inv.output)
	close(inv.done)
}

// ID identifies the invocation in log records.
func (inv *Invocation) ID() string {
	return inv.id
}

func (inv *Invocation) Output() <-chan string {
	return inv.output
}

// Done is closed once the result is available.
func (inv *Invocation) Done() <-chan struct{} {
	return inv.done
}

// Process returns the live process handle, or nil in replay mode and after
// a failed launch.
func (inv *Invocation) Process() *Process {
	return inv.process
}

// Wait discards any fragments not yet received and returns the result.
func (inv *Invocation) Wait() Result {
	for range inv.output {
	}
	<-inv.done
	return inv.result
}

// Cancel kills the underlying process. The result then reports the signal
// like any other termination. Replayed invocations are not affected.
func (inv *Invocation) Cancel() {
	inv.cancelOnce.Do(func() {
		if inv.process == nil {
			return
		}
		// os.ErrProcessDone just means it already exited.
		_ = inv.process.Kill()
	})
}

// Collect starts r and gathers every output fragment.
func Collect(ctx context.Context, r Runner, opts Options) ([]string, Result, error) {
	inv, err := r.Start(ctx, opts)
	if err != nil {
		return nil, Result{}, err
	}
	var fragments []string
	for text := range inv.Output() {
		fragments = append(fragments, text)
	}
	return fragments, inv.Wait(), nil
}
