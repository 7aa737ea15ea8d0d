package runner

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"procrunner/pkg/log"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// recorder captures the callbacks of one invocation.
type recorder struct {
	mu        sync.Mutex
	outputs   []string
	results   []Result
	lateCalls int
	done      chan struct{}
}

func newRecorder() *recorder {
	return &recorder{done: make(chan struct{})}
}

func (r *recorder) onOutput(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.results) > 0 {
		r.lateCalls++
	}
	r.outputs = append(r.outputs, text)
}

func (r *recorder) onDone(res Result) {
	r.mu.Lock()
	r.results = append(r.results, res)
	first := len(r.results) == 1
	r.mu.Unlock()
	if first {
		close(r.done)
	}
}

func (r *recorder) wait(t *testing.T) Result {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for completion")
	}
	// Give a misbehaving runner the chance to call back again.
	time.Sleep(50 * time.Millisecond)

	r.mu.Lock()
	defer r.mu.Unlock()
	require.Len(t, r.results, 1, "onDone must fire exactly once")
	require.Zero(t, r.lateCalls, "onOutput must not fire after onDone")
	return r.results[0]
}

func (r *recorder) combined() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.outputs, "")
}

func (r *recorder) lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.outputs...)
}

func (r *recorder) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outputs) + len(r.results)
}

func setupFactory(t *testing.T, replay bool) (*Factory, afero.Fs, *bytes.Buffer) {
	t.Helper()
	fs := afero.NewMemMapFs()
	var buf bytes.Buffer
	factory := NewFactory(Config{
		Replay: replay,
		Fs:     fs,
		Logger: log.NewSlogLogger(slog.LevelDebug, &buf),
	})
	return factory, fs, &buf
}
