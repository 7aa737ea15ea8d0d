package test

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"

	"procrunner/pkg/log"
)

// MockLogger is a shared mock implementation of Logger for testing.
// It captures logged messages for verification and is safe for concurrent use.
type MockLogger struct {
	mu       sync.Mutex
	Messages []string
	Level    slog.Level
}

// NewMockLogger creates a new MockLogger with the specified level.
func NewMockLogger(level slog.Level) *MockLogger {
	return &MockLogger{
		Messages: []string{},
		Level:    level,
	}
}

func (l *MockLogger) Debug(msg string, args ...any) {
	if l.Level <= slog.LevelDebug {
		l.captureMessage("DEBUG", msg, args...)
	}
}

func (l *MockLogger) Info(msg string, args ...any) {
	if l.Level <= slog.LevelInfo {
		l.captureMessage("INFO", msg, args...)
	}
}

func (l *MockLogger) Warn(msg string, args ...any) {
	if l.Level <= slog.LevelWarn {
		l.captureMessage("WARN", msg, args...)
	}
}

func (l *MockLogger) Error(msg string, args ...any) {
	if l.Level <= slog.LevelError {
		l.captureMessage("ERROR", msg, args...)
	}
}

func (l *MockLogger) captureMessage(level, msg string, args ...any) {
	buf := &bytes.Buffer{}
	buf.WriteString(level)
	buf.WriteString(": ")
	buf.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			buf.WriteString(" ")
			buf.WriteString(fmt.Sprintf("%v", args[i]))
			buf.WriteString("=")
			buf.WriteString(fmt.Sprintf("%v", args[i+1]))
		}
	}
	l.mu.Lock()
	l.Messages = append(l.Messages, buf.String())
	l.mu.Unlock()
}

// HasMessage checks if any captured message contains the given substring.
func (l *MockLogger) HasMessage(substring string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, msg := range l.Messages {
		if bytes.Contains([]byte(msg), []byte(substring)) {
			return true
		}
	}
	return false
}

var _ log.Logger = (*MockLogger)(nil)
