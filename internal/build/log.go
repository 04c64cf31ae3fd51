// Package build provides the small pieces of logging infrastructure every
// subsystem package's log.go wires itself up to: a multi-writer that fans
// log lines out to stdout and a rotated log file, and a constructor for a
// per-subsystem sublogger sharing one backend.
package build

import (
	"io"
	"os"
	"sync"

	"github.com/btcsuite/btclog"
)

// LogWriter is an io.Writer that always writes to stdout, and also writes
// to RotatorPipe once initLogRotator has set it. Subsystem loggers are
// constructed before the rotator exists, so this indirection lets them
// start writing to stdout immediately and pick up file rotation the moment
// it becomes available.
type LogWriter struct {
	mu          sync.RWMutex
	RotatorPipe io.Writer
}

// Write implements io.Writer.
func (w *LogWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)

	w.mu.RLock()
	pipe := w.RotatorPipe
	w.mu.RUnlock()

	if pipe != nil {
		return pipe.Write(p)
	}
	return len(p), nil
}

// SetRotatorPipe installs the file-rotation destination.
func (w *LogWriter) SetRotatorPipe(pipe io.Writer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.RotatorPipe = pipe
}

// NewSubLogger returns a logger tagged with subsystem. loggerFor is a
// *btclog.Backend's Logger method value, passed in rather than the backend
// itself so this package doesn't need to import btclog's backend type
// directly.
func NewSubLogger(subsystem string, loggerFor func(string) btclog.Logger) btclog.Logger {
	return loggerFor(subsystem)
}
