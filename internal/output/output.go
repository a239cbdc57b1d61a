// Package output provides the print/error sink consumed by the
// builder and the watcher.
package output

import (
	"fmt"
	"log"
)

// Sink is the minimal progress/error reporting surface the core
// depends on. It is intentionally narrower than *log.Logger so that
// tests can substitute a silent or buffering implementation.
type Sink interface {
	Print(format string, args ...any)
	Error(format string, args ...any)
}

// Logger adapts a standard library *log.Logger to Sink.
type Logger struct {
	*log.Logger
}

// NewLogger returns a Sink backed by l.
func NewLogger(l *log.Logger) Logger {
	return Logger{Logger: l}
}

// Print writes a progress message.
func (l Logger) Print(format string, args ...any) {
	l.Logger.Print(fmt.Sprintf(format, args...))
}

// Error writes an error message, prefixed so it's distinguishable from
// progress output in a shared stream.
func (l Logger) Error(format string, args ...any) {
	l.Logger.Print("error: " + fmt.Sprintf(format, args...))
}

// Discard is a Sink that drops everything; useful in tests that don't
// care about progress/error text.
type Discard struct{}

func (Discard) Print(string, ...any) {}
func (Discard) Error(string, ...any) {}
