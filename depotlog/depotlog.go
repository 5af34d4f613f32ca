// Package depotlog is a minimal wrapper around an io.Writer, in the same
// spirit as golang-dep's own log package: no framework, no levels beyond
// verbose/non-verbose, just formatted lines.
package depotlog

import (
	"fmt"
	"io"
	"os"
)

// Logger writes formatted engine diagnostics to an underlying io.Writer.
type Logger struct {
	io.Writer
	Verbose bool
}

// New returns a Logger that writes to w.
func New(w io.Writer) *Logger {
	return &Logger{Writer: w}
}

// Discard returns a Logger that writes nowhere, for callers that don't want
// diagnostic output (tests, library embedding).
func Discard() *Logger {
	return &Logger{Writer: io.Discard}
}

// Stderr returns a Logger writing to os.Stderr.
func Stderr() *Logger {
	return &Logger{Writer: os.Stderr}
}

// Logln logs a line.
func (l *Logger) Logln(args ...interface{}) {
	if l == nil {
		return
	}
	fmt.Fprintln(l, args...)
}

// Logf logs a formatted string, without a trailing newline.
func (l *Logger) Logf(format string, args ...interface{}) {
	if l == nil {
		return
	}
	fmt.Fprintf(l, format, args...)
}

// Debugf logs only when Verbose is set.
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l == nil || !l.Verbose {
		return
	}
	fmt.Fprintf(l, "[debug] "+format+"\n", args...)
}
