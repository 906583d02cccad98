// Package logging provides best-effort stderr logging.
package logging

import (
	"fmt"
	"io"
	"os"
)

var stderr io.Writer = os.Stderr

// Func is a printf-style logger. Packages that report non-fatal problems accept one.
type Func func(format string, args ...any)

// Errf writes a formatted message to stderr.
func Errf(format string, args ...any) {
	if _, err := fmt.Fprintf(stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

// Errln writes its arguments to stderr followed by a newline.
func Errln(args ...any) {
	if _, err := fmt.Fprintln(stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

// Discard drops every message.
func Discard(string, ...any) {}

// OrDefault returns fn, or Errf when fn is nil.
func OrDefault(fn Func) Func {
	if fn == nil {
		return Errf
	}
	return fn
}
