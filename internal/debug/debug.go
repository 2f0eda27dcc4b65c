// Package debug provides the engine's diagnostic logging channel.
//
// stdout is reserved exclusively for the line-delimited JSON protocol
// (spec §6.1); nothing in this package ever writes there. Diagnostic
// output defaults to stderr and can be redirected (e.g. to a file) by the
// CLI entry point, or silenced entirely by setting the writer to nil.
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// EnableDebug is a build-time flag, overridable via:
//
//	go build -ldflags "-X github.com/standardbeagle/logviewer-engine/internal/debug.EnableDebug=true"
var EnableDebug = "false"

var (
	mu     sync.Mutex
	output io.Writer = os.Stderr
)

// SetOutput redirects diagnostic output. Pass nil to silence it entirely.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return output
}

// Enabled reports whether verbose debug logging is on, via build flag or
// the DEBUG environment variable.
func Enabled() bool {
	if EnableDebug == "true" {
		return true
	}
	v := os.Getenv("DEBUG")
	return v == "1" || v == "true"
}

// Logf writes a component-tagged diagnostic line when debug logging is
// enabled. It is silent (and allocation-free beyond the format call) when
// debug mode is off, so call sites can log liberally on hot paths.
func Logf(component, format string, args ...interface{}) {
	if !Enabled() {
		return
	}
	w := writer()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[%s] "+format+"\n", append([]interface{}{component}, args...)...)
}

// LogTail logs tail-watcher lifecycle and poll activity (C7).
func LogTail(format string, args ...interface{}) { Logf("tail", format, args...) }

// LogSearch logs chunked-search progress and per-chunk failures (C6).
func LogSearch(format string, args ...interface{}) { Logf("search", format, args...) }

// LogProtocol logs command-router dispatch activity (C8).
func LogProtocol(format string, args ...interface{}) { Logf("protocol", format, args...) }

// Warn always writes, regardless of debug mode — used for conditions an
// operator should see even without DEBUG set, such as a malformed command
// line or a watcher error. It still never touches stdout.
func Warn(format string, args ...interface{}) {
	w := writer()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[warn] "+format+"\n", args...)
}
