// Package schedlog wraps a zerolog.Logger behind one package-level
// sink, a verbosity gate (Verbose), and structured call sites in
// place of formatted strings.
package schedlog

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Verbose gates Debug-level output.
var Verbose = false

var base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
	With().
	Timestamp().
	Logger()

// Logger returns the package-level sink, leveled by Verbose.
func Logger() zerolog.Logger {
	if Verbose {
		return base.Level(zerolog.DebugLevel)
	}
	return base.Level(zerolog.InfoLevel)
}

// Event is a convenience for the common case: a debug-level line
// naming the handler, the CPU, and (optionally) a process, used by
// every event handler in the scheduler package.
func Event(handler string, cpuID int, pid uint64, extra map[string]any) {
	ev := Logger().Debug().Str("handler", handler).Int("cpu", cpuID)
	if pid != 0 {
		ev = ev.Uint64("pid", pid)
	}
	for k, v := range extra {
		ev = ev.Interface(k, v)
	}
	ev.Msg("scheduler event")
}
