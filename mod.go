// Package sandbox is a sandboxed execution host for untrusted smart
// contracts. Contract code (WebAssembly or built-in native) runs inside
// a controlled execution context that enforces re-entrancy policy,
// charges resource consumption against a budget, and guarantees that a
// failed invocation never leaves shared state partially mutated.
package sandbox

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logout = zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.RFC3339,
}

// Logger is a globally available logger instance. By default it writes
// to standard output with a human-friendly format. Packages derive
// their own sub-loggers from it.
var Logger = zerolog.New(logout).
	With().Timestamp().Logger().
	Level(zerolog.InfoLevel)
