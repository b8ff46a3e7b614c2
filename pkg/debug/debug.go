// Package debug provides conditional debug logging for evomap.
//
// Debug logging is enabled by setting the EVOMAP_DEBUG environment variable:
//
//	EVOMAP_DEBUG=1 evomap
//
// When enabled, debug messages are written to stderr with timestamps.
// When disabled (default), all debug functions are no-ops with zero overhead.
package debug

import (
	"fmt"
	"log"
	"os"
	"time"
)

var (
	// enabled is true when EVOMAP_DEBUG env var is set
	enabled bool
	// logger writes to stderr with [EVOMAP] prefix
	logger *log.Logger
)

func init() {
	if os.Getenv("EVOMAP_DEBUG") != "" {
		enabled = true
		logger = log.New(os.Stderr, "[EVOMAP] ", log.Ltime|log.Lmicroseconds)
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, "[EVOMAP] ", log.Ltime|log.Lmicroseconds)
	}
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	logger.Output(2, fmt.Sprintf(format, args...))
}

// LogTiming logs the duration of an operation.
func LogTiming(operation string, elapsed time.Duration) {
	if !enabled {
		return
	}
	logger.Output(2, fmt.Sprintf("%s took %s", operation, elapsed))
}
