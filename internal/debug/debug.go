package debug

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

var enabled atomic.Bool

// Enable turns on packet tracing.
func Enable() {
	enabled.Store(true)
}

// Disable turns off packet tracing.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether packet tracing is enabled.
func IsEnabled() bool {
	return enabled.Load()
}

// Tracef logs a trace message if tracing is enabled. The atomic gate keeps
// the per-packet call cheap when tracing is off.
func Tracef(format string, v ...any) {
	if enabled.Load() {
		slog.Debug(fmt.Sprintf(format, v...))
	}
}
