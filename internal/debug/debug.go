// Package debug provides a single opt-in diagnostic logger, gated by an
// environment variable rather than a config flag so it is available
// before configuration has resolved.
package debug

import (
	"fmt"
	"os"
)

const envVar = "MCP_TASKS_DEBUG"

// Logf writes a formatted diagnostic line to stderr when MCP_TASKS_DEBUG
// is set to a non-empty value. It is a no-op otherwise.
func Logf(format string, args ...interface{}) {
	if os.Getenv(envVar) == "" {
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
