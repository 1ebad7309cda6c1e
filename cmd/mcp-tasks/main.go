// Command mcp-tasks is a CLI adapter over the task operation surface
// (internal/ops). The MCP transport is a separate, thin adapter over the
// same surface.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
