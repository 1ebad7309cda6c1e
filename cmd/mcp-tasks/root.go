package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hugoduncan/mcp-tasks/internal/config"
	"github.com/hugoduncan/mcp-tasks/internal/ops"
	"github.com/hugoduncan/mcp-tasks/internal/ui"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "mcp-tasks",
	Short: "Task tracking for AI coding agents",
	Long: `mcp-tasks manages a task queue backed by plain-text files under
version control, exposing the same operations over MCP tools/prompts and
this CLI.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON instead of formatted text")
}

// loadConfig resolves configuration starting from the process working
// directory, exiting the process on failure.
func loadConfig() *config.Resolved {
	wd, err := os.Getwd()
	if err != nil {
		fatalErrorRespectJSON("getting working directory: %v", err)
	}
	cfg, err := config.Load(wd)
	if err != nil {
		fatalErrorRespectJSON("loading configuration: %v", err)
	}
	return cfg
}

// opsContext builds the operation-surface Context for the current process.
func opsContext() ops.Context {
	wd, err := os.Getwd()
	if err != nil {
		fatalErrorRespectJSON("getting working directory: %v", err)
	}
	return ops.Context{WorkingDir: wd}
}

// fatalErrorRespectJSON prints an error, as a JSON error object when
// --json is set, and exits non-zero.
func fatalErrorRespectJSON(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if jsonOutput {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"error": msg})
	} else {
		fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderFail("✗"), msg)
	}
	os.Exit(1)
}

// emit renders an operation Response, respecting --json.
func emit(resp ops.Response) {
	if jsonOutput {
		if err := json.NewEncoder(os.Stdout).Encode(resp); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		if resp.IsError {
			os.Exit(1)
		}
		return
	}

	for i, chunk := range resp.Chunks {
		switch {
		case chunk.Text != "" && i == 0 && resp.IsError:
			fmt.Printf("%s %s\n", ui.RenderFail("✗"), chunk.Text)
		case chunk.Text != "" && i == 0:
			fmt.Printf("%s %s\n", ui.RenderPass("✓"), chunk.Text)
		case chunk.Text != "":
			fmt.Printf("%s %s\n", ui.RenderWarn("!"), chunk.Text)
		case chunk.JSON != nil:
			b, err := json.MarshalIndent(chunk.JSON, "", "  ")
			if err == nil {
				fmt.Println(string(b))
			}
		}
	}
	if resp.IsError {
		os.Exit(1)
	}
}
