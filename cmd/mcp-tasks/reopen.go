package main

import (
	"github.com/spf13/cobra"

	"github.com/hugoduncan/mcp-tasks/internal/ops"
)

var reopenCmd = &cobra.Command{
	Use:   "reopen-task <task-id>",
	Short: "Move a closed task back to open",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		taskID := parseTaskID(args[0])
		cfg := loadConfig()
		emit(ops.ReopenTask(opsContext(), cfg, ops.ReopenTaskArgs{TaskID: taskID}))
	},
}

func init() {
	rootCmd.AddCommand(reopenCmd)
}
