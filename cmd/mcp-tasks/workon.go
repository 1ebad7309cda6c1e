package main

import (
	"github.com/spf13/cobra"

	"github.com/hugoduncan/mcp-tasks/internal/ops"
)

var workOnCmd = &cobra.Command{
	Use:   "work-on <task-id>",
	Short: "Prepare the branch/worktree environment for a task",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		taskID := parseTaskID(args[0])
		cfg := loadConfig()
		emit(ops.WorkOn(opsContext(), cfg, ops.WorkOnArgs{TaskID: taskID}))
	},
}

func init() {
	rootCmd.AddCommand(workOnCmd)
}
