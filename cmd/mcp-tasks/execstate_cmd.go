package main

import (
	"github.com/spf13/cobra"

	"github.com/hugoduncan/mcp-tasks/internal/ops"
)

var executionStateCmd = &cobra.Command{
	Use:   "execution-state <write|clear>",
	Short: "Write or clear the execution state file directly",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		esArgs := ops.ExecutionStateArgs{Action: args[0]}
		if cmd.Flags().Changed("task-id") {
			id, _ := cmd.Flags().GetInt64("task-id")
			esArgs.TaskID = &id
		}
		if cmd.Flags().Changed("story-id") {
			id, _ := cmd.Flags().GetInt64("story-id")
			esArgs.StoryID = &id
		}
		emit(ops.ExecutionState(opsContext(), esArgs))
	},
}

func init() {
	executionStateCmd.Flags().Int64("task-id", 0, "task id to record")
	executionStateCmd.Flags().Int64("story-id", 0, "parent story id to record")
	rootCmd.AddCommand(executionStateCmd)
}
