package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/hugoduncan/mcp-tasks/internal/execstate"
	"github.com/hugoduncan/mcp-tasks/internal/ops"
)

var completeCmd = &cobra.Command{
	Use:   "complete-task <task-id>",
	Short: "Mark a task complete",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		taskID := parseTaskID(args[0])
		comment, _ := cmd.Flags().GetString("comment")

		cfg := loadConfig()
		c := opsContext()

		worktreeDir := ""
		if state := execstate.Read(c.WorkingDir); state != nil && state.TaskID != nil && *state.TaskID == taskID {
			if wd, err := os.Getwd(); err == nil {
				worktreeDir = wd
			}
		}

		emit(ops.CompleteTask(c, cfg, ops.CompleteTaskArgs{
			TaskID:            taskID,
			CompletionComment: comment,
			WorktreeDir:       worktreeDir,
		}))
	},
}

func init() {
	completeCmd.Flags().String("comment", "", "completion comment")
	rootCmd.AddCommand(completeCmd)
}
