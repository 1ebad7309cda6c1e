package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugoduncan/mcp-tasks/internal/ops"
	"github.com/hugoduncan/mcp-tasks/internal/ui"
)

var deleteCmd = &cobra.Command{
	Use:   "delete-task <task-id>",
	Short: "Mark a task deleted",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		taskID := parseTaskID(args[0])
		yes, _ := cmd.Flags().GetBool("yes")

		if !yes && !jsonOutput && ui.IsTerminal() {
			if !ui.PromptYesNo(fmt.Sprintf("Delete task %d?", taskID), false) {
				fatalErrorRespectJSON("delete-task: canceled")
			}
		}

		cfg := loadConfig()
		emit(ops.DeleteTask(opsContext(), cfg, ops.DeleteTaskArgs{TaskID: taskID}))
	},
}

func init() {
	deleteCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(deleteCmd)
}
