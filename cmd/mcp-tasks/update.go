package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/hugoduncan/mcp-tasks/internal/ops"
)

var updateCmd = &cobra.Command{
	Use:   "update-task <task-id>",
	Short: "Update fields on an existing task",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		taskID := parseTaskID(args[0])

		patch := map[string]interface{}{}
		stringFlag(cmd, "title", patch, "title")
		stringFlag(cmd, "description", patch, "description")
		stringFlag(cmd, "design", patch, "design")
		stringFlag(cmd, "category", patch, "category")
		stringFlag(cmd, "type", patch, "type")
		stringFlag(cmd, "status", patch, "status")
		stringFlag(cmd, "shared-context-append", patch, "shared-context-append")

		if cmd.Flags().Changed("parent-id") {
			parentID, _ := cmd.Flags().GetInt64("parent-id")
			patch["parent-id"] = parentID
		}
		if mark, _ := cmd.Flags().GetBool("mark-code-reviewed"); mark {
			patch["code-reviewed"] = time.Now().UTC().Format(time.RFC3339)
		} else if cmd.Flags().Changed("code-reviewed") {
			v, _ := cmd.Flags().GetString("code-reviewed")
			patch["code-reviewed"] = v
		}
		if cmd.Flags().Changed("pr-num") {
			v, _ := cmd.Flags().GetInt64("pr-num")
			patch["pr-num"] = v
		}

		if len(patch) == 0 {
			fatalErrorRespectJSON("update-task: no fields to update")
		}

		cfg := loadConfig()
		emit(ops.UpdateTask(opsContext(), cfg, ops.UpdateTaskArgs{TaskID: taskID, Patch: patch}))
	},
}

func stringFlag(cmd *cobra.Command, flag string, patch map[string]interface{}, key string) {
	if !cmd.Flags().Changed(flag) {
		return
	}
	v, _ := cmd.Flags().GetString(flag)
	patch[key] = v
}

func init() {
	updateCmd.Flags().String("title", "", "new title")
	updateCmd.Flags().String("description", "", "new description")
	updateCmd.Flags().String("design", "", "new design notes")
	updateCmd.Flags().String("category", "", "new category")
	updateCmd.Flags().String("type", "", "new type")
	updateCmd.Flags().String("status", "", "new status")
	updateCmd.Flags().Int64("parent-id", 0, "new parent story id")
	updateCmd.Flags().String("code-reviewed", "", "ISO-8601 UTC code-review timestamp, or \"\" to clear")
	updateCmd.Flags().Bool("mark-code-reviewed", false, "set code-reviewed to the current time")
	updateCmd.Flags().Int64("pr-num", 0, "associated pull request number")
	updateCmd.Flags().String("shared-context-append", "", "text to append to shared-context")
	rootCmd.AddCommand(updateCmd)
}
