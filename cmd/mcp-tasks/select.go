package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hugoduncan/mcp-tasks/internal/ops"
	"github.com/hugoduncan/mcp-tasks/internal/tasks"
	"github.com/hugoduncan/mcp-tasks/internal/ui"
)

var selectCmd = &cobra.Command{
	Use:   "select-tasks",
	Short: "Query tasks",
	Run: func(cmd *cobra.Command, args []string) {
		selArgs := ops.SelectTasksArgs{}

		if cmd.Flags().Changed("task-id") {
			id, _ := cmd.Flags().GetInt64("task-id")
			selArgs.TaskID = &id
		}
		if cmd.Flags().Changed("parent-id") {
			id, _ := cmd.Flags().GetInt64("parent-id")
			selArgs.ParentID = &id
		}
		selArgs.Category, _ = cmd.Flags().GetString("category")
		selArgs.TitlePattern, _ = cmd.Flags().GetString("title-pattern")
		typeStr, _ := cmd.Flags().GetString("type")
		selArgs.Type = tasks.Type(typeStr)
		selArgs.Status, _ = cmd.Flags().GetString("status")
		selArgs.Limit, _ = cmd.Flags().GetInt("limit")
		selArgs.Unique, _ = cmd.Flags().GetBool("unique")

		cfg := loadConfig()
		resp := ops.SelectTasks(cfg, selArgs)
		if jsonOutput || resp.IsError {
			emit(resp)
			return
		}

		result, ok := lastJSONChunk(resp)
		if !ok {
			emit(resp)
			return
		}
		sel, ok := result.(ops.SelectTasksResult)
		if !ok {
			emit(resp)
			return
		}
		renderTaskTable(sel)
	},
}

func lastJSONChunk(resp ops.Response) (interface{}, bool) {
	for i := len(resp.Chunks) - 1; i >= 0; i-- {
		if resp.Chunks[i].JSON != nil {
			return resp.Chunks[i].JSON, true
		}
	}
	return nil, false
}

func renderTaskTable(sel ops.SelectTasksResult) {
	t := ui.NewTaskTable(ui.GetWidth())
	t.Headers("ID", "Type", "Status", "Category", "Title", "Reviewed")
	for _, task := range sel.Tasks {
		t.Row(fmt.Sprintf("%d", task.ID), string(task.Type), string(task.Status), task.Category, task.Title, humanizedReviewTime(task.CodeReviewed))
	}
	fmt.Println(t.Render())
	fmt.Printf("%s matching task(s)\n", humanize.Comma(int64(sel.TotalMatches)))
}

// humanizedReviewTime renders a task's code-reviewed timestamp as a
// relative duration ("3 days ago"), or "-" when unset or unparseable.
func humanizedReviewTime(reviewed *string) string {
	if reviewed == nil {
		return "-"
	}
	t, err := time.Parse(time.RFC3339, *reviewed)
	if err != nil {
		return "-"
	}
	return humanize.Time(t)
}

func init() {
	selectCmd.Flags().Int64("task-id", 0, "match a specific task id")
	selectCmd.Flags().Int64("parent-id", 0, "match children of a story")
	selectCmd.Flags().String("category", "", "filter by category")
	selectCmd.Flags().String("title-pattern", "", "filter by title substring/regex")
	selectCmd.Flags().String("type", "", "filter by type")
	selectCmd.Flags().String("status", "", "filter by status (\"any\" includes archived)")
	selectCmd.Flags().Int("limit", 0, "maximum number of results")
	selectCmd.Flags().Bool("unique", false, "error unless exactly one task matches")
	rootCmd.AddCommand(selectCmd)
}
