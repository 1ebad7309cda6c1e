package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/hugoduncan/mcp-tasks/internal/ops"
	"github.com/hugoduncan/mcp-tasks/internal/tasks"
	"github.com/hugoduncan/mcp-tasks/internal/ui"
)

var addCmd = &cobra.Command{
	Use:   "add-task",
	Short: "Create a task",
	Long: `Create a task.

Without flags and on a TTY, prompts interactively for the required and
optional fields.`,
	Run: func(cmd *cobra.Command, args []string) {
		category, _ := cmd.Flags().GetString("category")
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		taskType, _ := cmd.Flags().GetString("type")
		parentID, _ := cmd.Flags().GetInt64("parent-id")
		hasParent := cmd.Flags().Changed("parent-id")
		prepend, _ := cmd.Flags().GetBool("prepend")

		if title == "" && ui.IsTerminal() && !jsonOutput {
			runAddForm(&category, &title, &description, &taskType)
		}

		if title == "" {
			fatalErrorRespectJSON("add-task: title is required")
		}
		if category == "" {
			fatalErrorRespectJSON("add-task: category is required")
		}

		t := tasks.Type(taskType)
		if t == "" {
			t = tasks.TypeTask
		}
		if !t.IsValid() {
			fatalErrorRespectJSON("add-task: invalid type %q", taskType)
		}

		cfg := loadConfig()
		addArgs := ops.AddTaskArgs{
			Category:    category,
			Title:       title,
			Description: description,
			Type:        t,
			Prepend:     prepend,
		}
		if hasParent {
			addArgs.ParentID = &parentID
		}

		emit(ops.AddTask(opsContext(), cfg, addArgs))
	},
}

func runAddForm(category, title, description, taskType *string) {
	typeOptions := []huh.Option[string]{
		huh.NewOption("Task", string(tasks.TypeTask)),
		huh.NewOption("Bug", string(tasks.TypeBug)),
		huh.NewOption("Feature", string(tasks.TypeFeature)),
		huh.NewOption("Story", string(tasks.TypeStory)),
		huh.NewOption("Chore", string(tasks.TypeChore)),
	}
	*taskType = string(tasks.TypeTask)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Category").
				Description("Where this task's notes live (required)").
				Value(category).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("category is required")
					}
					return nil
				}),

			huh.NewInput().
				Title("Title").
				Description("Brief summary of the task (required)").
				Value(title).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("title is required")
					}
					return nil
				}),

			huh.NewText().
				Title("Description").
				Description("Context about the task (optional)").
				Value(description),

			huh.NewSelect[string]().
				Title("Type").
				Options(typeOptions...).
				Value(taskType),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		if err == huh.ErrUserAborted {
			fatalErrorRespectJSON("add-task: canceled")
		}
		fatalErrorRespectJSON("add-task: %v", err)
	}
}

func init() {
	addCmd.Flags().String("category", "", "category the task belongs to")
	addCmd.Flags().String("title", "", "task title")
	addCmd.Flags().String("description", "", "task description")
	addCmd.Flags().String("type", "", "task type (task|bug|feature|story|chore)")
	addCmd.Flags().Int64("parent-id", 0, "parent story id")
	addCmd.Flags().Bool("prepend", false, "insert at the head of its category instead of the tail")
	rootCmd.AddCommand(addCmd)
}
