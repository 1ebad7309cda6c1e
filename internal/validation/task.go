// Package validation composes task validators into chains the operation
// surface (C9) runs before handing a mutation to the repository. The
// chains run inside the sync engine's locked section, after the reload,
// so a rejected precondition never reaches the file store.
package validation

import (
	"fmt"

	"github.com/hugoduncan/mcp-tasks/internal/tasks"
)

// TaskValidator validates a task and returns an error if validation
// fails. Validators compose with Chain for multi-step preconditions.
type TaskValidator func(id int64, t *tasks.Task) error

// Chain composes multiple validators into one. They run in order; the
// first error stops the chain.
func Chain(validators ...TaskValidator) TaskValidator {
	return func(id int64, t *tasks.Task) error {
		for _, v := range validators {
			if err := v(id, t); err != nil {
				return err
			}
		}
		return nil
	}
}

// Exists validates that a task was found.
func Exists() TaskValidator {
	return func(id int64, t *tasks.Task) error {
		if t == nil {
			return fmt.Errorf("task %d not found", id)
		}
		return nil
	}
}

// NotClosed validates that a task is not already closed.
func NotClosed() TaskValidator {
	return func(id int64, t *tasks.Task) error {
		if t == nil {
			return nil
		}
		if t.Status == tasks.StatusClosed {
			return fmt.Errorf("task %d is already closed", id)
		}
		return nil
	}
}

// NotDeleted validates that a task is not already deleted.
func NotDeleted() TaskValidator {
	return func(id int64, t *tasks.Task) error {
		if t == nil {
			return nil
		}
		if t.Status == tasks.StatusDeleted {
			return fmt.Errorf("task %d is already deleted", id)
		}
		return nil
	}
}

// HasStatus validates that a task is in one of the allowed statuses.
func HasStatus(allowed ...tasks.Status) TaskValidator {
	return func(id int64, t *tasks.Task) error {
		if t == nil {
			return nil
		}
		for _, s := range allowed {
			if t.Status == s {
				return nil
			}
		}
		return fmt.Errorf("task %d has status %s, expected one of: %v", id, t.Status, allowed)
	}
}

// HasType validates that a task is one of the allowed types.
func HasType(allowed ...tasks.Type) TaskValidator {
	return func(id int64, t *tasks.Task) error {
		if t == nil {
			return nil
		}
		for _, tt := range allowed {
			if t.Type == tt {
				return nil
			}
		}
		return fmt.Errorf("task %d has type %s, expected one of: %v", id, t.Type, allowed)
	}
}

// NoBlockingChildren validates that none of children is in a blocking
// status (spec I2: "cannot transition to closed by completing the
// parent"; used by both complete and delete).
func NoBlockingChildren(children []*tasks.Task) TaskValidator {
	return func(id int64, t *tasks.Task) error {
		for _, c := range children {
			if c.Status.IsBlockingStatus() {
				return fmt.Errorf("task %d has blocking child %d (status %s)", id, c.ID, c.Status)
			}
		}
		return nil
	}
}

// AllChildrenResolved validates that every child is closed or deleted;
// stories additionally require this beyond NoBlockingChildren (spec I2:
// "stories additionally require all children closed or deleted").
func AllChildrenResolved(children []*tasks.Task) TaskValidator {
	return func(id int64, t *tasks.Task) error {
		for _, c := range children {
			if !c.Status.IsArchived() {
				return fmt.Errorf("story %d has unresolved child %d (status %s)", id, c.ID, c.Status)
			}
		}
		return nil
	}
}

// ForComplete returns the validator chain for complete-task: the task
// must exist, not already be archived, and (if it is a story) have every
// child resolved; non-story parents only require no blocking children.
func ForComplete(children []*tasks.Task) TaskValidator {
	return func(id int64, t *tasks.Task) error {
		chain := Chain(Exists(), NotClosed(), NotDeleted())
		if err := chain(id, t); err != nil {
			return err
		}
		if t != nil && t.Type == tasks.TypeStory {
			return AllChildrenResolved(children)(id, t)
		}
		return NoBlockingChildren(children)(id, t)
	}
}

// ForDelete returns the validator chain for delete-task: the task must
// exist, not already be deleted, and have no blocking children.
func ForDelete(children []*tasks.Task) TaskValidator {
	return Chain(
		Exists(),
		NotDeleted(),
		NoBlockingChildren(children),
	)
}

// ForReopen returns the validator chain for reopen-task: the task must
// exist and be closed.
func ForReopen() TaskValidator {
	return Chain(
		Exists(),
		HasStatus(tasks.StatusClosed),
	)
}
