package ops

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hugoduncan/mcp-tasks/internal/lock"
	"github.com/hugoduncan/mcp-tasks/internal/tasks"
)

// ErrKind classifies an operation-surface error per the taxonomy (spec
// §7): validation, not-found, state, lock, sync, git, and
// cleanup-warning (the last one never reaches Error — it degrades to a
// warning string appended to a successful Response instead).
type ErrKind string

const (
	ErrValidation ErrKind = "validation"
	ErrNotFound   ErrKind = "not-found"
	ErrState      ErrKind = "state"
	ErrLock       ErrKind = "lock"
	ErrSync       ErrKind = "sync"
	ErrGit        ErrKind = "git"
)

// Error is the structured payload every operation returns on failure
// (spec §7: "every error carries a structured payload with
// attempted-operation and enough context to retry").
type Error struct {
	Kind               ErrKind
	AttemptedOperation string
	Message            string
	CycleIDs           []int64
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.AttemptedOperation, e.Message)
}

// wrap converts any error surfaced by a lower layer into a structured
// *Error at the operation boundary (spec §9 "convert only at the public
// boundary"), classifying it by inspecting the concrete error types the
// core layers are known to return.
func wrap(op string, err error) *Error {
	if err == nil {
		return nil
	}

	var alreadyWrapped *Error
	if errors.As(err, &alreadyWrapped) {
		return alreadyWrapped
	}

	var taskErr *tasks.Error
	if errors.As(err, &taskErr) {
		kind := ErrValidation
		switch taskErr.Kind {
		case tasks.ErrNotFound:
			kind = ErrNotFound
		case tasks.ErrState:
			kind = ErrState
		}
		return &Error{Kind: kind, AttemptedOperation: op, Message: taskErr.Error(), CycleIDs: taskErr.CycleIDs}
	}

	if errors.Is(err, lock.ErrTimeout) {
		return &Error{Kind: ErrLock, AttemptedOperation: op, Message: err.Error()}
	}

	msg := err.Error()
	if strings.Contains(msg, "syncengine: sync pull") {
		return &Error{Kind: ErrSync, AttemptedOperation: op, Message: msg}
	}
	if strings.Contains(msg, "git:") {
		return &Error{Kind: ErrGit, AttemptedOperation: op, Message: msg}
	}
	return &Error{Kind: ErrValidation, AttemptedOperation: op, Message: msg}
}
