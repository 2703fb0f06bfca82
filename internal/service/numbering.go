package service

import (
	"context"
	"fmt"

	"github.com/alexanderramin/tempo/internal/repository"
)

// RenumberOp is a sibling numbering operation.
type RenumberOp int

const (
	RenumberInsert RenumberOp = iota
	RenumberRemove
	RenumberMove
)

func (op RenumberOp) String() string {
	switch op {
	case RenumberInsert:
		return "insert"
	case RenumberRemove:
		return "remove"
	case RenumberMove:
		return "move"
	default:
		return fmt.Sprintf("RenumberOp(%d)", int(op))
	}
}

// Slot is a sibling position within a scope.
type Slot struct {
	Scope  repository.Scope
	Number int
}

// Renumber keeps sibling numbers contiguous from 1 in every scope it touches
// and returns the number taskID should take.
//
//   - insert opens position to.Number in to.Scope (clamped to 1..count+1,
//     zero appends). taskID must not be stored in to.Scope yet.
//   - remove closes position from.Number in from.Scope and returns 0.
//   - move closes from and opens to. taskID still holds its old number.
//
// The caller stores the returned number on the task.
func Renumber(ctx context.Context, tasks repository.TaskRepo, op RenumberOp, taskID string, from, to Slot) (int, error) {
	switch op {
	case RenumberInsert:
		return openSlot(ctx, tasks, taskID, to, false)
	case RenumberRemove:
		return 0, closeSlot(ctx, tasks, taskID, from)
	case RenumberMove:
		if err := closeSlot(ctx, tasks, taskID, from); err != nil {
			return 0, err
		}
		return openSlot(ctx, tasks, taskID, to, sameScope(from.Scope, to.Scope))
	default:
		return 0, fmt.Errorf("renumber: unknown operation %v", op)
	}
}

func closeSlot(ctx context.Context, tasks repository.TaskRepo, taskID string, from Slot) error {
	if err := tasks.ShiftSiblings(ctx, from.Scope, from.Number+1, -1, taskID); err != nil {
		return fmt.Errorf("closing position %d: %w", from.Number, err)
	}
	return nil
}

// openSlot shifts siblings at or after the target position up by one.
// selfCounted is set when taskID is already among the scope's live rows.
func openSlot(ctx context.Context, tasks repository.TaskRepo, taskID string, to Slot, selfCounted bool) (int, error) {
	count, err := tasks.CountSiblings(ctx, to.Scope)
	if err != nil {
		return 0, err
	}
	if selfCounted {
		count--
	}
	pos := to.Number
	if pos <= 0 || pos > count+1 {
		pos = count + 1
	}
	if pos <= count {
		if err := tasks.ShiftSiblings(ctx, to.Scope, pos, 1, taskID); err != nil {
			return 0, fmt.Errorf("opening position %d: %w", pos, err)
		}
	}
	return pos, nil
}

func sameScope(a, b repository.Scope) bool {
	if a.ProjectID != b.ProjectID {
		return false
	}
	if a.ParentID == nil || b.ParentID == nil {
		return a.ParentID == nil && b.ParentID == nil
	}
	return *a.ParentID == *b.ParentID
}
