package schedule

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/alexanderramin/tempo/internal/domain"
)

// Hierarchy is an in-memory view of a project's live task tree.
type Hierarchy struct {
	byID     map[string]*domain.Task
	children map[string][]*domain.Task // "" keys the root tasks
}

// NewHierarchy indexes tasks by ID and groups siblings by sibling number.
func NewHierarchy(tasks []*domain.Task) *Hierarchy {
	h := &Hierarchy{
		byID:     make(map[string]*domain.Task, len(tasks)),
		children: make(map[string][]*domain.Task),
	}
	for _, t := range tasks {
		h.byID[t.ID] = t
		key := parentKey(t.ParentID)
		h.children[key] = append(h.children[key], t)
	}
	for _, siblings := range h.children {
		sort.SliceStable(siblings, func(i, j int) bool {
			return siblings[i].Number < siblings[j].Number
		})
	}
	return h
}

func parentKey(parentID *string) string {
	if parentID == nil {
		return ""
	}
	return *parentID
}

func (h *Hierarchy) Task(id string) (*domain.Task, bool) {
	t, ok := h.byID[id]
	return t, ok
}

// Children returns the tasks under parentID, or the roots when parentID is nil.
func (h *Hierarchy) Children(parentID *string) []*domain.Task {
	return h.children[parentKey(parentID)]
}

// Ancestors returns the parent chain of id, nearest first.
func (h *Hierarchy) Ancestors(id string) []string {
	var out []string
	t, ok := h.byID[id]
	for ok && t.ParentID != nil {
		out = append(out, *t.ParentID)
		t, ok = h.byID[*t.ParentID]
	}
	return out
}

// Descendants returns every task below id in depth-first order.
func (h *Hierarchy) Descendants(id string) []string {
	var out []string
	var walk func(string)
	walk = func(parent string) {
		for _, c := range h.children[parent] {
			out = append(out, c.ID)
			walk(c.ID)
		}
	}
	walk(id)
	return out
}

// IsDescendant reports whether candidate lies strictly below of.
func (h *Hierarchy) IsDescendant(candidate, of string) bool {
	for _, a := range h.Ancestors(candidate) {
		if a == of {
			return true
		}
	}
	return false
}

// SubtreeHeight is the number of levels below id; 0 for a leaf.
func (h *Hierarchy) SubtreeHeight(id string) int {
	height := 0
	for _, c := range h.children[id] {
		if d := h.SubtreeHeight(c.ID) + 1; d > height {
			height = d
		}
	}
	return height
}

// WBSCodes returns the dotted outline code ("1.2.3") of every task, built
// from sibling numbers along the parent chain.
func (h *Hierarchy) WBSCodes() map[string]string {
	codes := make(map[string]string, len(h.byID))
	var walk func(parent, prefix string)
	walk = func(parent, prefix string) {
		for _, c := range h.children[parent] {
			code := strconv.Itoa(c.Number)
			if prefix != "" {
				code = prefix + "." + code
			}
			codes[c.ID] = code
			walk(c.ID, code)
		}
	}
	walk("", "")
	return codes
}

// ValidateReparent checks that task can move under newParent (nil moves it
// to the root level) without breaking the level or depth rules.
func (h *Hierarchy) ValidateReparent(task *domain.Task, newParent *domain.Task, maxDepth int) error {
	if maxDepth <= 0 {
		maxDepth = domain.DefaultMaxTaskDepth
	}
	newLevel := 1
	if newParent != nil {
		if newParent.ID == task.ID || h.IsDescendant(newParent.ID, task.ID) {
			return &domain.StructuralConflictError{
				Kind:    domain.ConflictParentIsDescendant,
				Message: "new parent is a descendant of the task",
			}
		}
		newLevel = newParent.Level + 1
	}
	if deepest := newLevel + h.SubtreeHeight(task.ID); deepest > maxDepth {
		return &domain.StructuralConflictError{
			Kind: domain.ConflictDepthExceeded,
			Message: fmt.Sprintf("moving the task would place its subtree at level %d, which exceeds configured maximum depth (%d)",
				deepest, maxDepth),
		}
	}
	return nil
}

// ValidateParentLevel checks that parent sits exactly one level above level.
func ValidateParentLevel(parent *domain.Task, level int) error {
	if parent == nil {
		if level != 1 {
			return domain.NewValidationError("level", "invalid level for parent: root tasks are level 1, got %d", level)
		}
		return nil
	}
	if parent.Level != level-1 {
		return domain.NewValidationError("parent_id",
			"invalid level for parent: parent is level %d, task is level %d", parent.Level, level)
	}
	return nil
}
