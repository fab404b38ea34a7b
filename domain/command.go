package domain

import "time"

// BoardPatch carries a partial update for a board. Only the owner may
// apply it.
type BoardPatch struct {
	Title *string `json:"title,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p BoardPatch) Empty() bool { return p.Title == nil }

// ListPatch carries a partial update for a list.
type ListPatch struct {
	Title    *string  `json:"title,omitempty"`
	Position *float64 `json:"position,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ListPatch) Empty() bool { return p.Title == nil && p.Position == nil }

// TaskPatch carries a partial update for a task. Setting ListID moves the
// task between lists; the owning board is always re-derived from the
// resolved list and never accepted from callers.
type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	AssigneeIDs *[]string  `json:"assigneeIds,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Position    *float64   `json:"position,omitempty"`
	ListID      *string    `json:"listId,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.AssigneeIDs == nil && p.DueDate == nil && p.Position == nil && p.ListID == nil
}

// CreateTaskParams are the caller-supplied fields for a new task. The
// board is resolved from the list server-side.
type CreateTaskParams struct {
	ListID      string     `json:"listId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	AssigneeIDs []string   `json:"assignees,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}
