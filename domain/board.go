package domain

import "time"

// Priority classifies how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Board is the top-level collaborative workspace. The owner is always a
// member; ListIDs keeps the render order of its lists.
type Board struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	OwnerID   string    `json:"ownerId"`
	MemberIDs []string  `json:"memberIds"`
	ListIDs   []string  `json:"listIds"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasMember reports whether the user owns or is a member of the board.
func (b *Board) HasMember(userID string) bool {
	if b.OwnerID == userID {
		return true
	}
	for _, id := range b.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// List is a column of tasks belonging to exactly one board for its
// lifetime. Position orders it among sibling lists.
type List struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	BoardID  string   `json:"boardId"`
	TaskIDs  []string `json:"taskIds"`
	Position float64  `json:"position"`
}

// Task is a unit of work inside a list. BoardID is derived from the
// owning list and kept in sync by the mutation service on every move.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	ListID      string     `json:"listId"`
	BoardID     string     `json:"boardId"`
	AssigneeIDs []string   `json:"assigneeIds"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Position    float64    `json:"position"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Snapshot is a board with its lists and tasks in render order. It is
// what clients fetch on load and after a reconnect.
type Snapshot struct {
	Board Board  `json:"board"`
	Lists []List `json:"lists"`
	Tasks []Task `json:"tasks"`
}
