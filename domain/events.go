package domain

import (
	"encoding/json"

	"github.com/bytedance/sonic"
)

// Event kinds broadcast to a board's room. Created/updated events carry
// the full entity; deleted events carry the bare identity.
const (
	BoardUpdated = "board_updated"
	ListCreated  = "list_created"
	ListUpdated  = "list_updated"
	ListDeleted  = "list_deleted"
	TaskCreated  = "task_created"
	TaskUpdated  = "task_updated"
	TaskDeleted  = "task_deleted"
)

// Event is a board-scoped change notification.
type Event struct {
	ID      string          `json:"id"`
	BoardID string          `json:"boardId"`
	Kind    string          `json:"event"`
	Data    json.RawMessage `json:"data,omitempty"`
	Time    int64           `json:"time"`
}

// NewEvent builds an event envelope with the payload marshaled in place.
func NewEvent(id, boardID, kind string, payload any, ts int64) (Event, error) {
	data, err := sonic.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{ID: id, BoardID: boardID, Kind: kind, Data: data, Time: ts}, nil
}
