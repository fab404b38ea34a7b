package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"taskboard-api/domain"
)

// Storage persists boards, lists and tasks as table entities, one table
// per entity kind. Entities are keyed by their own id (PartitionKey ==
// RowKey) and carry the owning board/list as filterable properties, so
// reads by bare id stay single-entity lookups.
type Storage struct {
	boardTable *aztables.Client
	listTable  *aztables.Client
	taskTable  *aztables.Client
}

// New creates a Storage instance from the given connection string.
func New(connStr, boardsTable, listsTable, tasksTable string) (*Storage, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &Storage{
		boardTable: svc.NewClient(boardsTable),
		listTable:  svc.NewClient(listsTable),
		taskTable:  svc.NewClient(tasksTable),
	}, nil
}

type boardEntity struct {
	aztables.Entity
	Title     string `json:"Title"`
	OwnerID   string `json:"OwnerId"`
	MemberIDs string `json:"MemberIds"`
	ListIDs   string `json:"ListIds"`
	CreatedAt string `json:"CreatedAt"`
}

type listEntity struct {
	aztables.Entity
	Title    string  `json:"Title"`
	BoardID  string  `json:"BoardId"`
	TaskIDs  string  `json:"TaskIds"`
	Position float64 `json:"Position"`
}

type taskEntity struct {
	aztables.Entity
	Title       string  `json:"Title"`
	Description string  `json:"Description"`
	ListID      string  `json:"ListId"`
	BoardID     string  `json:"BoardId"`
	AssigneeIDs string  `json:"AssigneeIds"`
	Priority    string  `json:"Priority"`
	DueDate     string  `json:"DueDate,omitempty"`
	Position    float64 `json:"Position"`
	CreatedAt   string  `json:"CreatedAt"`
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

func isConflict(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusConflict
}

func encodeIDs(ids []string) string {
	if ids == nil {
		ids = []string{}
	}
	data, _ := json.Marshal(ids)
	return string(data)
}

func decodeIDs(raw string) []string {
	ids := []string{}
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &ids)
	}
	return ids
}

func boardToEntity(b domain.Board) boardEntity {
	return boardEntity{
		Entity:    aztables.Entity{PartitionKey: b.ID, RowKey: b.ID},
		Title:     b.Title,
		OwnerID:   b.OwnerID,
		MemberIDs: encodeIDs(b.MemberIDs),
		ListIDs:   encodeIDs(b.ListIDs),
		CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func entityToBoard(ent boardEntity) domain.Board {
	createdAt, _ := time.Parse(time.RFC3339Nano, ent.CreatedAt)
	return domain.Board{
		ID:        ent.RowKey,
		Title:     ent.Title,
		OwnerID:   ent.OwnerID,
		MemberIDs: decodeIDs(ent.MemberIDs),
		ListIDs:   decodeIDs(ent.ListIDs),
		CreatedAt: createdAt,
	}
}

func listToEntity(l domain.List) listEntity {
	return listEntity{
		Entity:   aztables.Entity{PartitionKey: l.ID, RowKey: l.ID},
		Title:    l.Title,
		BoardID:  l.BoardID,
		TaskIDs:  encodeIDs(l.TaskIDs),
		Position: l.Position,
	}
}

func entityToList(ent listEntity) domain.List {
	return domain.List{
		ID:       ent.RowKey,
		Title:    ent.Title,
		BoardID:  ent.BoardID,
		TaskIDs:  decodeIDs(ent.TaskIDs),
		Position: ent.Position,
	}
}

func taskToEntity(t domain.Task) taskEntity {
	ent := taskEntity{
		Entity:      aztables.Entity{PartitionKey: t.ID, RowKey: t.ID},
		Title:       t.Title,
		Description: t.Description,
		ListID:      t.ListID,
		BoardID:     t.BoardID,
		AssigneeIDs: encodeIDs(t.AssigneeIDs),
		Priority:    string(t.Priority),
		Position:    t.Position,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if t.DueDate != nil {
		ent.DueDate = t.DueDate.UTC().Format(time.RFC3339Nano)
	}
	return ent
}

func entityToTask(ent taskEntity) domain.Task {
	createdAt, _ := time.Parse(time.RFC3339Nano, ent.CreatedAt)
	t := domain.Task{
		ID:          ent.RowKey,
		Title:       ent.Title,
		Description: ent.Description,
		ListID:      ent.ListID,
		BoardID:     ent.BoardID,
		AssigneeIDs: decodeIDs(ent.AssigneeIDs),
		Priority:    domain.Priority(ent.Priority),
		Position:    ent.Position,
		CreatedAt:   createdAt,
	}
	if ent.DueDate != "" {
		if due, err := time.Parse(time.RFC3339Nano, ent.DueDate); err == nil {
			t.DueDate = &due
		}
	}
	return t
}

// GetBoard retrieves a board if present.
func (s *Storage) GetBoard(ctx context.Context, id string) (*domain.Board, error) {
	resp, err := s.boardTable.GetEntity(ctx, id, id, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var ent boardEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return nil, err
	}
	b := entityToBoard(ent)
	return &b, nil
}

func (s *Storage) InsertBoard(ctx context.Context, b domain.Board) error {
	return addEntity(ctx, s.boardTable, boardToEntity(b))
}

func (s *Storage) UpdateBoard(ctx context.Context, b domain.Board) error {
	return replaceEntity(ctx, s.boardTable, boardToEntity(b))
}

func (s *Storage) DeleteBoard(ctx context.Context, id string) error {
	return deleteEntity(ctx, s.boardTable, id)
}

// GetList retrieves a list if present.
func (s *Storage) GetList(ctx context.Context, id string) (*domain.List, error) {
	resp, err := s.listTable.GetEntity(ctx, id, id, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var ent listEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return nil, err
	}
	l := entityToList(ent)
	return &l, nil
}

// ListsByBoard returns all lists referencing the board, unordered.
func (s *Storage) ListsByBoard(ctx context.Context, boardID string) ([]domain.List, error) {
	filter := "BoardId eq '" + boardID + "'"
	pager := s.listTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	lists := []domain.List{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			var ent listEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, err
			}
			lists = append(lists, entityToList(ent))
		}
	}
	return lists, nil
}

func (s *Storage) InsertList(ctx context.Context, l domain.List) error {
	return addEntity(ctx, s.listTable, listToEntity(l))
}

func (s *Storage) UpdateList(ctx context.Context, l domain.List) error {
	return replaceEntity(ctx, s.listTable, listToEntity(l))
}

func (s *Storage) DeleteList(ctx context.Context, id string) error {
	return deleteEntity(ctx, s.listTable, id)
}

// GetTask retrieves a task if present.
func (s *Storage) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	resp, err := s.taskTable.GetEntity(ctx, id, id, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var ent taskEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return nil, err
	}
	t := entityToTask(ent)
	return &t, nil
}

// TasksByList returns all tasks referencing the list, unordered.
func (s *Storage) TasksByList(ctx context.Context, listID string) ([]domain.Task, error) {
	return s.queryTasks(ctx, "ListId eq '"+listID+"'")
}

// TasksByBoard returns all tasks referencing the board, unordered.
func (s *Storage) TasksByBoard(ctx context.Context, boardID string) ([]domain.Task, error) {
	return s.queryTasks(ctx, "BoardId eq '"+boardID+"'")
}

func (s *Storage) queryTasks(ctx context.Context, filter string) ([]domain.Task, error) {
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			var ent taskEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, err
			}
			tasks = append(tasks, entityToTask(ent))
		}
	}
	return tasks, nil
}

func (s *Storage) InsertTask(ctx context.Context, t domain.Task) error {
	return addEntity(ctx, s.taskTable, taskToEntity(t))
}

func (s *Storage) UpdateTask(ctx context.Context, t domain.Task) error {
	return replaceEntity(ctx, s.taskTable, taskToEntity(t))
}

func (s *Storage) DeleteTask(ctx context.Context, id string) error {
	return deleteEntity(ctx, s.taskTable, id)
}

func addEntity(ctx context.Context, table *aztables.Client, ent any) error {
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	if _, err := table.AddEntity(ctx, payload, nil); err != nil {
		if isConflict(err) {
			return fmt.Errorf("%w: entity already exists", domain.ErrConcurrencyConflict)
		}
		return err
	}
	return nil
}

// replaceEntity writes the whole entity. Updates are whole-object
// replacements, which is what gives last-write-wins its semantics.
func replaceEntity(ctx context.Context, table *aztables.Client, ent any) error {
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = table.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}

func deleteEntity(ctx context.Context, table *aztables.Client, id string) error {
	if _, err := table.DeleteEntity(ctx, id, id, nil); err != nil {
		if isNotFound(err) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}
