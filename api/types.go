package api

import (
	"context"

	"taskboard-api/domain"
)

// Boards is the mutation and query surface the handlers depend on.
type Boards interface {
	CreateBoard(ctx context.Context, ownerID, title string) (*domain.Board, error)
	Snapshot(ctx context.Context, boardID, userID string) (*domain.Snapshot, error)
	UpdateBoard(ctx context.Context, boardID, actorID string, patch domain.BoardPatch) (*domain.Board, error)
	DeleteBoard(ctx context.Context, boardID, actorID string) error

	CreateList(ctx context.Context, boardID, title string) (*domain.List, error)
	UpdateList(ctx context.Context, listID string, patch domain.ListPatch) (*domain.List, error)
	DeleteList(ctx context.Context, listID string) error

	CreateTask(ctx context.Context, p domain.CreateTaskParams) (*domain.Task, error)
	UpdateTask(ctx context.Context, taskID string, patch domain.TaskPatch) (*domain.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}
