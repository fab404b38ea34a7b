package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateBoard creates a board owned by ownerID. The owner is always a
// member. No event is emitted: the room does not exist until a client
// joins it.
func (s *Service) CreateBoard(ctx context.Context, ownerID, title string) (*Board, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: board title is required", ErrValidation)
	}
	b := Board{
		ID:        uuid.NewString(),
		Title:     title,
		OwnerID:   ownerID,
		MemberIDs: []string{ownerID},
		ListIDs:   []string{},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.st.InsertBoard(ctx, b); err != nil {
		return nil, fmt.Errorf("insert board: %w", err)
	}
	return &b, nil
}

// Snapshot returns the board with its lists and tasks in render order.
// Only the owner or a member may read it.
func (s *Service) Snapshot(ctx context.Context, boardID, userID string) (*Snapshot, error) {
	b, err := s.st.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("board %s: %w", boardID, ErrNotFound)
	}
	if !b.HasMember(userID) {
		return nil, fmt.Errorf("board %s: %w", boardID, ErrUnauthorized)
	}
	lists, err := s.st.ListsByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.st.TasksByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	SortLists(lists)
	SortTasks(tasks)
	return &Snapshot{Board: *b, Lists: lists, Tasks: tasks}, nil
}

// UpdateBoard applies a partial update. Title changes are owner-only.
func (s *Service) UpdateBoard(ctx context.Context, boardID, actorID string, patch BoardPatch) (*Board, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("%w: board update had no fields", ErrValidation)
	}
	b, err := s.st.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("board %s: %w", boardID, ErrNotFound)
	}
	if b.OwnerID != actorID {
		return nil, fmt.Errorf("board %s: %w", boardID, ErrUnauthorized)
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: board title is required", ErrValidation)
		}
		b.Title = title
	}
	if err := s.st.UpdateBoard(ctx, *b); err != nil {
		return nil, fmt.Errorf("update board: %w", err)
	}
	s.emit(ctx, b.ID, BoardUpdated, b)
	return b, nil
}

// DeleteBoard tears down the board and cascades to all of its lists and
// tasks. Owner-only. No event is emitted: the room disbands implicitly
// and reconnecting clients refetch.
func (s *Service) DeleteBoard(ctx context.Context, boardID, actorID string) error {
	b, err := s.st.GetBoard(ctx, boardID)
	if err != nil {
		return err
	}
	if b == nil {
		return fmt.Errorf("board %s: %w", boardID, ErrNotFound)
	}
	if b.OwnerID != actorID {
		return fmt.Errorf("board %s: %w", boardID, ErrUnauthorized)
	}
	// Children go first so a mid-cascade failure never leaves an orphan
	// pointing at a missing parent.
	tasks, err := s.st.TasksByBoard(ctx, boardID)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if err := s.st.DeleteTask(ctx, t.ID); err != nil {
			return fmt.Errorf("cascade task %s: %w", t.ID, err)
		}
	}
	lists, err := s.st.ListsByBoard(ctx, boardID)
	if err != nil {
		return err
	}
	for _, l := range lists {
		if err := s.st.DeleteList(ctx, l.ID); err != nil {
			return fmt.Errorf("cascade list %s: %w", l.ID, err)
		}
	}
	if err := s.st.DeleteBoard(ctx, boardID); err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	return nil
}
