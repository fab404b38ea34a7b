package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CreateList appends a list to the board's sequence with a position from
// the position model and emits list_created.
func (s *Service) CreateList(ctx context.Context, boardID, title string) (*List, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: list title is required", ErrValidation)
	}
	b, err := s.st.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("board %s: %w", boardID, ErrNotFound)
	}
	siblings, err := s.st.ListsByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	SortLists(siblings)
	l := List{
		ID:       uuid.NewString(),
		Title:    title,
		BoardID:  boardID,
		TaskIDs:  []string{},
		Position: AppendPosition(listPositions(siblings)),
	}
	if err := s.st.InsertList(ctx, l); err != nil {
		return nil, fmt.Errorf("insert list: %w", err)
	}
	b.ListIDs = append(b.ListIDs, l.ID)
	if err := s.st.UpdateBoard(ctx, *b); err != nil {
		return nil, fmt.Errorf("append list to board: %w", err)
	}
	s.emit(ctx, boardID, ListCreated, l)
	return &l, nil
}

// UpdateList applies a partial update and emits list_updated.
func (s *Service) UpdateList(ctx context.Context, listID string, patch ListPatch) (*List, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("%w: list update had no fields", ErrValidation)
	}
	l, err := s.st.GetList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("list %s: %w", listID, ErrNotFound)
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: list title is required", ErrValidation)
		}
		l.Title = title
	}
	if patch.Position != nil {
		l.Position = *patch.Position
	}
	if err := s.st.UpdateList(ctx, *l); err != nil {
		return nil, fmt.Errorf("update list: %w", err)
	}
	if patch.Position != nil {
		if err := s.renormalizeLists(ctx, l.BoardID); err != nil {
			return nil, err
		}
		if refreshed, err := s.st.GetList(ctx, listID); err == nil && refreshed != nil {
			l = refreshed
		}
	}
	s.emit(ctx, l.BoardID, ListUpdated, l)
	return l, nil
}

// DeleteList removes the list from its board's sequence, cascades the
// delete to all child tasks and emits exactly one list_deleted event.
// The implicit task deletions emit no per-task events.
func (s *Service) DeleteList(ctx context.Context, listID string) error {
	l, err := s.st.GetList(ctx, listID)
	if err != nil {
		return err
	}
	if l == nil {
		return fmt.Errorf("list %s: %w", listID, ErrNotFound)
	}
	tasks, err := s.st.TasksByList(ctx, listID)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if err := s.st.DeleteTask(ctx, t.ID); err != nil {
			return fmt.Errorf("cascade task %s: %w", t.ID, err)
		}
	}
	b, err := s.st.GetBoard(ctx, l.BoardID)
	if err != nil {
		return err
	}
	if b != nil {
		b.ListIDs = removeID(b.ListIDs, listID)
		if err := s.st.UpdateBoard(ctx, *b); err != nil {
			return fmt.Errorf("detach list from board: %w", err)
		}
	}
	if err := s.st.DeleteList(ctx, listID); err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	s.emit(ctx, l.BoardID, ListDeleted, listID)
	return nil
}

// renormalizeLists re-spaces the board's lists evenly when their position
// keys have converged below the usable gap.
func (s *Service) renormalizeLists(ctx context.Context, boardID string) error {
	lists, err := s.st.ListsByBoard(ctx, boardID)
	if err != nil {
		return err
	}
	SortLists(lists)
	if !NeedsRenormalize(listPositions(lists)) {
		return nil
	}
	keys := Renormalize(len(lists))
	for i := range lists {
		lists[i].Position = keys[i]
		if err := s.st.UpdateList(ctx, lists[i]); err != nil {
			return fmt.Errorf("renormalize list %s: %w", lists[i].ID, err)
		}
	}
	return nil
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
