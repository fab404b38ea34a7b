package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateTask appends a task to the list's sequence and emits
// task_created. The owning board is derived from the resolved list, never
// accepted from the caller.
func (s *Service) CreateTask(ctx context.Context, p CreateTaskParams) (*Task, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: task title is required", ErrValidation)
	}
	priority := p.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, priority)
	}
	l, err := s.st.GetList(ctx, p.ListID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("list %s: %w", p.ListID, ErrNotFound)
	}
	siblings, err := s.st.TasksByList(ctx, p.ListID)
	if err != nil {
		return nil, err
	}
	SortTasks(siblings)
	assignees := p.AssigneeIDs
	if assignees == nil {
		assignees = []string{}
	}
	t := Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: p.Description,
		ListID:      l.ID,
		BoardID:     l.BoardID,
		AssigneeIDs: assignees,
		Priority:    priority,
		DueDate:     p.DueDate,
		Position:    AppendPosition(taskPositions(siblings)),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.st.InsertTask(ctx, t); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	l.TaskIDs = append(l.TaskIDs, t.ID)
	if err := s.st.UpdateList(ctx, *l); err != nil {
		return nil, fmt.Errorf("append task to list: %w", err)
	}
	s.emit(ctx, l.BoardID, TaskCreated, t)
	return &t, nil
}

// UpdateTask applies a partial update and emits task_updated. When the
// patch moves the task to another list, the list sequences on both sides
// are updated, the board is re-derived from the target list and the
// position is recomputed against the new siblings unless the patch
// carries one.
func (s *Service) UpdateTask(ctx context.Context, taskID string, patch TaskPatch) (*Task, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("%w: task update had no fields", ErrValidation)
	}
	t, err := s.st.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: task title is required", ErrValidation)
		}
		t.Title = title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, *patch.Priority)
		}
		t.Priority = *patch.Priority
	}
	if patch.AssigneeIDs != nil {
		t.AssigneeIDs = *patch.AssigneeIDs
	}
	if patch.DueDate != nil {
		t.DueDate = patch.DueDate
	}
	if patch.Position != nil {
		t.Position = *patch.Position
	}

	moved := patch.ListID != nil && *patch.ListID != t.ListID
	if moved {
		if err := s.moveTask(ctx, t, *patch.ListID, patch.Position); err != nil {
			return nil, err
		}
	}
	if err := s.st.UpdateTask(ctx, *t); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if patch.Position != nil || moved {
		if err := s.renormalizeTasks(ctx, t.ListID); err != nil {
			return nil, err
		}
		if refreshed, err := s.st.GetTask(ctx, taskID); err == nil && refreshed != nil {
			t = refreshed
		}
	}
	s.emit(ctx, t.BoardID, TaskUpdated, t)
	return t, nil
}

// moveTask reassigns t to the target list: both list sequences change,
// the board is re-derived and the position recomputed when the caller
// did not supply one. The task's list and board always change together.
func (s *Service) moveTask(ctx context.Context, t *Task, targetListID string, position *float64) error {
	target, err := s.st.GetList(ctx, targetListID)
	if err != nil {
		return err
	}
	if target == nil {
		return fmt.Errorf("list %s: %w", targetListID, ErrNotFound)
	}
	if origin, err := s.st.GetList(ctx, t.ListID); err != nil {
		return err
	} else if origin != nil {
		origin.TaskIDs = removeID(origin.TaskIDs, t.ID)
		if err := s.st.UpdateList(ctx, *origin); err != nil {
			return fmt.Errorf("detach task from list: %w", err)
		}
	}
	if position == nil {
		siblings, err := s.st.TasksByList(ctx, targetListID)
		if err != nil {
			return err
		}
		SortTasks(siblings)
		t.Position = AppendPosition(taskPositions(siblings))
	}
	target.TaskIDs = append(target.TaskIDs, t.ID)
	if err := s.st.UpdateList(ctx, *target); err != nil {
		return fmt.Errorf("attach task to list: %w", err)
	}
	t.ListID = target.ID
	t.BoardID = target.BoardID
	return nil
}

// DeleteTask removes the task from its list's sequence and emits
// task_deleted.
func (s *Service) DeleteTask(ctx context.Context, taskID string) error {
	t, err := s.st.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	if l, err := s.st.GetList(ctx, t.ListID); err != nil {
		return err
	} else if l != nil {
		l.TaskIDs = removeID(l.TaskIDs, taskID)
		if err := s.st.UpdateList(ctx, *l); err != nil {
			return fmt.Errorf("detach task from list: %w", err)
		}
	}
	if err := s.st.DeleteTask(ctx, taskID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	s.emit(ctx, t.BoardID, TaskDeleted, taskID)
	return nil
}

// renormalizeTasks re-spaces the list's tasks evenly when their position
// keys have converged below the usable gap.
func (s *Service) renormalizeTasks(ctx context.Context, listID string) error {
	tasks, err := s.st.TasksByList(ctx, listID)
	if err != nil {
		return err
	}
	SortTasks(tasks)
	if !NeedsRenormalize(taskPositions(tasks)) {
		return nil
	}
	keys := Renormalize(len(tasks))
	for i := range tasks {
		tasks[i].Position = keys[i]
		if err := s.st.UpdateTask(ctx, tasks[i]); err != nil {
			return fmt.Errorf("renormalize task %s: %w", tasks[i].ID, err)
		}
	}
	return nil
}
