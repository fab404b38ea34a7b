// Package client keeps a live local replica of one board and layers an
// optimistic drag on top of it. It consumes the room event stream for
// reconciliation and issues task moves through the mutation API.
package client

import (
	"context"
	"errors"
	"sync"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

// Commander issues the single mutation the coordinator needs. Everything
// else on the board flows in through events.
type Commander interface {
	UpdateTask(ctx context.Context, taskID string, patch domain.TaskPatch) (*domain.Task, error)
}

// DragState tracks the lifecycle of the current drag.
type DragState int

const (
	DragIdle DragState = iota
	DragActive
	DragCommitting
)

var (
	errNoBoard      = errors.New("no board loaded")
	errUnknownTask  = errors.New("unknown task")
	errUnknownList  = errors.New("unknown list")
	errDragActive   = errors.New("drag already in progress")
	errNoActiveDrag = errors.New("no drag in progress")
)

type dragContext struct {
	taskID   string
	snapshot domain.Task
}

// Coordinator holds the client-side board state. Events and drag
// operations may arrive from different goroutines; all state is guarded
// by one mutex.
type Coordinator struct {
	cmd    Commander
	logger *log.Logger

	mu      sync.Mutex
	boardID string
	board   domain.Board
	lists   map[string]domain.List
	tasks   map[string]domain.Task

	state DragState
	drag  dragContext

	nextSubID int
	subs      map[int]func()
}

// NewCoordinator creates an empty coordinator. Load must be called with a
// board snapshot before events or drags are meaningful.
func NewCoordinator(cmd Commander, logger *log.Logger) *Coordinator {
	if cmd == nil {
		panic("client.NewCoordinator: commander is nil")
	}
	if logger == nil {
		logger = log.New()
	}
	return &Coordinator{
		cmd:    cmd,
		logger: logger,
		lists:  map[string]domain.List{},
		tasks:  map[string]domain.Task{},
		subs:   map[int]func(){},
	}
}

// Load replaces all local state with a fresh server snapshot. Any drag in
// progress is abandoned.
func (c *Coordinator) Load(snap domain.Snapshot) {
	c.mu.Lock()
	c.boardID = snap.Board.ID
	c.board = snap.Board
	c.lists = make(map[string]domain.List, len(snap.Lists))
	for _, l := range snap.Lists {
		c.lists[l.ID] = l
	}
	c.tasks = make(map[string]domain.Task, len(snap.Tasks))
	for _, t := range snap.Tasks {
		c.tasks[t.ID] = t
	}
	c.state = DragIdle
	c.drag = dragContext{}
	c.mu.Unlock()
	c.notify()
}

// Board returns the loaded board.
func (c *Coordinator) Board() domain.Board {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.board
}

// Lists returns the known lists in render order.
func (c *Coordinator) Lists() []domain.List {
	c.mu.Lock()
	lists := make([]domain.List, 0, len(c.lists))
	for _, l := range c.lists {
		lists = append(lists, l)
	}
	c.mu.Unlock()
	domain.SortLists(lists)
	return lists
}

// TasksIn returns the tasks currently assigned to the list, in render
// order. During a drag this reflects the optimistic assignment.
func (c *Coordinator) TasksIn(listID string) []domain.Task {
	c.mu.Lock()
	tasks := make([]domain.Task, 0, 8)
	for _, t := range c.tasks {
		if t.ListID == listID {
			tasks = append(tasks, t)
		}
	}
	c.mu.Unlock()
	domain.SortTasks(tasks)
	return tasks
}

// State returns the current drag state.
func (c *Coordinator) State() DragState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Apply reconciles one room event into local state. Entities are replaced
// whole by id, so applying the same event twice is harmless. Events for
// the task being dragged are skipped; the commit response or the next
// snapshot settles it.
func (c *Coordinator) Apply(ev domain.Event) {
	c.mu.Lock()
	if c.boardID == "" || ev.BoardID != c.boardID {
		c.mu.Unlock()
		return
	}

	changed := false
	switch ev.Kind {
	case domain.BoardUpdated:
		var b domain.Board
		if err := sonic.Unmarshal(ev.Data, &b); err == nil {
			c.board = b
			changed = true
		}
	case domain.ListCreated, domain.ListUpdated:
		var l domain.List
		if err := sonic.Unmarshal(ev.Data, &l); err == nil {
			c.lists[l.ID] = l
			changed = true
		}
	case domain.ListDeleted:
		if id := decodeID(ev.Data); id != "" {
			delete(c.lists, id)
			for tid, t := range c.tasks {
				if t.ListID == id {
					delete(c.tasks, tid)
				}
			}
			changed = true
		}
	case domain.TaskCreated, domain.TaskUpdated:
		var t domain.Task
		if err := sonic.Unmarshal(ev.Data, &t); err == nil {
			if c.state != DragIdle && c.drag.taskID == t.ID {
				break
			}
			c.tasks[t.ID] = t
			changed = true
		}
	case domain.TaskDeleted:
		if id := decodeID(ev.Data); id != "" {
			if c.state != DragIdle && c.drag.taskID == id {
				// The dragged task vanished under us. Abandon the drag so
				// the commit cannot resurrect it.
				c.state = DragIdle
				c.drag = dragContext{}
			}
			delete(c.tasks, id)
			changed = true
		}
	default:
		c.logger.WithField("event", ev.Kind).Debug("ignoring unknown event kind")
	}
	c.mu.Unlock()

	if changed {
		c.notify()
	}
}

// StartDrag begins an optimistic drag of the task. The pre-drag task is
// snapshotted for rollback.
func (c *Coordinator) StartDrag(taskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.boardID == "" {
		return errNoBoard
	}
	if c.state != DragIdle {
		return errDragActive
	}
	t, ok := c.tasks[taskID]
	if !ok {
		return errUnknownTask
	}
	c.state = DragActive
	c.drag = dragContext{taskID: taskID, snapshot: t}
	return nil
}

// HoverOver moves the dragged task to the hovered list locally. This is
// cosmetic and fully reversible; nothing is sent to the server until Drop.
func (c *Coordinator) HoverOver(listID string) error {
	c.mu.Lock()
	if c.state != DragActive {
		c.mu.Unlock()
		return errNoActiveDrag
	}
	if _, ok := c.lists[listID]; !ok {
		c.mu.Unlock()
		return errUnknownList
	}
	t := c.tasks[c.drag.taskID]
	if t.ListID == listID {
		c.mu.Unlock()
		return nil
	}
	t.ListID = listID
	c.tasks[c.drag.taskID] = t
	c.mu.Unlock()
	c.notify()
	return nil
}

// Drop commits the drag. If the task ended up back where it started no
// request is made. On commit failure the pre-drag snapshot is restored.
func (c *Coordinator) Drop(ctx context.Context) error {
	c.mu.Lock()
	if c.state != DragActive {
		c.mu.Unlock()
		return errNoActiveDrag
	}
	taskID := c.drag.taskID
	snapshot := c.drag.snapshot
	current := c.tasks[taskID]

	if current.ListID == snapshot.ListID {
		c.state = DragIdle
		c.drag = dragContext{}
		c.mu.Unlock()
		c.notify()
		return nil
	}

	c.state = DragCommitting
	targetList := current.ListID
	c.mu.Unlock()

	updated, err := c.cmd.UpdateTask(ctx, taskID, domain.TaskPatch{ListID: &targetList})

	c.mu.Lock()
	c.state = DragIdle
	c.drag = dragContext{}
	if err != nil {
		// Roll the optimistic move back; the board returns to what the
		// server last confirmed.
		if _, ok := c.tasks[taskID]; ok {
			c.tasks[taskID] = snapshot
		}
		c.mu.Unlock()
		c.notify()
		return err
	}
	if updated != nil {
		// A delete broadcast consumed during the round-trip removes the
		// task; the commit response must not resurrect it.
		if _, ok := c.tasks[taskID]; ok {
			c.tasks[taskID] = *updated
		}
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

// Cancel abandons the drag and restores the pre-drag task. No request is
// made.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	if c.state == DragIdle {
		c.mu.Unlock()
		return
	}
	if _, ok := c.tasks[c.drag.taskID]; ok {
		c.tasks[c.drag.taskID] = c.drag.snapshot
	}
	c.state = DragIdle
	c.drag = dragContext{}
	c.mu.Unlock()
	c.notify()
}

// Subscribe registers a change callback and returns its removal func.
// Callbacks run synchronously after each state change; keep them cheap.
func (c *Coordinator) Subscribe(fn func()) func() {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Coordinator) notify() {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// decodeID unwraps the bare identifier carried by deleted events.
func decodeID(data []byte) string {
	var id string
	if err := sonic.Unmarshal(data, &id); err != nil {
		return ""
	}
	return id
}
