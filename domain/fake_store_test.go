package domain

import (
	"context"
	"sync"
)

// fakeStore is an in-memory Store used by the service tests.
type fakeStore struct {
	mu     sync.Mutex
	boards map[string]Board
	lists  map[string]List
	tasks  map[string]Task
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		boards: make(map[string]Board),
		lists:  make(map[string]List),
		tasks:  make(map[string]Task),
	}
}

func (f *fakeStore) GetBoard(_ context.Context, id string) (*Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.boards[id]; ok {
		cp := b
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) InsertBoard(_ context.Context, b Board) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boards[b.ID] = b
	return nil
}

func (f *fakeStore) UpdateBoard(_ context.Context, b Board) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boards[b.ID] = b
	return nil
}

func (f *fakeStore) DeleteBoard(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.boards, id)
	return nil
}

func (f *fakeStore) GetList(_ context.Context, id string) (*List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.lists[id]; ok {
		cp := l
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) ListsByBoard(_ context.Context, boardID string) ([]List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []List{}
	for _, l := range f.lists {
		if l.BoardID == boardID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertList(_ context.Context, l List) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[l.ID] = l
	return nil
}

func (f *fakeStore) UpdateList(_ context.Context, l List) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[l.ID] = l
	return nil
}

func (f *fakeStore) DeleteList(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.lists, id)
	return nil
}

func (f *fakeStore) GetTask(_ context.Context, id string) (*Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tasks[id]; ok {
		cp := t
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) TasksByList(_ context.Context, listID string) ([]Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []Task{}
	for _, t := range f.tasks {
		if t.ListID == listID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) TasksByBoard(_ context.Context, boardID string) ([]Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []Task{}
	for _, t := range f.tasks {
		if t.BoardID == boardID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertTask(_ context.Context, t Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeStore) UpdateTask(_ context.Context, t Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeStore) DeleteTask(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, id)
	return nil
}

// fakePublisher records events in emission order.
type fakePublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *fakePublisher) Publish(_ context.Context, ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *fakePublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

func (p *fakePublisher) Kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]string, len(p.events))
	for i, ev := range p.events {
		kinds[i] = ev.Kind
	}
	return kinds
}
