package domain

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Store is the persistence required by the mutation services. Lookups
// return (nil, nil) when the entity is absent so callers decide how a
// miss is surfaced.
type Store interface {
	GetBoard(ctx context.Context, id string) (*Board, error)
	InsertBoard(ctx context.Context, b Board) error
	UpdateBoard(ctx context.Context, b Board) error
	DeleteBoard(ctx context.Context, id string) error

	GetList(ctx context.Context, id string) (*List, error)
	ListsByBoard(ctx context.Context, boardID string) ([]List, error)
	InsertList(ctx context.Context, l List) error
	UpdateList(ctx context.Context, l List) error
	DeleteList(ctx context.Context, id string) error

	GetTask(ctx context.Context, id string) (*Task, error)
	TasksByList(ctx context.Context, listID string) ([]Task, error)
	TasksByBoard(ctx context.Context, boardID string) ([]Task, error)
	InsertTask(ctx context.Context, t Task) error
	UpdateTask(ctx context.Context, t Task) error
	DeleteTask(ctx context.Context, id string) error
}

// Publisher fans a committed event out to the board's room. Delivery is
// fire-and-forget; the mutation has already been persisted when Publish
// is called.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Service is the only authority permitted to change board, list and task
// state. Every successful mutation persists first and then emits exactly
// one event for the affected board.
type Service struct {
	st  Store
	pub Publisher
}

func NewService(st Store, pub Publisher) *Service {
	if st == nil {
		panic("domain.NewService: store is nil")
	}
	if pub == nil {
		panic("domain.NewService: publisher is nil")
	}
	return &Service{st: st, pub: pub}
}

var lastTimestamp int64

// nextTimestamp returns a strictly increasing nanosecond timestamp so
// events emitted by one instance carry a total order.
func nextTimestamp() int64 {
	for {
		now := time.Now().UnixNano()
		last := atomic.LoadInt64(&lastTimestamp)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastTimestamp, last, now) {
			return now
		}
	}
}

func (s *Service) emit(ctx context.Context, boardID, kind string, payload any) {
	ev, err := NewEvent(uuid.NewString(), boardID, kind, payload, nextTimestamp())
	if err != nil {
		log.Errorf("marshal %s event for board %s: %v", kind, boardID, err)
		return
	}
	s.pub.Publish(ctx, ev)
}
