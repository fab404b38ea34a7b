// Package room groups connected observers by board and fans change
// events out to them. Delivery is at most once per currently-connected
// observer: there is no persistence or replay, and an observer that
// falls behind is disconnected so it refetches the board snapshot.
package room

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

const defaultSubscriberBuffer = 64

// Subscriber is one connected observer. Events for every room it has
// joined arrive on a single channel in broadcast order.
type Subscriber struct {
	observerID string
	ch         chan domain.Event
	closed     bool
}

// Events returns the delivery channel. It is closed when the subscriber
// leaves the hub or is dropped for falling behind.
func (s *Subscriber) Events() <-chan domain.Event { return s.ch }

// ObserverID identifies the user behind this connection.
func (s *Subscriber) ObserverID() string { return s.observerID }

// Hub is the owned registry of board rooms. A subscriber may belong to
// many rooms but at most once per room.
type Hub struct {
	logger *log.Logger
	buffer int

	mu    sync.Mutex
	rooms map[string]map[*Subscriber]struct{}
	joins map[*Subscriber]map[string]struct{}
}

func NewHub(logger *log.Logger, buffer int) *Hub {
	if logger == nil {
		panic("room.NewHub: logger is nil")
	}
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{
		logger: logger,
		buffer: buffer,
		rooms:  make(map[string]map[*Subscriber]struct{}),
		joins:  make(map[*Subscriber]map[string]struct{}),
	}
}

// Subscribe registers a new connection. The subscriber is in no room
// until it joins one.
func (h *Hub) Subscribe(observerID string) *Subscriber {
	s := &Subscriber{observerID: observerID, ch: make(chan domain.Event, h.buffer)}
	h.mu.Lock()
	h.joins[s] = make(map[string]struct{})
	h.mu.Unlock()
	return s
}

// Join adds the subscriber to the board's room. Joining a room twice is
// a no-op.
func (h *Hub) Join(s *Subscriber, boardID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	joined, ok := h.joins[s]
	if !ok || s.closed {
		return
	}
	if _, already := joined[boardID]; already {
		return
	}
	joined[boardID] = struct{}{}
	room := h.rooms[boardID]
	if room == nil {
		room = make(map[*Subscriber]struct{})
		h.rooms[boardID] = room
	}
	room[s] = struct{}{}
}

// Leave removes the subscriber from the board's room.
func (h *Hub) Leave(s *Subscriber, boardID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(s, boardID)
}

// Unsubscribe removes the subscriber from every room and closes its
// channel. It is the implicit leave on disconnect.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(s)
}

// Broadcast delivers the event to every subscriber currently in the
// event's board room, including the originator. Dispatch happens under
// the hub lock so events enqueued for the same board preserve their
// emission order. A subscriber whose buffer is full is dropped rather
// than allowed to stall the room.
func (h *Hub) Broadcast(ev domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[ev.BoardID]
	if len(room) == 0 {
		return
	}
	var stalled []*Subscriber
	for s := range room {
		select {
		case s.ch <- ev:
		default:
			stalled = append(stalled, s)
		}
	}
	for _, s := range stalled {
		h.logger.WithFields(log.Fields{"observer": s.observerID, "board": ev.BoardID}).
			Warn("subscriber too slow, dropping")
		h.dropLocked(s)
	}
}

// RoomSize reports the number of subscribers currently in the board's
// room.
func (h *Hub) RoomSize(boardID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[boardID])
}

func (h *Hub) leaveLocked(s *Subscriber, boardID string) {
	if joined, ok := h.joins[s]; ok {
		delete(joined, boardID)
	}
	if room, ok := h.rooms[boardID]; ok {
		delete(room, s)
		if len(room) == 0 {
			delete(h.rooms, boardID)
		}
	}
}

func (h *Hub) dropLocked(s *Subscriber) {
	joined, ok := h.joins[s]
	if !ok {
		return
	}
	for boardID := range joined {
		h.leaveLocked(s, boardID)
	}
	delete(h.joins, s)
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
