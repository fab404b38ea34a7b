package room

import (
	"fmt"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

func testEvent(boardID, kind string) domain.Event {
	return domain.Event{ID: kind + "-" + boardID, BoardID: boardID, Kind: kind, Time: time.Now().UnixNano()}
}

func TestBroadcastReachesOnlyRoomMembers(t *testing.T) {
	hub := NewHub(log.New(), 8)
	a := hub.Subscribe("alice")
	b := hub.Subscribe("bob")
	c := hub.Subscribe("carol")
	hub.Join(a, "board-1")
	hub.Join(b, "board-1")
	hub.Join(c, "board-2")

	hub.Broadcast(testEvent("board-1", domain.TaskCreated))

	for _, s := range []*Subscriber{a, b} {
		select {
		case ev := <-s.Events():
			if ev.BoardID != "board-1" || ev.Kind != domain.TaskCreated {
				t.Fatalf("unexpected event %+v", ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s did not receive the event", s.ObserverID())
		}
	}
	select {
	case ev := <-c.Events():
		t.Fatalf("observer of another board received %+v", ev)
	default:
	}
}

func TestBroadcastIncludesOriginator(t *testing.T) {
	hub := NewHub(log.New(), 8)
	origin := hub.Subscribe("alice")
	hub.Join(origin, "board-1")

	hub.Broadcast(testEvent("board-1", domain.TaskUpdated))

	select {
	case <-origin.Events():
	case <-time.After(time.Second):
		t.Fatal("originator did not receive its own echo")
	}
}

func TestBroadcastPreservesPerBoardOrder(t *testing.T) {
	hub := NewHub(log.New(), 32)
	s := hub.Subscribe("alice")
	hub.Join(s, "board-1")

	for i := 0; i < 10; i++ {
		ev := testEvent("board-1", domain.TaskUpdated)
		ev.ID = fmt.Sprintf("ev-%d", i)
		hub.Broadcast(ev)
	}
	for i := 0; i < 10; i++ {
		select {
		case ev := <-s.Events():
			want := fmt.Sprintf("ev-%d", i)
			if ev.ID != want {
				t.Fatalf("event %d: got %s, want %s", i, ev.ID, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("missing event %d", i)
		}
	}
}

func TestJoinTwiceDeliversOnce(t *testing.T) {
	hub := NewHub(log.New(), 8)
	s := hub.Subscribe("alice")
	hub.Join(s, "board-1")
	hub.Join(s, "board-1")

	hub.Broadcast(testEvent("board-1", domain.ListCreated))

	<-s.Events()
	select {
	case ev := <-s.Events():
		t.Fatalf("duplicate delivery %+v", ev)
	default:
	}
}

func TestLeaveStopsDelivery(t *testing.T) {
	hub := NewHub(log.New(), 8)
	s := hub.Subscribe("alice")
	hub.Join(s, "board-1")
	hub.Leave(s, "board-1")

	hub.Broadcast(testEvent("board-1", domain.TaskCreated))

	select {
	case ev := <-s.Events():
		t.Fatalf("received after leave: %+v", ev)
	default:
	}
	if hub.RoomSize("board-1") != 0 {
		t.Fatal("room not empty after leave")
	}
}

func TestUnsubscribeClosesChannelAndLeavesAllRooms(t *testing.T) {
	hub := NewHub(log.New(), 8)
	s := hub.Subscribe("alice")
	hub.Join(s, "board-1")
	hub.Join(s, "board-2")

	hub.Unsubscribe(s)

	if _, open := <-s.Events(); open {
		t.Fatal("channel still open after unsubscribe")
	}
	if hub.RoomSize("board-1") != 0 || hub.RoomSize("board-2") != 0 {
		t.Fatal("rooms not cleaned up")
	}
	// Broadcasting afterwards must not panic on the closed channel.
	hub.Broadcast(testEvent("board-1", domain.TaskCreated))
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	hub := NewHub(log.New(), 1)
	slow := hub.Subscribe("slow")
	hub.Join(slow, "board-1")

	hub.Broadcast(testEvent("board-1", domain.TaskCreated))
	hub.Broadcast(testEvent("board-1", domain.TaskUpdated))

	if hub.RoomSize("board-1") != 0 {
		t.Fatal("stalled subscriber was not dropped")
	}
	// The buffered event is still readable, then the channel closes.
	if _, open := <-slow.Events(); !open {
		t.Fatal("expected the buffered event before close")
	}
	if _, open := <-slow.Events(); open {
		t.Fatal("channel not closed after drop")
	}
}
