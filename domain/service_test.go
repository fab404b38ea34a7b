package domain

import (
	"bytes"
	"context"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestEmitLogsMarshalFailureAndDropsEvent(t *testing.T) {
	svc, _, pub := newTestService(t)

	var buf bytes.Buffer
	out := log.StandardLogger().Out
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(out) })

	// Channels cannot be marshaled, forcing the envelope build to fail.
	svc.emit(context.Background(), "b1", TaskUpdated, make(chan int))

	if got := pub.Events(); len(got) != 0 {
		t.Fatalf("expected no event published, got %#v", got)
	}
	logged := buf.String()
	if !strings.Contains(logged, TaskUpdated) || !strings.Contains(logged, "b1") {
		t.Fatalf("expected marshal failure to be logged with event kind and board, got %q", logged)
	}
}
