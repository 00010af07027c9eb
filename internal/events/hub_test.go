package events

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/zanzhit/flameguard/internal/domain/models"
)

func newTestHub() *Hub {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHubBroadcast(t *testing.T) {
	h := newTestHub()

	sub1, cancel1 := h.Subscribe()
	defer cancel1()
	sub2, cancel2 := h.Subscribe()
	defer cancel2()

	n := models.Success("Webcam started", "Realtime fire detection is now active")
	h.Publish(models.Event{Kind: models.EventWebcam, Notification: &n})

	for i, sub := range []<-chan models.Event{sub1, sub2} {
		select {
		case ev := <-sub:
			if ev.Kind != models.EventWebcam {
				t.Errorf("sub%d: expected webcam event, got %s", i+1, ev.Kind)
			}
			if ev.At.IsZero() {
				t.Errorf("sub%d: expected timestamp to be set", i+1)
			}
		case <-time.After(time.Second):
			t.Fatalf("sub%d: timed out", i+1)
		}
	}
}

func TestHubSlowSubscriber(t *testing.T) {
	h := newTestHub()

	_, cancel := h.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		h.Publish(models.Event{Kind: models.EventLogs})
	}

	if got := h.Dropped(); got != 10 {
		t.Errorf("expected 10 dropped events, got %d", got)
	}
}

func TestHubUnsubscribe(t *testing.T) {
	h := newTestHub()

	sub, cancel := h.Subscribe()
	cancel()
	cancel()

	if _, ok := <-sub; ok {
		t.Error("expected closed channel after unsubscribe")
	}
	if h.Subscribers() != 0 {
		t.Errorf("expected no subscribers, got %d", h.Subscribers())
	}

	h.Publish(models.Event{Kind: models.EventLogs})
}

func TestHubClose(t *testing.T) {
	h := newTestHub()

	sub, cancel := h.Subscribe()
	h.Close()
	cancel()

	if _, ok := <-sub; ok {
		t.Error("expected closed channel after hub close")
	}

	late, _ := h.Subscribe()
	if _, ok := <-late; ok {
		t.Error("expected subscribe on closed hub to return a closed channel")
	}
}
