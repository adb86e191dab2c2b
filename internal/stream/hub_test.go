package stream

import (
	"strconv"
	"sync"
	"testing"

	"github.com/ashureev/genomics-xai/internal/workspace"
)

var testKey = workspace.Key{UserID: "user123", SessionID: "tab-1"}

func TestHubPublishDelivers(t *testing.T) {
	h := NewHub(4)
	sub := h.Subscribe(testKey)

	h.Publish(testKey, workspace.Event{Type: workspace.EventPanel})
	select {
	case ev := <-sub.Events():
		if ev.Type != workspace.EventPanel {
			t.Errorf("unexpected event type %q", ev.Type)
		}
	default:
		t.Fatal("expected an event to be queued")
	}
}

func TestHubPublishWithoutListener(t *testing.T) {
	h := NewHub(1)
	h.Publish(testKey, workspace.Event{Type: workspace.EventPanel})
	if h.Active(testKey) {
		t.Fatal("publishing must not create a listener")
	}
}

func TestHubDropsWhenFull(t *testing.T) {
	h := NewHub(2)
	sub := h.Subscribe(testKey)
	for i := 0; i < 5; i++ {
		h.Publish(testKey, workspace.Event{Type: workspace.EventPanel})
	}
	if n := len(sub.Events()); n != 2 {
		t.Fatalf("expected 2 buffered events, got %d", n)
	}
}

func TestHubSubscribeReplaces(t *testing.T) {
	h := NewHub(1)
	first := h.Subscribe(testKey)
	second := h.Subscribe(testKey)

	if got := first.Reason(); got != "session replaced" {
		t.Errorf("first reason = %q", got)
	}

	// A stale unsubscribe must leave the replacement in place.
	h.Unsubscribe(testKey, first)
	if !h.Active(testKey) {
		t.Fatal("replacement listener was removed")
	}
	select {
	case <-second.Done():
		t.Fatal("replacement listener was closed")
	default:
	}
}

func TestHubCloseSession(t *testing.T) {
	h := NewHub(1)
	sub := h.Subscribe(testKey)
	other := h.Subscribe(workspace.Key{UserID: testKey.UserID, SessionID: "tab-2"})

	h.CloseSession(testKey)
	if got := sub.Reason(); got != "session closed" {
		t.Errorf("reason = %q", got)
	}
	if h.Active(testKey) {
		t.Error("closed session is still active")
	}
	select {
	case <-other.Done():
		t.Error("other tab should stay open")
	default:
	}

	h.CloseAll()
	if got := other.Reason(); got != "server shutting down" {
		t.Errorf("reason = %q", got)
	}
}

func TestHubConcurrentAccess(t *testing.T) {
	h := NewHub(1)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			key := workspace.Key{UserID: "u", SessionID: "tab-" + strconv.Itoa(i)}
			sub := h.Subscribe(key)
			h.Unsubscribe(key, sub)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			h.Publish(workspace.Key{UserID: "u", SessionID: "tab-" + strconv.Itoa(i)}, workspace.Event{})
		}
	}()

	wg.Wait()
}
