package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func newTestClient(h *Hub) *Client {
	return &Client{hub: h, send: make(chan []byte, 4)}
}

func receive(t *testing.T, c *Client) event {
	t.Helper()
	select {
	case raw := <-c.send:
		var ev event
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("malformed event payload %q: %v", raw, err)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return event{}
	}
}

func TestHubBroadcastsToAllClients(t *testing.T) {
	hub := NewHub(slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	first := newTestClient(hub)
	second := newTestClient(hub)
	hub.register <- first
	hub.register <- second

	if err := hub.Publish(TopicReservations); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for _, client := range []*Client{first, second} {
		if ev := receive(t, client); ev.Event != TopicReservations {
			t.Errorf("event = %q, want %q", ev.Event, TopicReservations)
		}
	}
}

func TestHubUnregisteredClientReceivesNothing(t *testing.T) {
	hub := NewHub(slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := newTestClient(hub)
	hub.register <- client
	hub.unregister <- client

	if err := hub.Publish(TopicRooms); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("unregistered client must not receive events")
		}
		// Channel closed on unregister: expected.
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubSlowClientDoesNotBlockBroadcast(t *testing.T) {
	hub := NewHub(slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	slow := &Client{hub: hub, send: make(chan []byte)} // no buffer, never drained
	healthy := newTestClient(hub)
	hub.register <- slow
	hub.register <- healthy

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := hub.Publish(TopicEquipment); err != nil {
			t.Errorf("Publish: %v", err)
		}
		receive(t, healthy)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast stalled on a slow client")
	}
}

func TestHubShutdownReleasesLateArrivals(t *testing.T) {
	hub := NewHub(slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	client := newTestClient(hub)
	hub.register <- client

	cancel()
	<-hub.done

	// A connection dropping during shutdown still tries to unregister, and a
	// connection arriving during shutdown still tries to register. Neither
	// may block now that the Run loop is gone.
	released := make(chan struct{})
	go func() {
		defer close(released)
		hub.drop(client)
		if hub.add(newTestClient(hub)) {
			t.Error("add after shutdown must report the hub as closed")
		}
	}()

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("register/unregister blocked after shutdown")
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub(slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	client := newTestClient(hub)
	hub.register <- client

	cancel()

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected the send channel to be closed without data")
		}
	case <-time.After(time.Second):
		t.Fatal("client send channel was not closed on shutdown")
	}
}
