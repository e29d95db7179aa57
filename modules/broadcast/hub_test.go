package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeConn records everything written to it.
type fakeConn struct {
	mu     sync.Mutex
	writes [][]byte
	closed bool
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) messages(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.writes))
	for _, w := range f.writes {
		var m map[string]any
		if err := json.Unmarshal(w, &m); err != nil {
			t.Fatalf("invalid JSON on the wire: %v", err)
		}
		out = append(out, m)
	}
	return out
}

func addClient(h *Hub, id, userID string) (*Client, *fakeConn) {
	conn := &fakeConn{}
	client := &Client{ID: id, UserID: userID, Conn: conn}
	h.handleRegister(client)
	return client, conn
}

func TestHubChannelFanout(t *testing.T) {
	h := NewHub()
	_, connA := addClient(h, "c1", "alice")
	_, connB := addClient(h, "c2", "bob")
	h.Subscribe("c1", ProjectChannel("p1"))
	h.Subscribe("c2", ProjectChannel("p1"))

	h.handlePublish(&Envelope{
		Channel: ProjectChannel("p1"),
		Payload: WSEvent{Type: "task_created", ProjectID: "p1"},
	})

	for name, conn := range map[string]*fakeConn{"alice": connA, "bob": connB} {
		msgs := conn.messages(t)
		if len(msgs) != 1 {
			t.Fatalf("%s received %d messages, want 1", name, len(msgs))
		}
		if msgs[0]["type"] != "task_created" {
			t.Errorf("%s got %v", name, msgs[0])
		}
	}
}

func TestHubPersonalChannel(t *testing.T) {
	h := NewHub()
	_, connA := addClient(h, "c1", "alice")
	_, connB := addClient(h, "c2", "bob")

	// Registration alone subscribes the personal channel.
	h.handlePublish(&Envelope{
		Channel: UserChannel("alice"),
		Payload: WSEvent{Type: "task_assigned_to_you", TaskID: "t1"},
	})

	if got := len(connA.messages(t)); got != 1 {
		t.Errorf("alice received %d messages, want 1", got)
	}
	if got := len(connB.messages(t)); got != 0 {
		t.Errorf("bob received %d messages, want 0", got)
	}
}

func TestHubUnsubscribe(t *testing.T) {
	h := NewHub()
	_, conn := addClient(h, "c1", "alice")
	h.Subscribe("c1", ProjectChannel("p1"))
	h.Unsubscribe("c1", ProjectChannel("p1"))

	h.handlePublish(&Envelope{
		Channel: ProjectChannel("p1"),
		Payload: WSEvent{Type: "task_created"},
	})

	if got := len(conn.messages(t)); got != 0 {
		t.Errorf("unsubscribed client received %d messages", got)
	}
	if n := h.SubscriberCount(ProjectChannel("p1")); n != 0 {
		t.Errorf("subscriber count = %d, want 0", n)
	}
}

func TestHubUnregisterDropsSubscriptions(t *testing.T) {
	h := NewHub()
	client, conn := addClient(h, "c1", "alice")
	h.Subscribe("c1", ProjectChannel("p1"))

	h.handleUnregister(client)

	if n := h.ClientCount(); n != 0 {
		t.Errorf("client count = %d, want 0", n)
	}
	h.handlePublish(&Envelope{Channel: ProjectChannel("p1"), Payload: WSEvent{Type: "x"}})
	h.handlePublish(&Envelope{Channel: UserChannel("alice"), Payload: WSEvent{Type: "y"}})
	if got := len(conn.messages(t)); got != 0 {
		t.Errorf("unregistered client received %d messages", got)
	}
}

func TestHubSubscribeUnknownClient(t *testing.T) {
	h := NewHub()
	h.Subscribe("ghost", ProjectChannel("p1"))
	if n := h.SubscriberCount(ProjectChannel("p1")); n != 0 {
		t.Errorf("unknown client created a subscription")
	}
}

func TestHubRunShutdownClosesClients(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	conn := &fakeConn{}
	h.Register(&Client{ID: "c1", UserID: "alice", Conn: conn})

	// Give the loop a moment to process the registration.
	deadline := time.After(time.Second)
	for h.ClientCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("client never registered")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	h.Wait()

	conn.mu.Lock()
	closed := conn.closed
	conn.mu.Unlock()
	if !closed {
		t.Error("shutdown did not close the connection")
	}
	if n := h.ClientCount(); n != 0 {
		t.Errorf("client count after shutdown = %d, want 0", n)
	}
}

// overlapConn trips when two writers are inside WriteMessage at once.
type overlapConn struct {
	inWrite  atomic.Int32
	overlaps atomic.Int32
}

func (o *overlapConn) WriteMessage(_ int, _ []byte) error {
	if o.inWrite.Add(1) > 1 {
		o.overlaps.Add(1)
	}
	defer o.inWrite.Add(-1)
	return nil
}

func (o *overlapConn) Close() error { return nil }

// The hub goroutine and the control-ack path write to the same connection;
// Client.Send must serialize them.
func TestClientSendSerializesWrites(t *testing.T) {
	conn := &overlapConn{}
	client := &Client{ID: "c1", UserID: "alice", Conn: conn}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if err := client.Send([]byte(`{"type":"x"}`)); err != nil {
					t.Errorf("Send() error: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if n := conn.overlaps.Load(); n != 0 {
		t.Errorf("observed %d overlapping writes", n)
	}
}
