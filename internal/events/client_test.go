package events

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"
)

// startFakeDaemon listens on a throwaway socket and decodes everything
// a single client sends into the returned channel.
func startFakeDaemon(t *testing.T) (string, <-chan Message) {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "test.sock")
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("Failed to listen on test socket: %v", err)
	}
	t.Cleanup(func() {
		_ = listener.Close()
	})

	msgChan := make(chan Message, 100)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		decoder := json.NewDecoder(conn)
		for {
			var msg Message
			if err := decoder.Decode(&msg); err != nil {
				return
			}
			msgChan <- msg
		}
	}()

	return socketPath, msgChan
}

func waitForMessage(t *testing.T, msgChan <-chan Message, msgType string) Message {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg := <-msgChan:
			if msg.Type == msgType {
				return msg
			}
		case <-deadline:
			t.Fatalf("Timed out waiting for %q message", msgType)
		}
	}
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient("/tmp/nonexistent.sock", 0)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.debounce != 100*time.Millisecond {
		t.Errorf("Default debounce = %v, want 100ms", client.debounce)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestConnectSendsSubscription(t *testing.T) {
	socketPath, msgChan := startFakeDaemon(t)

	client, err := NewClient(socketPath, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	msg := waitForMessage(t, msgChan, "subscribe")
	if msg.Subscribe == nil {
		t.Fatal("Subscribe message has no payload")
	}
	if msg.Subscribe.ProjectID != 0 {
		t.Errorf("Initial subscription project = %d, want 0 (all projects)", msg.Subscribe.ProjectID)
	}
	if msg.Version != ProtocolVersion {
		t.Errorf("Message version = %d, want %d", msg.Version, ProtocolVersion)
	}
}

func TestSendEventBatchesColumnUnion(t *testing.T) {
	socketPath, msgChan := startFakeDaemon(t)

	client, err := NewClient(socketPath, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	// A burst of moves inside one debounce window must flush as a
	// single event carrying the union of affected columns.
	burst := []Event{
		{Type: EventBoardChanged, ProjectID: 1, AffectedColumnIDs: []int{3, 1}},
		{Type: EventBoardChanged, ProjectID: 1, AffectedColumnIDs: []int{1, 2}},
		{Type: EventBoardChanged, ProjectID: 1, AffectedColumnIDs: []int{5}},
	}
	for _, event := range burst {
		if err := client.SendEvent(event); err != nil {
			t.Fatalf("SendEvent failed: %v", err)
		}
	}

	msg := waitForMessage(t, msgChan, "event")
	if msg.Event == nil {
		t.Fatal("Event message has no payload")
	}
	if msg.Event.ProjectID != 1 {
		t.Errorf("Event project = %d, want 1", msg.Event.ProjectID)
	}
	want := []int{1, 2, 3, 5}
	got := msg.Event.AffectedColumnIDs
	if len(got) != len(want) {
		t.Fatalf("Affected columns = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Affected columns = %v, want %v (sorted, deduplicated)", got, want)
		}
	}
}

func TestSendEventMixedProjectsCollapse(t *testing.T) {
	socketPath, msgChan := startFakeDaemon(t)

	client, err := NewClient(socketPath, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if err := client.SendEvent(Event{Type: EventBoardChanged, ProjectID: 1, AffectedColumnIDs: []int{1}}); err != nil {
		t.Fatalf("SendEvent failed: %v", err)
	}
	if err := client.SendEvent(Event{Type: EventBoardChanged, ProjectID: 2, AffectedColumnIDs: []int{9}}); err != nil {
		t.Fatalf("SendEvent failed: %v", err)
	}

	msg := waitForMessage(t, msgChan, "event")
	if msg.Event.ProjectID != 0 {
		t.Errorf("Mixed-project batch should collapse to project 0, got %d", msg.Event.ProjectID)
	}
}

func TestCloseWithoutConnect(t *testing.T) {
	client, err := NewClient("/tmp/nonexistent.sock", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- client.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Close failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close hung on a client that never connected")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	client, err := NewClient("/tmp/nonexistent.sock", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("First close failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}

func TestSubscribeRequiresConnection(t *testing.T) {
	client, err := NewClient("/tmp/nonexistent.sock", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	if err := client.Subscribe(1); err == nil {
		t.Error("Subscribe before Connect should fail")
	}
}

func TestBatchAccumulation(t *testing.T) {
	var b batch

	b.add(Event{ProjectID: 3, AffectedColumnIDs: []int{2}})
	b.add(Event{ProjectID: 3, AffectedColumnIDs: []int{2, 4}})

	event := b.event()
	if event.ProjectID != 3 {
		t.Errorf("Batch project = %d, want 3", event.ProjectID)
	}
	if len(event.AffectedColumnIDs) != 2 {
		t.Errorf("Batch columns = %v, want [2 4]", event.AffectedColumnIDs)
	}
	if event.Type != EventBoardChanged {
		t.Errorf("Batch event type = %q, want %q", event.Type, EventBoardChanged)
	}
}
