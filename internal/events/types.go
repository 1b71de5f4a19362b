package events

import "time"

// EventType indicates what kind of change occurred
type EventType string

const (
	EventBoardChanged EventType = "board_changed"
	EventPing         EventType = "ping"
	EventPong         EventType = "pong"
)

// ProtocolVersion is bumped when the wire format changes.
const ProtocolVersion = 1

// Event tells subscribers which columns changed after a committed
// move. Delivery is best effort and at most once: board correctness
// never depends on an event arriving.
type Event struct {
	Type              EventType
	ProjectID         int   // which tenant's board was touched
	AffectedColumnIDs []int // distinct column ids, ascending
	Timestamp         time.Time
	SequenceID        int64 // daemon-assigned, monotonically increasing
}

// SubscribeMessage is sent by clients to follow a specific project.
type SubscribeMessage struct {
	ProjectID int // 0 = all projects, >0 = specific project
}

// Message wraps events and control messages for the wire protocol.
type Message struct {
	Version   int
	Type      string            // "event", "subscribe", "ping", "pong"
	Event     *Event            `json:",omitempty"`
	Subscribe *SubscribeMessage `json:",omitempty"`
}
