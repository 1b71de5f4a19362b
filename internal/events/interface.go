package events

import "context"

// Publisher defines the interface for sending and receiving board
// change notifications. Depending on behavior rather than the concrete
// socket client keeps callers testable and lets the engine run without
// any notification infrastructure at all.
type Publisher interface {
	// Connect establishes a connection to the daemon socket
	Connect(ctx context.Context) error

	// SendEvent queues an event to be sent to the daemon
	SendEvent(event Event) error

	// Listen starts listening for events from the daemon
	Listen(ctx context.Context) (<-chan Event, error)

	// Subscribe changes the subscription to a specific project
	Subscribe(projectID int) error

	// Close closes the connection to the daemon and stops all goroutines
	Close() error
}

// Compile-time verification that *Client implements Publisher
var _ Publisher = (*Client)(nil)
