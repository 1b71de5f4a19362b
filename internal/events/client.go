package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strings"
	"sync"
	"time"
)

// Client represents a connection to the tablero daemon for live board
// updates. It handles event sending, receiving, batching, reconnection,
// and subscriptions.
type Client struct {
	socketPath string
	conn       net.Conn
	encoder    *json.Encoder
	decoder    *json.Decoder
	mu         sync.Mutex

	// Batching configuration
	eventQueue chan Event
	debounce   time.Duration
	closed     bool // Prevent double-close panics

	// Reconnection configuration
	maxRetries int
	baseDelay  time.Duration

	// Subscription state
	currentProjectID int

	// Duplicate suppression
	lastSequence int64

	// Context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc

	// Batching goroutine
	batcherStarted bool
	batcherDone    chan struct{}
}

// NewClient creates a new event client but does not connect.
// The socket path should be the full path to the Unix domain socket.
// The debounce duration controls how long column changes accumulate
// before a single batched event is flushed to the daemon.
func NewClient(socketPath string, debounce time.Duration) (*Client, error) {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		socketPath:       socketPath,
		eventQueue:       make(chan Event, 100),
		debounce:         debounce,
		maxRetries:       5,
		baseDelay:        1 * time.Second,
		currentProjectID: 0,
		ctx:              ctx,
		cancel:           cancel,
		batcherDone:      make(chan struct{}),
	}, nil
}

// Connect establishes a connection to the daemon socket.
// It sends an initial subscription message for all projects.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("failed to dial daemon socket: %w", err)
	}

	c.conn = conn
	c.encoder = json.NewEncoder(conn)
	c.decoder = json.NewDecoder(conn)

	msg := Message{
		Version: ProtocolVersion,
		Type:    "subscribe",
		Subscribe: &SubscribeMessage{
			ProjectID: c.currentProjectID,
		},
	}
	if err := c.encoder.Encode(msg); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			slog.Error("error closing connection", "error", closeErr)
		}
		return fmt.Errorf("failed to send subscription: %w", err)
	}

	if !c.batcherStarted {
		c.batcherStarted = true
		go c.startBatcher()
	}

	return nil
}

// SendEvent queues an event to be sent to the daemon.
// Events are batched within the debounce window: their affected column
// sets are unioned so subscribers see one refresh per burst of moves.
// Returns an error if the queue is full (non-blocking send).
func (c *Client) SendEvent(event Event) error {
	select {
	case c.eventQueue <- event:
		return nil
	default:
		return fmt.Errorf("event queue full")
	}
}

// batch accumulates the pending notification between flushes.
type batch struct {
	pending   bool
	projectID int
	mixed     bool // events from more than one project collapsed
	columns   map[int]struct{}
}

func (b *batch) add(event Event) {
	if !b.pending {
		b.pending = true
		b.projectID = event.ProjectID
		b.mixed = false
		b.columns = make(map[int]struct{})
	} else if event.ProjectID != b.projectID && event.ProjectID != 0 {
		b.mixed = true
	}
	for _, id := range event.AffectedColumnIDs {
		b.columns[id] = struct{}{}
	}
}

func (b *batch) event() Event {
	projectID := b.projectID
	if b.mixed {
		projectID = 0 // all projects
	}
	columns := make([]int, 0, len(b.columns))
	for id := range b.columns {
		columns = append(columns, id)
	}
	sort.Ints(columns)
	return Event{
		Type:              EventBoardChanged,
		ProjectID:         projectID,
		AffectedColumnIDs: columns,
		Timestamp:         time.Now(),
	}
}

// startBatcher runs in a goroutine and batches queued events. Once per
// debounce interval, any pending column changes are flushed as a single
// event.
func (c *Client) startBatcher() {
	defer close(c.batcherDone)

	ticker := time.NewTicker(c.debounce)
	defer ticker.Stop()

	var b batch

	flush := func() {
		if !b.pending {
			return
		}
		if err := c.sendToSocket(b.event()); err != nil {
			if !isConnectionError(err) {
				slog.Error("failed to send batched event", "error", err)
			}
		}
		b = batch{}
	}

	for {
		select {
		case <-c.ctx.Done():
			flush()
			return

		case event, ok := <-c.eventQueue:
			if !ok {
				flush()
				return
			}
			b.add(event)

			// Drain whatever else arrived during this batch window.
		drainLoop:
			for {
				select {
				case evt, ok := <-c.eventQueue:
					if !ok {
						break drainLoop
					}
					b.add(evt)
				default:
					break drainLoop
				}
			}

		case <-ticker.C:
			flush()
		}
	}
}

// sendToSocket sends an event to the daemon socket.
func (c *Client) sendToSocket(event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected to daemon")
	}

	// Short write deadline to detect dead connections
	if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return fmt.Errorf("connection error: %w", err)
	}

	msg := Message{
		Version: ProtocolVersion,
		Type:    "event",
		Event:   &event,
	}
	return c.encoder.Encode(msg)
}

// Listen starts listening for events from the daemon.
// It returns a channel that receives events and handles reconnection
// automatically. The channel is closed when the context is done or
// reconnection fails.
func (c *Client) Listen(ctx context.Context) (<-chan Event, error) {
	eventChan := make(chan Event, 10)
	go c.listenLoop(ctx, eventChan)
	return eventChan, nil
}

// listenLoop reads events from the daemon and handles reconnection.
func (c *Client) listenLoop(ctx context.Context, eventChan chan Event) {
	defer close(eventChan)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			err := c.readEvents(ctx, eventChan)
			if err != nil {
				slog.Warn("connection lost, reconnecting", "error", err)

				if c.reconnect(ctx) {
					slog.Info("reconnected to daemon")
					continue
				}

				slog.Warn("failed to reconnect, giving up", "attempts", c.maxRetries)
				return
			}
		}
	}
}

// readEvents reads messages from the socket and sends them to the event channel.
func (c *Client) readEvents(ctx context.Context, eventChan chan Event) error {
	for {
		var msg Message

		c.mu.Lock()
		if c.conn == nil {
			c.mu.Unlock()
			return fmt.Errorf("connection closed")
		}
		// Read deadline to detect hung connections
		if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
			c.mu.Unlock()
			return fmt.Errorf("failed to set read deadline: %w", err)
		}
		decoder := c.decoder
		c.mu.Unlock()

		if err := decoder.Decode(&msg); err != nil {
			return fmt.Errorf("failed to decode message: %w", err)
		}

		switch msg.Type {
		case "event":
			if msg.Event != nil {
				// At-most-once: drop replays and reordered duplicates
				// by sequence number.
				if msg.Event.SequenceID > c.lastSequence {
					c.lastSequence = msg.Event.SequenceID
					select {
					case eventChan <- *msg.Event:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}

		case "ping":
			if err := c.sendToSocket(Event{Type: EventPong}); err != nil {
				// Broken pipe is expected during disconnection
				if !isConnectionError(err) {
					slog.Warn("failed to send pong", "error", err)
				}
			}
		}
	}
}

// isConnectionError checks if an error is a network connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "use of closed network connection")
}

// reconnect attempts to reconnect to the daemon with exponential backoff.
// It tries up to maxRetries times, doubling the delay each time.
func (c *Client) reconnect(ctx context.Context) bool {
	delay := c.baseDelay

	for i := 0; i < c.maxRetries; i++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
			c.mu.Lock()
			if c.conn != nil {
				if err := c.conn.Close(); err != nil {
					slog.Warn("error closing connection during reconnect", "error", err)
				}
			}
			c.mu.Unlock()

			if err := c.Connect(ctx); err == nil {
				slog.Info("reconnected to daemon", "attempt", i+1, "max", c.maxRetries)
				return true
			}

			slog.Debug("reconnection attempt failed", "attempt", i+1, "max", c.maxRetries, "next_delay", delay)
			delay *= 2
		}
	}

	return false
}

// Subscribe changes the subscription to a specific project.
// ProjectID 0 means subscribe to all projects.
func (c *Client) Subscribe(projectID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.currentProjectID = projectID

	if c.conn == nil {
		return fmt.Errorf("not connected to daemon")
	}

	msg := Message{
		Version: ProtocolVersion,
		Type:    "subscribe",
		Subscribe: &SubscribeMessage{
			ProjectID: projectID,
		},
	}

	return c.encoder.Encode(msg)
}

// Close closes the connection to the daemon and stops all goroutines.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	// Closing the queue lets the batcher flush pending events before
	// exiting.
	if c.eventQueue != nil {
		close(c.eventQueue)
	}
	batcherStarted := c.batcherStarted
	c.mu.Unlock()

	c.cancel()

	// Wait for the batcher to finish its final flush
	if batcherStarted {
		<-c.batcherDone
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn.Close()
	}

	return nil
}
