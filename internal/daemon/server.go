// Package daemon implements the notification hub: a Unix-socket server
// that fans board change events out to subscribed clients. Delivery is
// best effort; a slow or dead client loses events rather than slowing
// the board down.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tableroapp/tablero/internal/events"
)

const (
	pingInterval  = 30 * time.Second
	staleInterval = 60 * time.Second
	staleAfter    = 90 * time.Second
)

// client represents a connected subscriber
type client struct {
	conn         net.Conn
	send         chan events.Message
	subscription events.SubscribeMessage
	lastPong     time.Time
	mu           sync.Mutex // Protects subscription and lastPong
	closeOnce    sync.Once  // Ensures send channel is closed only once
}

// Server is the tablero event daemon.
type Server struct {
	socketPath       string
	listener         net.Listener
	clients          map[*client]bool
	mu               sync.RWMutex
	ctx              context.Context
	cancel           context.CancelFunc
	broadcast        chan events.Event
	metrics          *Metrics
	sequenceCounter  atomic.Int64
	clientBufferSize int
	shutdownOnce     sync.Once
}

// NewServer creates a new daemon server listening on socketPath.
func NewServer(socketPath string) (*Server, error) {
	dir := filepath.Dir(socketPath)
	if dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create socket directory: %w", err)
		}
	}

	// Remove stale socket file if it exists
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return nil, fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	lc := net.ListenConfig{}
	listener, err := lc.Listen(context.Background(), "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create socket listener: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		socketPath:       socketPath,
		listener:         listener,
		clients:          make(map[*client]bool),
		ctx:              ctx,
		cancel:           cancel,
		broadcast:        make(chan events.Event, 100),
		metrics:          NewMetrics(),
		clientBufferSize: 10,
	}, nil
}

// Start runs the daemon server. It blocks until the context is
// cancelled or the accept loop fails, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	log.Printf("Daemon starting, listening on %s", s.socketPath)

	combinedCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-s.ctx.Done()
		cancel()
	}()

	acceptErr := make(chan error, 1)
	go func() {
		acceptErr <- s.acceptLoop(combinedCtx)
	}()

	go s.broadcastLoop(combinedCtx)
	go s.monitorHealth(combinedCtx)

	select {
	case <-combinedCtx.Done():
		log.Println("Daemon context cancelled, shutting down")
	case err := <-acceptErr:
		if err != nil {
			log.Printf("Accept loop error: %v", err)
		}
	}

	return s.Shutdown()
}

// acceptLoop accepts incoming client connections
func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		// Deadline so we can notice context cancellation
		if err := s.listener.(*net.UnixListener).SetDeadline(time.Now().Add(1 * time.Second)); err != nil {
			log.Printf("Error setting listener deadline: %v", err)
		}

		conn, err := s.listener.Accept()
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			return fmt.Errorf("accept error: %w", err)
		}

		c := &client{
			conn:     conn,
			send:     make(chan events.Message, s.clientBufferSize),
			lastPong: time.Now(),
		}

		s.mu.Lock()
		s.clients[c] = true
		s.mu.Unlock()
		s.metrics.SetConnectedClients(int32(s.getClientCount()))

		log.Printf("Client connected, total clients: %d", s.getClientCount())

		go s.handleClient(c)
		go s.clientWriter(c)
	}
}

// broadcastLoop distributes events to subscribed clients
func (s *Server) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event := <-s.broadcast:
			// Stamp the event for at-most-once consumption downstream
			event.SequenceID = s.sequenceCounter.Add(1)
			s.metrics.IncEventsBroadcast()

			s.mu.RLock()
			for c := range s.clients {
				c.mu.Lock()
				// Deliver when the event spans all projects, the client
				// follows all projects, or the projects match.
				subscribed := event.ProjectID == 0 ||
					c.subscription.ProjectID == 0 ||
					c.subscription.ProjectID == event.ProjectID
				c.mu.Unlock()

				if subscribed {
					msg := events.Message{
						Version: events.ProtocolVersion,
						Type:    "event",
						Event:   &event,
					}

					// Non-blocking send - if client is slow, skip
					if !s.sendToClient(c, msg) {
						log.Printf("Client send queue full, event dropped")
					}
				}
			}
			s.mu.RUnlock()
		}
	}
}

// handleClient reads messages from a connected client
func (s *Server) handleClient(c *client) {
	defer func() {
		s.removeClient(c)
		log.Printf("Client disconnected, total clients: %d", s.getClientCount())
	}()

	decoder := json.NewDecoder(c.conn)

	for {
		var msg events.Message

		if err := decoder.Decode(&msg); err != nil {
			return
		}

		if msg.Version != 0 && msg.Version != events.ProtocolVersion {
			log.Printf("Warning: received message with protocol version %d, expected %d", msg.Version, events.ProtocolVersion)
		}

		switch msg.Type {
		case "event":
			if msg.Event != nil {
				s.metrics.IncEventsReceived()
				select {
				case s.broadcast <- *msg.Event:
				default:
					log.Printf("Broadcast channel full")
				}
			}

		case "subscribe":
			if msg.Subscribe != nil {
				c.mu.Lock()
				c.subscription = *msg.Subscribe
				c.mu.Unlock()
				log.Printf("Client subscribed to project %d", msg.Subscribe.ProjectID)
			}

		case "pong":
			c.mu.Lock()
			c.lastPong = time.Now()
			c.mu.Unlock()
		}
	}
}

// clientWriter sends queued messages to a client
func (s *Server) clientWriter(c *client) {
	encoder := json.NewEncoder(c.conn)

	for msg := range c.send {
		if err := encoder.Encode(msg); err != nil {
			return
		}
	}
}

// monitorHealth sends ping messages and removes stale clients
func (s *Server) monitorHealth(ctx context.Context) {
	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	staleTicker := time.NewTicker(staleInterval)
	defer staleTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-pingTicker.C:
			s.mu.RLock()
			clients := make([]*client, 0, len(s.clients))
			for c := range s.clients {
				clients = append(clients, c)
			}
			s.mu.RUnlock()

			pingMsg := events.Message{
				Version: events.ProtocolVersion,
				Type:    "ping",
				Event:   &events.Event{Type: events.EventPing},
			}

			for _, c := range clients {
				if !s.sendToClient(c, pingMsg) {
					log.Printf("Failed to send ping to client (queue full)")
				}
			}

		case <-staleTicker.C:
			// Two-phase: collect under the read lock, remove outside it
			s.mu.RLock()
			var stale []*client
			now := time.Now()
			for c := range s.clients {
				c.mu.Lock()
				lastPong := c.lastPong
				c.mu.Unlock()

				if now.Sub(lastPong) > staleAfter {
					stale = append(stale, c)
				}
			}
			s.mu.RUnlock()

			for _, c := range stale {
				log.Printf("Removing stale client (last pong: %v ago)", now.Sub(c.lastPong))
				s.removeClient(c)
			}
		}
	}
}

// Broadcast sends an event to the broadcast channel (non-blocking)
func (s *Server) Broadcast(event events.Event) error {
	select {
	case s.broadcast <- event:
		return nil
	default:
		return fmt.Errorf("broadcast channel full")
	}
}

// Metrics returns the daemon's counters.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	s.shutdownOnce.Do(func() {
		log.Println("Shutting down daemon...")

		s.cancel()

		if s.listener != nil {
			if closeErr := s.listener.Close(); closeErr != nil {
				log.Printf("Error closing listener: %v", closeErr)
			}
		}

		s.mu.Lock()
		for c := range s.clients {
			if closeErr := c.conn.Close(); closeErr != nil {
				log.Printf("Error closing client connection: %v", closeErr)
			}
			c.closeOnce.Do(func() {
				close(c.send)
			})
		}
		s.clients = make(map[*client]bool)
		s.mu.Unlock()

		if removeErr := os.Remove(s.socketPath); removeErr != nil && !os.IsNotExist(removeErr) {
			log.Printf("Warning: failed to remove socket file: %v", removeErr)
		}
	})

	return nil
}

func (s *Server) getClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// removeClient safely removes a client from the server
func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()

	if err := c.conn.Close(); err != nil {
		log.Printf("Error closing client connection: %v", err)
	}
	c.closeOnce.Do(func() {
		close(c.send)
	})

	s.metrics.SetConnectedClients(int32(s.getClientCount()))
}

// sendToClient attempts to send a message to a client (non-blocking)
// Returns true if successful, false if the queue is full
func (s *Server) sendToClient(c *client, msg events.Message) bool {
	select {
	case c.send <- msg:
		s.metrics.IncEventsSent()
		return true
	default:
		return false
	}
}
