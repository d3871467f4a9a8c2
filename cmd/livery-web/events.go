package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fpang/livery-studio/internal/jobs"
	"github.com/fpang/livery-studio/internal/studio"
	"github.com/rs/zerolog/log"
)

// Event types sent over SSE.
const (
	// EventState carries a full studio.View after every state change.
	EventState = "state"

	// MaxConnections is the maximum number of concurrent SSE connections.
	MaxConnections = 64

	keepAliveInterval = 25 * time.Second
)

// connection is one SSE client. Only the newest view is kept: a slow client
// skips intermediate states instead of stalling the studio.
type connection struct {
	id      string
	mu      sync.Mutex
	latest  *studio.View
	wake    chan struct{}
	done    chan struct{}
	closeMu sync.Once
}

func (c *connection) offer(v studio.View) {
	c.mu.Lock()
	c.latest = &v
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *connection) take() (studio.View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return studio.View{}, false
	}
	v := *c.latest
	c.latest = nil
	return v, true
}

func (c *connection) close() {
	c.closeMu.Do(func() { close(c.done) })
}

// Broker fans studio state out to every connected browser tab.
type Broker struct {
	mu          sync.RWMutex
	connections map[string]*connection
}

// NewBroker creates a new SSE broker.
func NewBroker() *Broker {
	return &Broker{connections: make(map[string]*connection)}
}

// Publish queues v for every connection without blocking.
func (b *Broker) Publish(v studio.View) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, conn := range b.connections {
		conn.offer(v)
	}
}

// ConnectionCount returns the number of active connections.
func (b *Broker) ConnectionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.connections)
}

// Serve streams state events to one client, starting with initial.
func (b *Broker) Serve(w http.ResponseWriter, r *http.Request, initial studio.View) {
	if b.ConnectionCount() >= MaxConnections {
		httpError(w, http.StatusServiceUnavailable, "too many connections")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httpError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// The server's WriteTimeout would otherwise cut the stream.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	conn := &connection{
		id:   jobs.GenerateID(jobs.PrefixStream),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	conn.offer(initial)
	b.add(conn)
	defer b.remove(conn)
	log.Debug().Str("conn", conn.id).Msg("SSE client connected")

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-conn.done:
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-conn.wake:
			v, ok := conn.take()
			if !ok {
				continue
			}
			if err := writeEvent(w, EventState, v); err != nil {
				log.Debug().Err(err).Str("conn", conn.id).Msg("SSE write failed")
				return
			}
			flusher.Flush()
		}
	}
}

// Shutdown closes all connections.
func (b *Broker) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, conn := range b.connections {
		conn.close()
		delete(b.connections, id)
	}
	return nil
}

func (b *Broker) add(conn *connection) {
	b.mu.Lock()
	b.connections[conn.id] = conn
	b.mu.Unlock()
}

func (b *Broker) remove(conn *connection) {
	b.mu.Lock()
	delete(b.connections, conn.id)
	b.mu.Unlock()
}

// writeEvent formats one SSE event:
//
//	event: <type>
//	data: <json>
//	<blank line>
func writeEvent(w http.ResponseWriter, eventType string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, jsonData); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}
