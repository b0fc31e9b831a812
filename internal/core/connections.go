package core

import "sync"

// Pusher delivers an event to a single connection without blocking. It
// returns false when the event could not be queued.
type Pusher interface {
	Push(handle string, event *Event) bool
}

// Connections is the directory of live connections keyed by handle.
type Connections struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewConnections constructs an empty directory.
func NewConnections() *Connections {
	return &Connections{clients: make(map[string]*Client)}
}

// Attach makes the client reachable by its handle.
func (c *Connections) Attach(client *Client) {
	c.mu.Lock()
	c.clients[client.Handle] = client
	c.mu.Unlock()
}

// Detach removes the handle from the directory.
func (c *Connections) Detach(handle string) {
	c.mu.Lock()
	delete(c.clients, handle)
	c.mu.Unlock()
}

// Len returns the number of attached connections.
func (c *Connections) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clients)
}

// Push queues event on the connection's send queue. Unknown handles and full
// queues drop the event.
func (c *Connections) Push(handle string, event *Event) bool {
	c.mu.RLock()
	client, ok := c.clients[handle]
	c.mu.RUnlock()
	if !ok {
		return false
	}

	select {
	case client.Events <- event:
		return true
	default:
		// Drop if slow consumer.
		return false
	}
}
