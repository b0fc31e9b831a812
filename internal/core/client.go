package core

import "sync"

// Caller is the authenticated identity behind a connection.
type Caller struct {
	UserID   int64
	Username string
}

// SessionState is the protocol state of one connection.
type SessionState int

const (
	StateConnected SessionState = iota
	StateRegistered
	StateDisconnected
)

// Client is a live connection as seen by the core layer. Events is its send
// queue; the transport drains it from a single writer goroutine.
type Client struct {
	Handle string
	Caller *Caller
	Events chan *Event

	mu           sync.Mutex
	state        SessionState
	conversation int64
}

// NewClient constructs a client with a buffered send queue.
func NewClient(handle string, caller *Caller, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Client{
		Handle: handle,
		Caller: caller,
		Events: make(chan *Event, queueSize),
	}
}

// State returns the current session state and, when registered, the
// conversation the client is viewing.
func (c *Client) State() (SessionState, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.conversation
}

func (c *Client) setRegistered(conversationID int64) {
	c.mu.Lock()
	c.state = StateRegistered
	c.conversation = conversationID
	c.mu.Unlock()
}

// markDisconnected moves the client to the terminal state. It reports false if
// the client was already disconnected.
func (c *Client) markDisconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDisconnected {
		return false
	}
	c.state = StateDisconnected
	c.conversation = 0
	return true
}

func (c *Client) userID() int64 {
	if c.Caller == nil {
		return 0
	}
	return c.Caller.UserID
}
