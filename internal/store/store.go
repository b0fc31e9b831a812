package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is wrapped by lookups that match no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is wrapped when a unique constraint rejects an insert.
var ErrDuplicate = errors.New("already exists")

// User represents a user in the system.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}

// Conversation is a direct-message thread between two users.
// User1ID is always the smaller of the two ids.
type Conversation struct {
	ID        int64
	User1ID   int64
	User2ID   int64
	CreatedAt time.Time
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID int64) int64 {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// Message represents a persisted chat message.
type Message struct {
	ID             int64
	ConversationID int64
	AuthorID       int64
	Body           string
	CreatedAt      time.Time
	Seen           bool
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, displayName, passwordHash string, isAdmin bool) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// UpdatePasswordHash replaces a user's password hash.
	UpdatePasswordHash(ctx context.Context, userID int64, passwordHash string) error

	// UpdateDisplayName replaces a user's display name.
	UpdateDisplayName(ctx context.Context, userID int64, displayName string) error
}

// ConversationStore handles conversation persistence.
type ConversationStore interface {
	// CreateConversation creates a conversation between two distinct users.
	// Returns ErrDuplicate if they already share one.
	CreateConversation(ctx context.Context, userID, otherUserID int64) (*Conversation, error)

	// GetConversationBetween retrieves the conversation two users share.
	GetConversationBetween(ctx context.Context, userID, otherUserID int64) (*Conversation, error)

	// ListConversations lists a user's conversations newest first.
	// If beforeID is provided, returns conversations older than that ID.
	ListConversations(ctx context.Context, userID int64, limit int, beforeID *int64) ([]*Conversation, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message and fills in its ID.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages retrieves messages from a conversation with pagination,
	// in chronological order. If beforeID is provided, returns messages older
	// than that ID.
	ListMessages(ctx context.Context, conversationID int64, limit int, beforeID *int64) ([]*Message, error)

	// MarkSeen flags the given messages as seen.
	MarkSeen(ctx context.Context, messageIDs ...int64) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ConversationStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
