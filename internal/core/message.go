package core

import "time"

// Message is a persisted chat message as returned by the message store.
type Message struct {
	ID             int64
	ConversationID int64
	AuthorID       int64
	Body           string
	CreatedAt      time.Time
	Seen           bool
}

// Origin tells a viewer whether they wrote a message or received it.
type Origin string

const (
	OriginSent     Origin = "sent"
	OriginReceived Origin = "received"
)

// MessageView is a message as seen by one particular user.
type MessageView struct {
	Message
	Origin Origin
}

// ViewFor annotates msg with its origin relative to userID.
func ViewFor(msg Message, userID int64) MessageView {
	origin := OriginReceived
	if msg.AuthorID == userID {
		origin = OriginSent
	}
	return MessageView{Message: msg, Origin: origin}
}
