package core

import "github.com/rs/zerolog"

// Broadcaster fans persisted messages out to every connection in their room.
type Broadcaster struct {
	registry *Registry
	out      Pusher
	log      *zerolog.Logger
}

// NewBroadcaster builds a broadcaster over registry delivering through out.
func NewBroadcaster(registry *Registry, out Pusher, logger *zerolog.Logger) *Broadcaster {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Broadcaster{registry: registry, out: out, log: logger}
}

// Broadcast pushes msg to each member of its conversation room, annotated with
// the member's origin. It reports whether a member other than the author was
// reached.
func (b *Broadcaster) Broadcast(msg Message) bool {
	members := b.registry.Members(msg.ConversationID)

	recipientReached := false
	for _, m := range members {
		view := ViewFor(msg, m.UserID)
		if !b.out.Push(m.Handle, &Event{Kind: EventNewMessage, Message: &view}) {
			b.log.Debug().
				Str("handle", m.Handle).
				Int64("message_id", msg.ID).
				Msg("dropped message delivery")
			continue
		}
		if m.UserID != msg.AuthorID {
			recipientReached = true
		}
	}
	return recipientReached
}
