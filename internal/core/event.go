package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventNewMessage delivers a freshly persisted message to a room member.
	EventNewMessage EventKind = iota
	// EventHistory delivers a page of older messages to the requester.
	EventHistory
	// EventError notifies the originating client about a failed request.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventNewMessage:
		return "new_message_created"
	case EventHistory:
		return "send_message_history"
	case EventError:
		return "error_response"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind      EventKind
	Recipient string        // EventHistory: whose conversation the page belongs to
	Message   *MessageView  // EventNewMessage
	History   []MessageView // EventHistory, oldest first
	Error     *CoreError
}
