package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandRegister associates the connection with the conversation it shares
	// with Recipient.
	CommandRegister CommandKind = iota
	// CommandRequestHistory asks for a page of messages older than Cursor.
	CommandRequestHistory
	// CommandSendMessage persists Body and fans it out to the conversation room.
	CommandSendMessage
	// CommandDisconnect tears the connection down.
	CommandDisconnect
)

func (k CommandKind) String() string {
	switch k {
	case CommandRegister:
		return "register_for_realtime"
	case CommandRequestHistory:
		return "request_message_history"
	case CommandSendMessage:
		return "send_message"
	case CommandDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
type Command struct {
	Kind      CommandKind
	Recipient string
	Body      string
	Cursor    string
}
