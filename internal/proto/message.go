package proto

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeRegister       = "register_for_realtime"
	InboundTypeRequestHistory = "request_message_history"
	InboundTypeSendMessage    = "send_message"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventNewMessage   = "new_message_created"
	EventHistory      = "send_message_history"
	EventErrorMessage = "error_response"
)

// RegisterData asks to receive realtime messages for the conversation shared
// with RecipientUsername.
type RegisterData struct {
	RecipientUsername string `json:"recipient_username"`
}

// RequestHistoryData requests a page of messages older than Cursor.
type RequestHistoryData struct {
	RecipientUsername string `json:"recipient_username"`
	Cursor            Cursor `json:"cursor"`
}

// SendMessageData is a chat message from the client.
type SendMessageData struct {
	RecipientUsername string `json:"recipient_username"`
	MessageBody       string `json:"message_body"`
}

// Cursor is a paging position sent either as a JSON string or number.
type Cursor string

// UnmarshalJSON accepts "12", 12 and null.
func (c *Cursor) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*c = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Cursor(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("cursor must be a string or number: %w", err)
		}
		*c = Cursor(n.String())
		return nil
	}
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// MessageRecord is a message as seen by one participant.
type MessageRecord struct {
	MessageID      int64  `json:"message_id"`
	ConversationID int64  `json:"conversation_id"`
	AuthorID       int64  `json:"author_id"`
	Body           string `json:"body"`
	DateCreated    int64  `json:"date_created"`
	Seen           bool   `json:"seen"`
	Origin         string `json:"origin"`
}

// HistoryData carries a page of messages, oldest first. NextCursor is the
// cursor for the preceding page, nil when the page is empty.
type HistoryData struct {
	RecipientUsername string          `json:"recipient_username"`
	Messages          []MessageRecord `json:"messages"`
	NextCursor        *int64          `json:"next_cursor"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
