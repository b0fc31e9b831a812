package core

import "context"

// ChatService abstracts conversation and message persistence for the Hub.
// Errors should be KindErrors so they can be reported to the caller; anything
// else is treated as an internal failure.
type ChatService interface {
	// ResolveSharedConversation returns the id of the conversation between the
	// caller and targetUsername.
	ResolveSharedConversation(ctx context.Context, caller Caller, targetUsername string) (int64, error)

	// CreateMessage persists body in the conversation shared with
	// targetUsername and returns the stored message.
	CreateMessage(ctx context.Context, caller Caller, targetUsername, body string) (Message, error)

	// FetchMessageHistory returns a page of messages older than cursor, oldest
	// first. A cursor of "0" selects the newest page.
	FetchMessageHistory(ctx context.Context, caller Caller, targetUsername, cursor string) ([]Message, error)

	// MarkMessageSeen flags a message as seen by its recipient.
	MarkMessageSeen(ctx context.Context, messageID int64) error
}
