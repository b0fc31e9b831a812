package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Hub coordinates realtime sessions: it owns the room registry, routes client
// commands to the chat service and fans new messages out to connected peers.
type Hub struct {
	registry    *Registry
	conns       *Connections
	broadcaster *Broadcaster
	chat        ChatService
	log         *zerolog.Logger
}

// NewHub creates a new hub backed by chat. logger may be nil.
func NewHub(chat ChatService, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	registry := NewRegistry()
	conns := NewConnections()
	return &Hub{
		registry:    registry,
		conns:       conns,
		broadcaster: NewBroadcaster(registry, conns, logger),
		chat:        chat,
		log:         logger,
	}
}

// Registry exposes the hub's room registry for inspection.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Connections exposes the directory of live connections.
func (h *Hub) Connections() *Connections {
	return h.conns
}

// Connect makes a freshly authenticated client reachable for broadcasts.
func (h *Hub) Connect(client *Client) {
	h.conns.Attach(client)
	h.log.Debug().Str("handle", client.Handle).Int64("user_id", client.userID()).Msg("client connected")
}

// Disconnect removes every trace of the client. Safe to call more than once.
func (h *Hub) Disconnect(client *Client) {
	h.Handle(context.Background(), client, &Command{Kind: CommandDisconnect})
}

// Handle processes one command for client. Failures are reported to the
// client as error events and never escape.
func (h *Hub) Handle(ctx context.Context, client *Client, cmd *Command) {
	if state, _ := client.State(); state == StateDisconnected {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			h.log.Error().
				Str("handle", client.Handle).
				Str("command", cmd.Kind.String()).
				Str("panic", fmt.Sprint(r)).
				Msg("command handler panicked")
			h.sendError(client, coreError(ErrCodeInternal, "internal server error"))
		}
	}()

	if cmd.Kind == CommandDisconnect {
		h.disconnect(client)
		return
	}

	if client.Caller == nil {
		h.sendError(client, coreError(ErrCodeUnauthenticated, "authentication required"))
		return
	}

	switch cmd.Kind {
	case CommandRegister:
		h.register(ctx, client, cmd.Recipient)
	case CommandRequestHistory:
		h.history(ctx, client, cmd.Recipient, cmd.Cursor)
	case CommandSendMessage:
		h.send(ctx, client, cmd.Recipient, cmd.Body)
	default:
		h.sendError(client, coreError(ErrCodeBadRequest, "unknown command"))
	}
}

func (h *Hub) register(ctx context.Context, client *Client, recipient string) {
	conversationID, err := h.chat.ResolveSharedConversation(ctx, *client.Caller, recipient)
	if err != nil {
		h.fail(client, CommandRegister, err)
		return
	}

	// Re-registering replaces the previous room for this connection.
	if state, _ := client.State(); state == StateRegistered {
		h.registry.Remove(client.Handle)
	}
	h.registry.Add(conversationID, client.Caller.UserID, client.Handle)
	client.setRegistered(conversationID)

	h.log.Debug().
		Str("handle", client.Handle).
		Int64("user_id", client.Caller.UserID).
		Int64("conversation_id", conversationID).
		Msg("registered for realtime")
}

func (h *Hub) history(ctx context.Context, client *Client, recipient, cursor string) {
	messages, err := h.chat.FetchMessageHistory(ctx, *client.Caller, recipient, cursor)
	if err != nil {
		h.fail(client, CommandRequestHistory, err)
		return
	}

	views := make([]MessageView, 0, len(messages))
	for _, msg := range messages {
		views = append(views, ViewFor(msg, client.Caller.UserID))
	}
	h.reply(client, &Event{Kind: EventHistory, Recipient: recipient, History: views})
}

func (h *Hub) send(ctx context.Context, client *Client, recipient, body string) {
	msg, err := h.chat.CreateMessage(ctx, *client.Caller, recipient, body)
	if err != nil {
		h.fail(client, CommandSendMessage, err)
		return
	}

	if !h.broadcaster.Broadcast(msg) {
		return
	}
	if err := h.chat.MarkMessageSeen(ctx, msg.ID); err != nil {
		h.log.Warn().Err(err).Int64("message_id", msg.ID).Msg("failed to mark message seen")
	}
}

func (h *Hub) disconnect(client *Client) {
	if !client.markDisconnected() {
		return
	}
	conversationID, removed := h.registry.Remove(client.Handle)
	h.conns.Detach(client.Handle)

	ev := h.log.Debug().Str("handle", client.Handle)
	if removed {
		ev = ev.Int64("conversation_id", conversationID)
	}
	ev.Msg("client disconnected")
}

func (h *Hub) fail(client *Client, kind CommandKind, err error) {
	coreErr, known := classify(err)
	if !known {
		h.log.Error().Err(err).Str("handle", client.Handle).Str("command", kind.String()).Msg("chat service failure")
	} else {
		h.log.Info().Str("handle", client.Handle).Str("command", kind.String()).Str("code", coreErr.Code).Msg(coreErr.Message)
	}
	h.sendError(client, coreErr)
}

func (h *Hub) sendError(client *Client, coreErr *CoreError) {
	h.reply(client, &Event{Kind: EventError, Error: coreErr})
}

// reply queues event for the requesting connection only.
func (h *Hub) reply(client *Client, event *Event) {
	if !h.conns.Push(client.Handle, event) {
		h.log.Debug().
			Str("handle", client.Handle).
			Str("event", event.Kind.String()).
			Msg("dropped reply")
	}
}
