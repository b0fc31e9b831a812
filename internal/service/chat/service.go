package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/vovakirdan/bitter-server/internal/core"
	"github.com/vovakirdan/bitter-server/internal/store"
)

// Default page sizes.
const (
	DefaultMessagePageSize      = 10
	DefaultConversationPageSize = 8
)

// Options tunes paging.
type Options struct {
	MessagePageSize      int
	ConversationPageSize int
}

// Profile is the public view of a user.
type Profile struct {
	ID          int64
	Username    string
	DisplayName string
	CreatedAt   time.Time
}

// ConversationSummary describes a conversation from one participant's side.
type ConversationSummary struct {
	ID                   int64
	CreatedAt            time.Time
	RecipientUserID      int64
	RecipientUsername    string
	RecipientDisplayName string
	// ContainsUnseen is set when the latest incoming message is unseen.
	ContainsUnseen bool
}

// Service implements core.ChatService on top of the store, plus the
// conversation and profile lookups used by the REST API.
type Service struct {
	store                store.Store
	messagePageSize      int
	conversationPageSize int
	now                  func() time.Time
	log                  *zerolog.Logger
}

var _ core.ChatService = (*Service)(nil)

// New creates a chat service. logger may be nil.
func New(st store.Store, opts Options, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.MessagePageSize <= 0 {
		opts.MessagePageSize = DefaultMessagePageSize
	}
	if opts.ConversationPageSize <= 0 {
		opts.ConversationPageSize = DefaultConversationPageSize
	}
	return &Service{
		store:                st,
		messagePageSize:      opts.MessagePageSize,
		conversationPageSize: opts.ConversationPageSize,
		now:                  func() time.Time { return time.Now().UTC().Truncate(time.Second) },
		log:                  logger,
	}
}

// ResolveSharedConversation returns the conversation between caller and targetUsername.
func (s *Service) ResolveSharedConversation(ctx context.Context, caller core.Caller, targetUsername string) (int64, error) {
	username := normalizeUsername(targetUsername)
	if err := check(usernameInput{Username: username}); err != nil {
		return 0, err
	}
	conv, err := s.sharedConversation(ctx, caller, username)
	if err != nil {
		return 0, err
	}
	return conv.ID, nil
}

// CreateMessage stores body in the conversation shared with targetUsername.
func (s *Service) CreateMessage(ctx context.Context, caller core.Caller, targetUsername, body string) (core.Message, error) {
	username := normalizeUsername(targetUsername)
	body = strings.TrimSpace(body)
	if err := check(messageInput{Username: username, Body: body}); err != nil {
		return core.Message{}, err
	}

	conv, err := s.sharedConversation(ctx, caller, username)
	if err != nil {
		return core.Message{}, err
	}

	msg := &store.Message{
		ConversationID: conv.ID,
		AuthorID:       caller.UserID,
		Body:           body,
		CreatedAt:      s.now(),
	}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return core.Message{}, fmt.Errorf("save message: %w", err)
	}

	s.log.Debug().
		Int64("message_id", msg.ID).
		Int64("conversation_id", conv.ID).
		Int64("user_id", caller.UserID).
		Msg("message created")

	return toCoreMessage(msg), nil
}

// FetchMessageHistory returns up to one page of messages older than cursor,
// oldest first. Incoming messages on the page are marked seen.
func (s *Service) FetchMessageHistory(ctx context.Context, caller core.Caller, targetUsername, cursor string) ([]core.Message, error) {
	username := normalizeUsername(targetUsername)
	cursor = strings.TrimSpace(cursor)
	if err := check(historyInput{Username: username, Cursor: cursor}); err != nil {
		return nil, err
	}
	before, err := parseCursor(cursor)
	if err != nil {
		return nil, err
	}

	conv, err := s.sharedConversation(ctx, caller, username)
	if err != nil {
		return nil, err
	}

	page, err := s.store.ListMessages(ctx, conv.ID, s.messagePageSize, before)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	incoming := lo.FilterMap(page, func(m *store.Message, _ int) (int64, bool) {
		return m.ID, m.AuthorID != caller.UserID && !m.Seen
	})
	if err := s.store.MarkSeen(ctx, incoming...); err != nil {
		return nil, fmt.Errorf("mark history seen: %w", err)
	}
	seen := lo.SliceToMap(incoming, func(id int64) (int64, struct{}) { return id, struct{}{} })

	return lo.Map(page, func(m *store.Message, _ int) core.Message {
		msg := toCoreMessage(m)
		if _, ok := seen[m.ID]; ok {
			msg.Seen = true
		}
		return msg
	}), nil
}

// MarkMessageSeen flags a message as seen.
func (s *Service) MarkMessageSeen(ctx context.Context, messageID int64) error {
	if err := s.store.MarkSeen(ctx, messageID); err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}

// CreateConversation opens a conversation between caller and targetUsername.
func (s *Service) CreateConversation(ctx context.Context, caller core.Caller, targetUsername string) (*ConversationSummary, error) {
	username := normalizeUsername(targetUsername)
	if err := check(usernameInput{Username: username}); err != nil {
		return nil, err
	}

	target, err := s.lookupUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == caller.UserID {
		return nil, core.NewError(core.ErrConflict, "Can't create a conversation with yourself")
	}

	conv, err := s.store.CreateConversation(ctx, caller.UserID, target.ID)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, core.NewError(core.ErrConflict, "A conversation with that user already exists")
		}
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	return &ConversationSummary{
		ID:                   conv.ID,
		CreatedAt:            conv.CreatedAt,
		RecipientUserID:      target.ID,
		RecipientUsername:    target.Username,
		RecipientDisplayName: target.DisplayName,
	}, nil
}

// ListConversations returns one page of the caller's conversations, newest first.
func (s *Service) ListConversations(ctx context.Context, caller core.Caller, cursor string) ([]ConversationSummary, error) {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		cursor = "0"
	}
	if err := check(cursorInput{Cursor: cursor}); err != nil {
		return nil, err
	}
	before, err := parseCursor(cursor)
	if err != nil {
		return nil, err
	}

	convs, err := s.store.ListConversations(ctx, caller.UserID, s.conversationPageSize, before)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	summaries := make([]ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		other, err := s.store.GetUserByID(ctx, conv.Other(caller.UserID))
		if err != nil {
			return nil, fmt.Errorf("load participant: %w", err)
		}
		latest, err := s.store.ListMessages(ctx, conv.ID, 1, nil)
		if err != nil {
			return nil, fmt.Errorf("load latest message: %w", err)
		}
		unseen := len(latest) == 1 && latest[0].AuthorID != caller.UserID && !latest[0].Seen

		summaries = append(summaries, ConversationSummary{
			ID:                   conv.ID,
			CreatedAt:            conv.CreatedAt,
			RecipientUserID:      other.ID,
			RecipientUsername:    other.Username,
			RecipientDisplayName: other.DisplayName,
			ContainsUnseen:       unseen,
		})
	}
	return summaries, nil
}

// GetProfile returns the public profile of username.
func (s *Service) GetProfile(ctx context.Context, username string) (*Profile, error) {
	username = normalizeUsername(username)
	if err := check(usernameInput{Username: username}); err != nil {
		return nil, err
	}
	user, err := s.lookupUser(ctx, username)
	if err != nil {
		return nil, err
	}
	return toProfile(user), nil
}

// GetOwnProfile returns the caller's profile.
func (s *Service) GetOwnProfile(ctx context.Context, caller core.Caller) (*Profile, error) {
	user, err := s.store.GetUserByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NewError(core.ErrNotFound, "User not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return toProfile(user), nil
}

// UpdateDisplayName sets the caller's display name and returns the updated profile.
func (s *Service) UpdateDisplayName(ctx context.Context, caller core.Caller, displayName string) (*Profile, error) {
	displayName = strings.TrimSpace(displayName)
	if err := check(displayNameInput{DisplayName: displayName}); err != nil {
		return nil, err
	}

	if err := s.store.UpdateDisplayName(ctx, caller.UserID, displayName); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NewError(core.ErrNotFound, "User not found")
		}
		return nil, err
	}
	s.log.Info().Int64("user_id", caller.UserID).Msg("display name updated")

	return s.GetOwnProfile(ctx, caller)
}

func toProfile(user *store.User) *Profile {
	return &Profile{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt,
	}
}

func (s *Service) lookupUser(ctx context.Context, username string) (*store.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NewError(core.ErrNotFound, fmt.Sprintf("User '%s' doesn't exist", username))
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// sharedConversation resolves the conversation between caller and a validated username.
func (s *Service) sharedConversation(ctx context.Context, caller core.Caller, username string) (*store.Conversation, error) {
	target, err := s.lookupUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == caller.UserID {
		return nil, core.NewError(core.ErrConflict, "Can't message yourself")
	}

	conv, err := s.store.GetConversationBetween(ctx, caller.UserID, target.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NewError(core.ErrNotFound, "A conversation with that user doesn't exist")
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

// parseCursor turns a validated cursor into an exclusive upper bound. Zero
// means no bound.
func parseCursor(cursor string) (*int64, error) {
	n, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil {
		return nil, core.NewError(core.ErrValidation, "fetch_content_cursor can only contain numerical characters")
	}
	if n == 0 {
		return nil, nil
	}
	return &n, nil
}

func toCoreMessage(m *store.Message) core.Message {
	return core.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		AuthorID:       m.AuthorID,
		Body:           m.Body,
		CreatedAt:      m.CreatedAt,
		Seen:           m.Seen,
	}
}
