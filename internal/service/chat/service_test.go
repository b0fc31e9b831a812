package chat

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vovakirdan/bitter-server/internal/core"
	"github.com/vovakirdan/bitter-server/internal/store"
	"github.com/vovakirdan/bitter-server/internal/store/sqlite"
)

type fixture struct {
	svc   *Service
	store store.Store
	alice core.Caller
	bob   core.Caller
	carol core.Caller
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	callers := map[string]core.Caller{}
	for _, name := range []string{"alice", "bob", "carol"} {
		u, err := st.CreateUser(ctx, name, strings.ToUpper(name), "hash", false)
		require.NoError(t, err)
		callers[name] = core.Caller{UserID: u.ID, Username: u.Username}
	}

	_, err = st.CreateConversation(ctx, callers["alice"].UserID, callers["bob"].UserID)
	require.NoError(t, err)

	return &fixture{
		svc:   New(st, opts, nil),
		store: st,
		alice: callers["alice"],
		bob:   callers["bob"],
		carol: callers["carol"],
	}
}

func requireKind(t *testing.T, err error, kind error, msg string) {
	t.Helper()

	require.Error(t, err)
	require.True(t, errors.Is(err, kind), "unexpected error kind: %v", err)
	if msg != "" {
		require.EqualError(t, err, msg)
	}
}

func TestResolveSharedConversation(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	id, err := f.svc.ResolveSharedConversation(ctx, f.alice, "bob")
	require.NoError(t, err)

	// Case and surrounding whitespace are ignored
	again, err := f.svc.ResolveSharedConversation(ctx, f.bob, "  ALICE ")
	require.NoError(t, err)
	require.Equal(t, id, again)

	_, err = f.svc.ResolveSharedConversation(ctx, f.alice, "carol")
	requireKind(t, err, core.ErrNotFound, "A conversation with that user doesn't exist")

	_, err = f.svc.ResolveSharedConversation(ctx, f.alice, "ghost")
	requireKind(t, err, core.ErrNotFound, "User 'ghost' doesn't exist")

	_, err = f.svc.ResolveSharedConversation(ctx, f.alice, "alice")
	requireKind(t, err, core.ErrConflict, "Can't message yourself")
}

func TestCreateMessageValidation(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		body     string
		wantMsg  string
	}{
		{name: "missing username", username: "", body: "hi", wantMsg: "Username is missing"},
		{name: "bad username", username: "bo b", body: "hi", wantMsg: "Username can only contain alphanumerical characters and _"},
		{name: "long username", username: strings.Repeat("a", 25), body: "hi", wantMsg: "Username must be between 1 and 24 characters long"},
		{name: "blank body", username: "bob", body: "   ", wantMsg: "Message body is missing"},
		{name: "bad body", username: "bob", body: "<script>", wantMsg: "Message body can only contain alphanumerical characters, space and _ - @ . , ! ? : ;"},
		{name: "long body", username: "bob", body: strings.Repeat("x", 121), wantMsg: "Message body must be between 1 and 120 characters long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateMessage(ctx, f.alice, tt.username, tt.body)
			requireKind(t, err, core.ErrValidation, tt.wantMsg)
		})
	}
}

func TestCreateMessagePersists(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	msg, err := f.svc.CreateMessage(ctx, f.alice, "bob", "  hello, bob!  ")
	require.NoError(t, err)
	require.NotZero(t, msg.ID)
	require.Equal(t, "hello, bob!", msg.Body)
	require.Equal(t, f.alice.UserID, msg.AuthorID)
	require.False(t, msg.Seen)
	require.False(t, msg.CreatedAt.IsZero())

	convID, err := f.svc.ResolveSharedConversation(ctx, f.alice, "bob")
	require.NoError(t, err)
	require.Equal(t, convID, msg.ConversationID)

	_, err = f.svc.CreateMessage(ctx, f.alice, "carol", "hi")
	requireKind(t, err, core.ErrNotFound, "")

	require.NoError(t, f.svc.MarkMessageSeen(ctx, msg.ID))
	stored, err := f.store.ListMessages(ctx, convID, 1, nil)
	require.NoError(t, err)
	require.True(t, stored[0].Seen)
}

func TestFetchMessageHistoryPagesAndMarksSeen(t *testing.T) {
	f := newFixture(t, Options{MessagePageSize: 3})
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 5; i++ {
		author := f.alice
		target := "bob"
		if i%2 == 1 {
			author, target = f.bob, "alice"
		}
		msg, err := f.svc.CreateMessage(ctx, author, target, "msg")
		require.NoError(t, err)
		ids = append(ids, msg.ID)
	}

	page, err := f.svc.FetchMessageHistory(ctx, f.alice, "bob", "0")
	require.NoError(t, err)
	require.Len(t, page, 3)
	require.Equal(t, []int64{ids[2], ids[3], ids[4]}, []int64{page[0].ID, page[1].ID, page[2].ID})

	// Only bob's message on the page becomes seen for alice
	require.False(t, page[0].Seen)
	require.True(t, page[1].Seen)
	require.False(t, page[2].Seen)

	older, err := f.svc.FetchMessageHistory(ctx, f.alice, "bob", strconv.FormatInt(ids[2], 10))
	require.NoError(t, err)
	require.Len(t, older, 2)
	require.Equal(t, ids[0], older[0].ID)
	require.True(t, older[1].Seen)

	// Bob's fetch marks alice's messages on his page
	first, err := f.svc.FetchMessageHistory(ctx, f.bob, "alice", "0")
	require.NoError(t, err)
	require.True(t, first[0].Seen)
}

func TestFetchMessageHistoryValidation(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.svc.FetchMessageHistory(ctx, f.alice, "bob", "abc")
	requireKind(t, err, core.ErrValidation, "fetch_content_cursor can only contain numerical characters")

	_, err = f.svc.FetchMessageHistory(ctx, f.alice, "bob", "")
	requireKind(t, err, core.ErrValidation, "fetch_content_cursor is missing")

	_, err = f.svc.FetchMessageHistory(ctx, f.alice, "bob", "12345678901")
	requireKind(t, err, core.ErrValidation, "fetch_content_cursor must be between 1 and 10 characters long")

	_, err = f.svc.FetchMessageHistory(ctx, f.alice, "carol", "0")
	requireKind(t, err, core.ErrNotFound, "")
}

func TestConversationsAndProfiles(t *testing.T) {
	f := newFixture(t, Options{ConversationPageSize: 1})
	ctx := context.Background()

	created, err := f.svc.CreateConversation(ctx, f.alice, "Carol")
	require.NoError(t, err)
	require.Equal(t, "carol", created.RecipientUsername)
	require.Equal(t, "CAROL", created.RecipientDisplayName)

	_, err = f.svc.CreateConversation(ctx, f.alice, "carol")
	requireKind(t, err, core.ErrConflict, "A conversation with that user already exists")

	_, err = f.svc.CreateConversation(ctx, f.alice, "alice")
	requireKind(t, err, core.ErrConflict, "Can't create a conversation with yourself")

	_, err = f.svc.CreateConversation(ctx, f.alice, "ghost")
	requireKind(t, err, core.ErrNotFound, "User 'ghost' doesn't exist")

	_, err = f.svc.CreateMessage(ctx, f.carol, "alice", "hey")
	require.NoError(t, err)

	page, err := f.svc.ListConversations(ctx, f.alice, "")
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, created.ID, page[0].ID)
	require.True(t, page[0].ContainsUnseen)

	next, err := f.svc.ListConversations(ctx, f.alice, strconv.FormatInt(created.ID, 10))
	require.NoError(t, err)
	require.Len(t, next, 1)
	require.Equal(t, "bob", next[0].RecipientUsername)
	require.False(t, next[0].ContainsUnseen)

	profile, err := f.svc.GetProfile(ctx, "BOB")
	require.NoError(t, err)
	require.Equal(t, f.bob.UserID, profile.ID)
	require.Equal(t, "BOB", profile.DisplayName)

	_, err = f.svc.GetProfile(ctx, "ghost")
	requireKind(t, err, core.ErrNotFound, "")
}

func TestOwnProfileAndDisplayNameUpdate(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	own, err := f.svc.GetOwnProfile(ctx, f.alice)
	require.NoError(t, err)
	require.Equal(t, "alice", own.Username)
	require.Equal(t, "ALICE", own.DisplayName)

	updated, err := f.svc.UpdateDisplayName(ctx, f.alice, "  Alice @home  ")
	require.NoError(t, err)
	require.Equal(t, "Alice @home", updated.DisplayName)

	public, err := f.svc.GetProfile(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "Alice @home", public.DisplayName)

	_, err = f.svc.UpdateDisplayName(ctx, f.alice, "   ")
	requireKind(t, err, core.ErrValidation, "Display name is missing")
	_, err = f.svc.UpdateDisplayName(ctx, f.alice, "Alice!")
	requireKind(t, err, core.ErrValidation, "Display name can only contain alphanumerical characters, whitespace and _ - @")
	_, err = f.svc.UpdateDisplayName(ctx, f.alice, strings.Repeat("a", 25))
	requireKind(t, err, core.ErrValidation, "Display name must be between 1 and 24 characters long")

	_, err = f.svc.GetOwnProfile(ctx, core.Caller{UserID: 999, Username: "ghost"})
	requireKind(t, err, core.ErrNotFound, "User not found")
	_, err = f.svc.UpdateDisplayName(ctx, core.Caller{UserID: 999, Username: "ghost"}, "Ghost")
	requireKind(t, err, core.ErrNotFound, "User not found")
}
