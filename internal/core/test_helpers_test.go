package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	default:
	}
}

// recordingPusher collects pushes per handle.
type recordingPusher struct {
	mu     sync.Mutex
	events map[string][]*Event
	dead   map[string]bool
}

func newRecordingPusher(dead ...string) *recordingPusher {
	p := &recordingPusher{events: make(map[string][]*Event), dead: make(map[string]bool)}
	for _, h := range dead {
		p.dead[h] = true
	}
	return p
}

func (p *recordingPusher) Push(handle string, event *Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dead[handle] {
		return false
	}
	p.events[handle] = append(p.events[handle], event)
	return true
}

func (p *recordingPusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, evs := range p.events {
		n += len(evs)
	}
	return n
}

// fakeChat is a scriptable ChatService.
type fakeChat struct {
	mu sync.Mutex

	conversations map[string]int64 // target username -> conversation id
	history       []Message
	nextID        int64
	failWith      error
	panicOnSend   bool
	seenErr       error

	seen []int64
}

func newFakeChat() *fakeChat {
	return &fakeChat{conversations: make(map[string]int64), nextID: 100}
}

func (f *fakeChat) ResolveSharedConversation(_ context.Context, _ Caller, target string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return 0, f.failWith
	}
	id, ok := f.conversations[target]
	if !ok {
		return 0, NewError(ErrNotFound, "Conversation ID doesn't exist")
	}
	return id, nil
}

func (f *fakeChat) CreateMessage(_ context.Context, caller Caller, target, body string) (Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnSend {
		panic("boom")
	}
	if f.failWith != nil {
		return Message{}, f.failWith
	}
	id, ok := f.conversations[target]
	if !ok {
		return Message{}, NewError(ErrNotFound, "A conversation with that user doesn't exist")
	}
	f.nextID++
	return Message{
		ID:             f.nextID,
		ConversationID: id,
		AuthorID:       caller.UserID,
		Body:           body,
		CreatedAt:      time.Now(),
	}, nil
}

func (f *fakeChat) FetchMessageHistory(_ context.Context, _ Caller, _, _ string) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.history, nil
}

func (f *fakeChat) MarkMessageSeen(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, id)
	return f.seenErr
}

func (f *fakeChat) seenIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.seen...)
}
