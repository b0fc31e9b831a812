package core

import (
	"slices"
	"sync"
)

// Membership is one live connection participating in a conversation room.
type Membership struct {
	UserID int64
	Handle string
}

// Registry maps conversation ids to the connections currently viewing them.
// Rooms exist only while they have at least one membership.
type Registry struct {
	mu    sync.Mutex
	rooms map[int64][]Membership
	// handles indexes each connection handle to the conversations it was
	// added to, in insertion order.
	handles map[string][]int64
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:   make(map[int64][]Membership),
		handles: make(map[string][]int64),
	}
}

// Add appends a membership to the room, creating the room if needed.
func (r *Registry) Add(conversationID, userID int64, handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rooms[conversationID] = append(r.rooms[conversationID], Membership{UserID: userID, Handle: handle})
	r.handles[handle] = append(r.handles[handle], conversationID)
}

// Members returns a copy of the room's memberships, empty if the room does not
// exist.
func (r *Registry) Members(conversationID int64) []Membership {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.rooms[conversationID])
}

// Remove deletes the earliest membership held by handle and drops its room if
// that leaves it empty. It reports which conversation the handle was removed
// from; unknown handles are a no-op.
func (r *Registry) Remove(handle string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	convs, ok := r.handles[handle]
	if !ok {
		return 0, false
	}
	conversationID := convs[0]
	if len(convs) == 1 {
		delete(r.handles, handle)
	} else {
		r.handles[handle] = convs[1:]
	}

	members := r.rooms[conversationID]
	idx := slices.IndexFunc(members, func(m Membership) bool { return m.Handle == handle })
	if idx < 0 {
		return 0, false
	}
	members = slices.Delete(members, idx, idx+1)
	if len(members) == 0 {
		delete(r.rooms, conversationID)
	} else {
		r.rooms[conversationID] = members
	}
	return conversationID, true
}

// Conversations lists the ids of all non-empty rooms in ascending order.
func (r *Registry) Conversations() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int64, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
