// Package registry maintains room-scoped event subscriptions and distributes
// room events to subscribed sessions only.
package registry

import (
	"sync"

	"github.com/hivechat/room-coordinator/pkg/metrics"
)

// Registry is the bidirectional session<->room subscription index. The two
// maps are mutated together under one lock so the symmetry invariant
// (session subscribed to room iff room listed for session) always holds.
// Empty sets are pruned, never left dangling.
type Registry struct {
	mu        sync.RWMutex
	byRoom    map[string]map[string]struct{}
	bySession map[string]map[string]struct{}
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byRoom:    make(map[string]map[string]struct{}),
		bySession: make(map[string]map[string]struct{}),
	}
}

// Subscribe adds the (session, room) pair to both indices.
func (r *Registry) Subscribe(sessionID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byRoom[roomID]; !ok {
		r.byRoom[roomID] = make(map[string]struct{})
	}
	if _, ok := r.byRoom[roomID][sessionID]; ok {
		return
	}
	r.byRoom[roomID][sessionID] = struct{}{}

	if _, ok := r.bySession[sessionID]; !ok {
		r.bySession[sessionID] = make(map[string]struct{})
	}
	r.bySession[sessionID][roomID] = struct{}{}

	metrics.RoomSubscriptions.Inc()
}

// Unsubscribe removes the (session, room) pair from both indices and prunes
// any set it empties.
func (r *Registry) Unsubscribe(sessionID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsubscribeLocked(sessionID, roomID)
}

func (r *Registry) unsubscribeLocked(sessionID, roomID string) {
	sessions, ok := r.byRoom[roomID]
	if !ok {
		return
	}
	if _, ok := sessions[sessionID]; !ok {
		return
	}
	delete(sessions, sessionID)
	if len(sessions) == 0 {
		delete(r.byRoom, roomID)
	}

	if rooms, ok := r.bySession[sessionID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(r.bySession, sessionID)
		}
	}

	metrics.RoomSubscriptions.Dec()
}

// Subscribers returns a snapshot of the sessions subscribed to a room.
func (r *Registry) Subscribers(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byRoom[roomID]))
	for sessionID := range r.byRoom[roomID] {
		out = append(out, sessionID)
	}
	return out
}

// Rooms returns a snapshot of the rooms a session is subscribed to.
func (r *Registry) Rooms(sessionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.bySession[sessionID]))
	for roomID := range r.bySession[sessionID] {
		out = append(out, roomID)
	}
	return out
}

// IsSubscribed reports whether the session is subscribed to the room.
func (r *Registry) IsSubscribed(sessionID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byRoom[roomID][sessionID]
	return ok
}

// HasRoom reports whether the room has any subscribers.
func (r *Registry) HasRoom(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byRoom[roomID]
	return ok
}

// HasSession reports whether the session holds any subscriptions.
func (r *Registry) HasSession(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.bySession[sessionID]
	return ok
}

// CleanupDisconnectedSessions unsubscribes every pair whose session is absent
// from activeSessions. Returns the number of removed pairs.
func (r *Registry) CleanupDisconnectedSessions(activeSessions map[string]struct{}) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for sessionID, rooms := range r.bySession {
		if _, ok := activeSessions[sessionID]; ok {
			continue
		}
		for roomID := range rooms {
			r.unsubscribeLocked(sessionID, roomID)
			removed++
		}
	}
	if removed > 0 {
		metrics.SweepRemovals.WithLabelValues("registry").Add(float64(removed))
	}
	return removed
}
