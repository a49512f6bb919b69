// Package directory tracks which node each room participant is reachable on
// and dispatches room-update commands to them, local or remote.
package directory

import (
	"sync"

	"github.com/hivechat/room-coordinator/internal/model"
	"github.com/hivechat/room-coordinator/pkg/metrics"
)

// Directory is the distributed participant directory: per room, the list of
// participants and the node each one lives on. All methods are safe for
// concurrent use; add/remove/cleanup and notification reads interleave.
type Directory struct {
	mu    sync.RWMutex
	rooms map[string][]model.DistributedParticipant
}

// New creates an empty directory.
func New() *Directory {
	return &Directory{
		rooms: make(map[string][]model.DistributedParticipant),
	}
}

// AddParticipant records a participant as reachable on nodeID. A participant
// id already present in the room is replaced rather than duplicated, so a
// rejoin updates the node/session binding instead of causing double delivery.
func (d *Directory) AddParticipant(roomID string, p model.Participant, nodeID string) {
	entry := model.DistributedParticipant{
		Participant: p,
		NodeID:      nodeID,
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	list := d.rooms[roomID]
	for i := range list {
		if list[i].ParticipantID == p.ParticipantID {
			list[i] = entry
			return
		}
	}
	d.rooms[roomID] = append(list, entry)
	metrics.TrackedParticipants.Inc()
}

// RemoveParticipant removes the participant from the room. It returns the
// removed entry and whether anything was removed.
func (d *Directory) RemoveParticipant(roomID, participantID string) (model.DistributedParticipant, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := d.rooms[roomID]
	for i := range list {
		if list[i].ParticipantID == participantID {
			removed := list[i]
			d.rooms[roomID] = append(list[:i:i], list[i+1:]...)
			if len(d.rooms[roomID]) == 0 {
				delete(d.rooms, roomID)
			}
			metrics.TrackedParticipants.Dec()
			return removed, true
		}
	}
	return model.DistributedParticipant{}, false
}

// Participants returns a snapshot of the room's participants. An unknown
// room yields an empty slice, never an error.
func (d *Directory) Participants(roomID string) []model.DistributedParticipant {
	d.mu.RLock()
	defer d.mu.RUnlock()

	list := d.rooms[roomID]
	out := make([]model.DistributedParticipant, len(list))
	copy(out, list)
	return out
}

// GroupByNode partitions the room's participants by node id.
func (d *Directory) GroupByNode(roomID string) map[string][]model.DistributedParticipant {
	d.mu.RLock()
	defer d.mu.RUnlock()

	groups := make(map[string][]model.DistributedParticipant)
	for _, p := range d.rooms[roomID] {
		groups[p.NodeID] = append(groups[p.NodeID], p)
	}
	return groups
}

// IsDistributed reports whether the room's participants span more than one node.
func (d *Directory) IsDistributed(roomID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	seen := ""
	for _, p := range d.rooms[roomID] {
		if seen == "" {
			seen = p.NodeID
		} else if p.NodeID != seen {
			return true
		}
	}
	return false
}

// Rooms returns the ids of all rooms with at least one tracked participant.
func (d *Directory) Rooms() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]string, 0, len(d.rooms))
	for roomID := range d.rooms {
		out = append(out, roomID)
	}
	return out
}

// CleanupDisconnected removes, from every room, participants whose session is
// absent from activeSessions. Returns the number of removed entries. Safe to
// run concurrently with adds and notification reads.
func (d *Directory) CleanupDisconnected(activeSessions map[string]struct{}) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for roomID, list := range d.rooms {
		kept := list[:0]
		for _, p := range list {
			if _, ok := activeSessions[p.SessionID]; ok {
				kept = append(kept, p)
			} else {
				removed++
			}
		}
		if len(kept) == 0 {
			delete(d.rooms, roomID)
		} else {
			d.rooms[roomID] = kept
		}
	}
	if removed > 0 {
		metrics.TrackedParticipants.Sub(float64(removed))
		metrics.SweepRemovals.WithLabelValues("directory").Add(float64(removed))
	}
	return removed
}
