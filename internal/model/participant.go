// Package model defines data structures for the room coordination core.
package model

import (
	"time"
)

// Capabilities are the independent permission flags of a participant.
type Capabilities struct {
	CanSendMessages    bool `json:"can_send_messages"`
	CanReceiveMessages bool `json:"can_receive_messages"`
	CanCreateRooms     bool `json:"can_create_rooms"`
	CanInviteOthers    bool `json:"can_invite_others"`
	CanModerate        bool `json:"can_moderate"`
	AutoResponds       bool `json:"auto_responds"`
	ProvidesContext    bool `json:"provides_context"`
}

// Participant is the identity and capability record for one room membership.
// The directory is keyed by room, so the same logical user joining two rooms
// produces two Participant records.
type Participant struct {
	ParticipantID string       `json:"participant_id"`
	SessionID     string       `json:"session_id"`
	DisplayName   string       `json:"display_name"`
	JoinedAt      time.Time    `json:"joined_at"`
	LastSeen      time.Time    `json:"last_seen"`
	IsOnline      bool         `json:"is_online"`
	Capabilities  Capabilities `json:"capabilities"`
	Adapter       *Adapter     `json:"adapter,omitempty"`
}

// CanAutoRespond reports whether this participant is even eligible for
// response-decision evaluation. A participant without the capability or
// without a response strategy can never produce a positive decision.
func (p *Participant) CanAutoRespond() bool {
	return p.Capabilities.AutoResponds &&
		p.Adapter != nil &&
		p.Adapter.ResponseStrategy != nil &&
		len(p.Adapter.ResponseStrategy.Triggers) > 0
}

// DistributedParticipant is a Participant pinned to the node it is reachable
// on. Owned exclusively by the directory's room entry; mutated only by
// add/remove, never patched in place.
type DistributedParticipant struct {
	Participant
	NodeID       string `json:"node_id"`
	NodeEndpoint string `json:"node_endpoint,omitempty"`
}
