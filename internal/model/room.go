package model

import (
	"time"
)

// ModerationRules configure per-room moderation behavior.
type ModerationRules struct {
	AutoModerationEnabled bool     `json:"auto_moderation_enabled"`
	AllowAutoResponders   bool     `json:"allow_auto_responders"`
	RequireApproval       bool     `json:"require_approval"`
	BannedWords           []string `json:"banned_words,omitempty"`
	RateLimitPerMinute    int      `json:"rate_limit_per_minute,omitempty"`
}

// ParticipantLimits bound room membership.
type ParticipantLimits struct {
	MaxParticipants   int `json:"max_participants,omitempty"`
	MaxAutoResponders int `json:"max_auto_responders,omitempty"`
}

// Room is the room record as held by the storage adapter. The core keeps
// only subscription/location indices plus a short recent-message window for
// activity heuristics; this struct is the authoritative shape it reads back.
type Room struct {
	RoomID           string            `json:"room_id"`
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	ParticipantCount int               `json:"participant_count"`
	MessageCount     int               `json:"message_count"`
	IsPrivate        bool              `json:"is_private"`
	Category         string            `json:"category,omitempty"`
	Moderation       ModerationRules   `json:"moderation"`
	Limits           ParticipantLimits `json:"limits"`
	MessageRetention time.Duration     `json:"message_retention,omitempty"`
}

// RoomPatch is a partial room update applied by the storage adapter. Nil
// fields are left untouched.
type RoomPatch struct {
	Name             *string          `json:"name,omitempty"`
	Description      *string          `json:"description,omitempty"`
	ParticipantCount *int             `json:"participant_count,omitempty"`
	MessageCount     *int             `json:"message_count,omitempty"`
	Moderation       *ModerationRules `json:"moderation,omitempty"`
}

// RoomContext is the transient per-room state the decision engine consults:
// the room record plus the last few distributed messages, newest last.
type RoomContext struct {
	Room   *Room
	Recent []Message
}
