package model

import (
	"time"
)

// MessageCategory classifies a message.
type MessageCategory string

const (
	CategoryChat         MessageCategory = "chat"
	CategorySystem       MessageCategory = "system"
	CategoryResponse     MessageCategory = "response"
	CategoryNotification MessageCategory = "notification"
)

// Message is an immutable room message.
type Message struct {
	MessageID  string            `json:"message_id"`
	RoomID     string            `json:"room_id"`
	SenderID   string            `json:"sender_id"`
	SenderName string            `json:"sender_name"`
	Content    string            `json:"content"`
	Timestamp  time.Time         `json:"timestamp"`
	Mentions   []string          `json:"mentions,omitempty"`
	Category   MessageCategory   `json:"category"`
	ReplyToID  string            `json:"reply_to_id,omitempty"`
	Context    map[string]string `json:"context,omitempty"`
}

// Mentioned reports whether participantID appears in the mention list.
func (m *Message) Mentioned(participantID string) bool {
	for _, id := range m.Mentions {
		if id == participantID {
			return true
		}
	}
	return false
}
