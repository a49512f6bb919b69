package model

import (
	"encoding/json"
)

// UpdateType enumerates the room-update command kinds.
type UpdateType string

const (
	UpdateMessageSent         UpdateType = "message-sent"
	UpdateParticipantJoined   UpdateType = "participant-joined"
	UpdateParticipantLeft     UpdateType = "participant-left"
	UpdateParticipantResponse UpdateType = "participant-response"
	UpdateRoomStateChanged    UpdateType = "room-state-changed"
)

// RoomUpdate is the wire-level unit of location-transparent dispatch.
// One command is built per notification target; commands are never persisted.
type RoomUpdate struct {
	RoomID          string          `json:"roomId"`
	UpdateType      UpdateType      `json:"updateType"`
	Data            json.RawMessage `json:"data"`
	TargetSessionID string          `json:"targetSessionId,omitempty"`
	OriginNodeID    string          `json:"originNodeId"`
}

// NewRoomUpdate builds a command for one target session. The payload is
// marshaled once here so concurrent deliveries share an immutable byte slice.
func NewRoomUpdate(roomID string, updateType UpdateType, data any, targetSessionID, originNodeID string) (*RoomUpdate, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &RoomUpdate{
		RoomID:          roomID,
		UpdateType:      updateType,
		Data:            raw,
		TargetSessionID: targetSessionID,
		OriginNodeID:    originNodeID,
	}, nil
}
