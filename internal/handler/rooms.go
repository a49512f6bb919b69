// Package handler provides HTTP handlers for the coordination API.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hivechat/room-coordinator/internal/adapter"
	"github.com/hivechat/room-coordinator/internal/coordinator"
	"github.com/hivechat/room-coordinator/internal/middleware"
	"github.com/hivechat/room-coordinator/internal/model"
	"github.com/hivechat/room-coordinator/pkg/logger"
)

// RoomHandler handles room membership endpoints.
type RoomHandler struct {
	coordinator *coordinator.Coordinator
	logger      *logger.Logger
}

// NewRoomHandler creates a room handler.
func NewRoomHandler(c *coordinator.Coordinator, log *logger.Logger) *RoomHandler {
	return &RoomHandler{
		coordinator: c,
		logger:      log,
	}
}

// CreateRoomRequest is the request body for room creation.
type CreateRoomRequest struct {
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	IsPrivate   bool                  `json:"is_private,omitempty"`
	Category    string                `json:"category,omitempty"`
	Moderation  model.ModerationRules `json:"moderation"`
}

// Create handles POST /api/v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateRoomName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	room := &model.Room{
		Name:        req.Name,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
		Category:    req.Category,
		Moderation:  req.Moderation,
	}
	if err := h.coordinator.CreateRoom(ctx, room); err != nil {
		h.logger.Error("failed to create room", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create room")
		return
	}

	writeJSON(w, http.StatusCreated, room)
}

// JoinRoomRequest is the request body for joining a room.
type JoinRoomRequest struct {
	Participant struct {
		ParticipantID string                  `json:"participant_id"`
		DisplayName   string                  `json:"display_name"`
		Capabilities  model.Capabilities      `json:"capabilities"`
		AdapterType   model.AdapterType       `json:"adapter_type,omitempty"`
		AdapterConfig map[string]any          `json:"adapter_config,omitempty"`
		Strategy      *model.ResponseStrategy `json:"response_strategy,omitempty"`
	} `json:"participant"`
	NodeID string `json:"node_id,omitempty"`
}

// Join handles POST /api/v1/rooms/{id}/join
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomID := chi.URLParam(r, "id")
	if err := middleware.ValidateID(roomID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateID(req.Participant.ParticipantID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid participant_id: "+err.Error())
		return
	}

	p := model.Participant{
		ParticipantID: req.Participant.ParticipantID,
		SessionID:     middleware.GetSessionID(ctx),
		DisplayName:   req.Participant.DisplayName,
		Capabilities:  req.Participant.Capabilities,
	}

	if req.Participant.AdapterType != "" {
		cfg, result := adapter.ExtractConfig(req.Participant.AdapterType, req.Participant.AdapterConfig)
		if !result.Valid {
			writeJSON(w, http.StatusBadRequest, result)
			return
		}
		p.Adapter = &model.Adapter{
			Type:             req.Participant.AdapterType,
			Config:           cfg,
			ResponseStrategy: req.Participant.Strategy,
		}
	}

	if err := h.coordinator.JoinRoom(ctx, roomID, p, req.NodeID); err != nil {
		h.logger.Error("failed to join room", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to join room")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"room_id":        roomID,
		"participant_id": p.ParticipantID,
		"status":         "joined",
	})
}

// LeaveRoomRequest is the request body for leaving a room.
type LeaveRoomRequest struct {
	ParticipantID string `json:"participant_id"`
	Reason        string `json:"reason,omitempty"`
}

// Leave handles POST /api/v1/rooms/{id}/leave
func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomID := chi.URLParam(r, "id")
	if err := middleware.ValidateID(roomID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req LeaveRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.coordinator.LeaveRoom(ctx, roomID, req.ParticipantID, req.Reason); err != nil {
		writeError(w, http.StatusNotFound, "participant not in room")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"room_id":        roomID,
		"participant_id": req.ParticipantID,
		"status":         "left",
	})
}

// Participants handles GET /api/v1/rooms/{id}/participants
func (h *RoomHandler) Participants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomID := chi.URLParam(r, "id")
	if err := middleware.ValidateID(roomID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	participants, err := h.coordinator.RoomParticipants(ctx, roomID)
	if err != nil {
		h.logger.Error("failed to list participants", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list participants")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"room_id":      roomID,
		"participants": participants,
	})
}

// Nodes handles GET /api/v1/rooms/{id}/nodes
func (h *RoomHandler) Nodes(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	if err := middleware.ValidateID(roomID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.coordinator.RoomNodeStats(roomID))
}
