package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hivechat/room-coordinator/internal/coordinator"
	"github.com/hivechat/room-coordinator/internal/middleware"
	"github.com/hivechat/room-coordinator/internal/model"
	"github.com/hivechat/room-coordinator/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	coordinator *coordinator.Coordinator
	logger      *logger.Logger
}

// NewMessageHandler creates a message handler.
func NewMessageHandler(c *coordinator.Coordinator, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		coordinator: c,
		logger:      log,
	}
}

// PostMessageRequest is the request body for posting a message.
type PostMessageRequest struct {
	SenderID   string            `json:"sender_id"`
	SenderName string            `json:"sender_name"`
	Content    string            `json:"content"`
	Mentions   []string          `json:"mentions,omitempty"`
	ReplyToID  string            `json:"reply_to_id,omitempty"`
	Context    map[string]string `json:"context,omitempty"`
}

// Post handles POST /api/v1/rooms/{id}/messages
func (h *MessageHandler) Post(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomID := chi.URLParam(r, "id")
	if err := middleware.ValidateID(roomID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateID(req.SenderID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid sender_id: "+err.Error())
		return
	}

	msg := &model.Message{
		RoomID:     roomID,
		SenderID:   req.SenderID,
		SenderName: req.SenderName,
		Content:    req.Content,
		Mentions:   req.Mentions,
		Category:   model.CategoryChat,
		ReplyToID:  req.ReplyToID,
		Context:    req.Context,
	}

	if err := h.coordinator.PostMessage(ctx, msg); err != nil {
		if err == coordinator.ErrMessageRejected {
			writeError(w, http.StatusUnprocessableEntity, "message rejected by moderation")
			return
		}
		h.logger.Error("failed to post message", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to post message")
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// List handles GET /api/v1/rooms/{id}/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomID := chi.URLParam(r, "id")
	if err := middleware.ValidateID(roomID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	var before time.Time
	if b := r.URL.Query().Get("before"); b != "" {
		if parsed, err := time.Parse(time.RFC3339, b); err == nil {
			before = parsed
		}
	}

	messages, err := h.coordinator.RoomHistory(ctx, roomID, limit, before)
	if err != nil {
		h.logger.Error("failed to list messages", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"room_id":  roomID,
		"messages": messages,
	})
}
