package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hivechat/room-coordinator/internal/middleware"
	"github.com/hivechat/room-coordinator/internal/ws"
	"github.com/hivechat/room-coordinator/pkg/logger"
)

// StreamHandler upgrades browser-ui sessions to websockets so they receive
// room updates pushed by the distributor.
type StreamHandler struct {
	hub    *ws.Hub
	logger *logger.Logger

	upgrader websocket.Upgrader
}

// NewStreamHandler creates a stream handler.
func NewStreamHandler(hub *ws.Hub, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		hub:    hub,
		logger: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Stream handles GET /api/v1/stream
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())
	if sessionID == "" {
		writeError(w, http.StatusUnauthorized, "missing session")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	session := ws.NewSession(h.hub, conn, sessionID, h.logger)
	h.hub.Register(session)

	go session.WritePump()
	go session.ReadPump()
}
