package ws

import (
	"sync"

	"go.uber.org/zap"

	"github.com/hivechat/room-coordinator/internal/model"
	"github.com/hivechat/room-coordinator/pkg/logger"
	"github.com/hivechat/room-coordinator/pkg/metrics"
)

// Hub tracks locally connected sessions and routes room-update commands to
// them by session id.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *logger.Logger
}

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		logger:   log,
	}
}

// Register adds a session. An existing session with the same id is replaced;
// the old connection is closed by its own pumps when the peer drops.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	_, replacing := h.sessions[s.ID]
	h.sessions[s.ID] = s
	h.mu.Unlock()

	if !replacing {
		metrics.WSSessionsActive.Inc()
	}
	h.logger.Info("session connected", zap.String("session_id", s.ID))
}

// Unregister removes a session if it is still the registered one. The send
// channel is never closed; Deliver may still hold a reference, and the write
// pump exits when the connection does.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	current, ok := h.sessions[s.ID]
	removed := ok && current == s
	if removed {
		delete(h.sessions, s.ID)
	}
	h.mu.Unlock()

	if removed {
		metrics.WSSessionsActive.Dec()
		h.logger.Info("session disconnected", zap.String("session_id", s.ID))
	}
}

// Deliver hands a room-update command to the target session, if connected.
// A missing session is not an error: HTTP-polling and webhook participants
// have no websocket, and their updates are acknowledged elsewhere.
func (h *Hub) Deliver(cmd *model.RoomUpdate) {
	h.mu.RLock()
	s, ok := h.sessions[cmd.TargetSessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if err := s.SendJSON(cmd); err != nil {
		h.logger.Warn("failed to deliver update",
			zap.String("session_id", cmd.TargetSessionID),
			zap.Error(err))
	}
}

// ActiveSessions returns the set of connected session ids, consumed by the
// disconnected-session sweep.
func (h *Hub) ActiveSessions() map[string]struct{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]struct{}, len(h.sessions))
	for id := range h.sessions {
		out[id] = struct{}{}
	}
	return out
}
