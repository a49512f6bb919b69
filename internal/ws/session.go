// Package ws is the websocket gateway for browser-ui sessions. It delivers
// room-update commands to locally connected sessions and reports the active
// session set to the cleanup sweep.
package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hivechat/room-coordinator/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 20
)

// Session is one connected websocket session.
type Session struct {
	ID     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *logger.Logger
}

// NewSession wraps an upgraded connection.
func NewSession(hub *Hub, conn *websocket.Conn, sessionID string, log *logger.Logger) *Session {
	return &Session{
		ID:     sessionID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		logger: log,
	}
}

// SendJSON queues a payload for delivery. A full buffer drops the payload
// rather than blocking the fan-out.
func (s *Session) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case s.send <- data:
		return nil
	default:
		s.logger.Warn("session send buffer full, dropping update",
			zap.String("session_id", s.ID))
		return nil
	}
}

// ReadPump drains inbound frames until the peer goes away, then unregisters.
// Inbound payloads are ignored here; commands arrive over HTTP.
func (s *Session) ReadPump() {
	defer func() {
		s.hub.Unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMsgSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// WritePump flushes queued payloads and keeps the connection alive with pings.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
