// Package coordinator orchestrates the two end-to-end room flows: membership
// changes and message posting with auto-response evaluation.
package coordinator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hivechat/room-coordinator/internal/adapter"
	"github.com/hivechat/room-coordinator/internal/directory"
	"github.com/hivechat/room-coordinator/internal/engine"
	"github.com/hivechat/room-coordinator/internal/model"
	"github.com/hivechat/room-coordinator/internal/registry"
	"github.com/hivechat/room-coordinator/internal/storage"
	"github.com/hivechat/room-coordinator/pkg/logger"
)

// ErrMessageRejected is returned when moderation blocks a message before
// persistence.
var ErrMessageRejected = fmt.Errorf("message rejected by moderation")

// Coordinator is the room coordination facade.
type Coordinator struct {
	directory   *directory.Directory
	dispatcher  *directory.Dispatcher
	registry    *registry.Registry
	distributor *registry.Distributor
	engine      *engine.Engine
	invoker     *adapter.Invoker
	store       storage.Adapter
	nodeID      string
	logger      *logger.Logger

	// Last few messages per room, for the active-discussion heuristic.
	recentMu sync.Mutex
	recent   map[string][]model.Message
}

// New creates a coordinator.
func New(
	dir *directory.Directory,
	disp *directory.Dispatcher,
	reg *registry.Registry,
	dist *registry.Distributor,
	eng *engine.Engine,
	inv *adapter.Invoker,
	store storage.Adapter,
	nodeID string,
	log *logger.Logger,
) *Coordinator {
	return &Coordinator{
		directory:   dir,
		dispatcher:  disp,
		registry:    reg,
		distributor: dist,
		engine:      eng,
		invoker:     inv,
		store:       store,
		nodeID:      nodeID,
		logger:      log,
		recent:      make(map[string][]model.Message),
	}
}

// JoinRoom registers a participant in a room: persists the record, tracks the
// participant's node, subscribes the session to room events and announces the
// join.
func (c *Coordinator) JoinRoom(ctx context.Context, roomID string, p model.Participant, nodeID string) error {
	if nodeID == "" {
		nodeID = c.nodeID
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now()
	}
	p.LastSeen = time.Now()
	p.IsOnline = true

	if err := c.store.StoreParticipant(ctx, &p); err != nil {
		return fmt.Errorf("store participant: %w", err)
	}

	c.directory.AddParticipant(roomID, p, nodeID)
	c.registry.Subscribe(p.SessionID, roomID)

	c.distributor.DistributeParticipantJoined(ctx, roomID, &p)
	c.dispatcher.NotifyAll(ctx, roomID, model.UpdateParticipantJoined, map[string]any{
		"participant": &p,
	})

	c.logger.Info("participant joined",
		zap.String("room_id", roomID),
		zap.String("participant_id", p.ParticipantID),
		zap.String("node_id", nodeID),
	)
	return nil
}

// LeaveRoom removes a participant from a room and announces the departure.
func (c *Coordinator) LeaveRoom(ctx context.Context, roomID, participantID, reason string) error {
	removed, ok := c.directory.RemoveParticipant(roomID, participantID)
	if !ok {
		return fmt.Errorf("participant %s not in room %s", participantID, roomID)
	}
	c.registry.Unsubscribe(removed.SessionID, roomID)

	c.distributor.DistributeParticipantLeft(ctx, roomID, participantID, reason)
	c.dispatcher.NotifyAll(ctx, roomID, model.UpdateParticipantLeft, map[string]any{
		"participant_id": participantID,
		"reason":         reason,
	})

	c.logger.Info("participant left",
		zap.String("room_id", roomID),
		zap.String("participant_id", participantID),
		zap.String("reason", reason),
	)
	return nil
}

// PostMessage runs the full message flow: moderation, persistence plus
// subscriber fan-out, participant notification, then auto-response
// evaluation. Each generated response re-enters this same flow.
func (c *Coordinator) PostMessage(ctx context.Context, msg *model.Message) error {
	if msg.MessageID == "" {
		msg.MessageID = uuid.Must(uuid.NewV7()).String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if msg.Category == "" {
		msg.Category = model.CategoryChat
	}

	room, err := c.store.Room(ctx, msg.RoomID)
	if err != nil && err != storage.ErrNotFound {
		return fmt.Errorf("load room: %w", err)
	}

	if room != nil && rejectedByModeration(room, msg) {
		c.logger.Info("message rejected",
			zap.String("room_id", msg.RoomID),
			zap.String("sender_id", msg.SenderID),
		)
		return ErrMessageRejected
	}

	// Store-then-notify: persistence is ordered before any fan-out.
	if err := c.distributor.DistributeMessage(ctx, msg.RoomID, msg); err != nil {
		return err
	}
	updateType := model.UpdateMessageSent
	if msg.Category == model.CategoryResponse {
		updateType = model.UpdateParticipantResponse
	}
	c.dispatcher.NotifyAll(ctx, msg.RoomID, updateType, map[string]any{
		"message": msg,
	})

	roomCtx := c.trackRecent(msg, room)
	c.evaluateResponders(ctx, msg, roomCtx)
	return nil
}

// trackRecent appends the message to the room's recent window and returns the
// room context used for decision evaluation.
func (c *Coordinator) trackRecent(msg *model.Message, room *model.Room) *model.RoomContext {
	c.recentMu.Lock()
	defer c.recentMu.Unlock()

	window := append(c.recent[msg.RoomID], *msg)
	if len(window) > engine.RecentWindow {
		window = window[len(window)-engine.RecentWindow:]
	}
	c.recent[msg.RoomID] = window

	recent := make([]model.Message, len(window))
	copy(recent, window)
	return &model.RoomContext{Room: room, Recent: recent}
}

// evaluateResponders runs the decision engine for every tracked participant
// and invokes the adapter for each positive decision. Responses are generated
// concurrently and each settles independently; a failed generation simply
// produces no reply.
func (c *Coordinator) evaluateResponders(ctx context.Context, msg *model.Message, roomCtx *model.RoomContext) {
	if roomCtx.Room != nil && !roomCtx.Room.Moderation.AllowAutoResponders {
		return
	}

	participants := c.directory.Participants(msg.RoomID)
	var wg sync.WaitGroup

	for i := range participants {
		p := participants[i].Participant
		decision := c.engine.Decide(&p, msg, roomCtx)
		if !decision.ShouldRespond {
			continue
		}

		wg.Add(1)
		go func(p model.Participant, decision model.ResponseDecision) {
			defer wg.Done()
			c.generateResponse(ctx, &p, msg, roomCtx, decision)
		}(p, decision)
	}

	wg.Wait()
}

func (c *Coordinator) generateResponse(ctx context.Context, p *model.Participant, msg *model.Message, roomCtx *model.RoomContext, decision model.ResponseDecision) {
	resp := c.invoker.Invoke(ctx, p.Adapter, &adapter.Request{
		Participant: p,
		Message:     msg,
		Room:        roomCtx.Room,
		Context:     roomCtx.Recent,
	})
	if !resp.Success {
		// The participant simply does not reply; nothing surfaces to the room.
		c.logger.Warn("response generation failed",
			zap.String("room_id", msg.RoomID),
			zap.String("participant_id", p.ParticipantID),
			zap.String("error", resp.Error),
		)
		return
	}

	reply := &model.Message{
		MessageID:  uuid.Must(uuid.NewV7()).String(),
		RoomID:     msg.RoomID,
		SenderID:   p.ParticipantID,
		SenderName: p.DisplayName,
		Content:    resp.Content,
		Timestamp:  time.Now(),
		Category:   model.CategoryResponse,
		ReplyToID:  msg.MessageID,
		Context: map[string]string{
			"trigger":    string(decision.TriggerType),
			"reason":     decision.Reason,
			"confidence": fmt.Sprintf("%.2f", decision.Confidence),
		},
	}

	c.logger.Info("auto-response generated",
		zap.String("room_id", msg.RoomID),
		zap.String("participant_id", p.ParticipantID),
		zap.String("reason", decision.Reason),
		zap.Int64("processing_ms", resp.ProcessingTimeMs),
	)

	// The reply re-enters the same posted-message flow; the self-message
	// precondition stops this participant from answering its own reply.
	if err := c.PostMessage(ctx, reply); err != nil {
		c.logger.Warn("failed to post auto-response",
			zap.String("room_id", msg.RoomID),
			zap.String("participant_id", p.ParticipantID),
			zap.Error(err),
		)
	}
}

func rejectedByModeration(room *model.Room, msg *model.Message) bool {
	if !room.Moderation.AutoModerationEnabled {
		return false
	}
	content := strings.ToLower(msg.Content)
	for _, word := range room.Moderation.BannedWords {
		if word != "" && strings.Contains(content, strings.ToLower(word)) {
			return true
		}
	}
	return false
}

// CreateRoom persists a new room record.
func (c *Coordinator) CreateRoom(ctx context.Context, room *model.Room) error {
	if room.RoomID == "" {
		room.RoomID = uuid.Must(uuid.NewV7()).String()
	}
	now := time.Now()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now
	return c.store.CreateRoom(ctx, room)
}

// RoomHistory returns persisted messages for a room.
func (c *Coordinator) RoomHistory(ctx context.Context, roomID string, limit int, before time.Time) ([]model.Message, error) {
	return c.distributor.RoomHistory(ctx, roomID, limit, before)
}

// RoomParticipants returns participant records for a room's subscribers.
func (c *Coordinator) RoomParticipants(ctx context.Context, roomID string) ([]model.Participant, error) {
	return c.distributor.RoomParticipants(ctx, roomID)
}

// NodeStats describes how a room's participants are spread across nodes.
type NodeStats struct {
	RoomID       string         `json:"room_id"`
	Distributed  bool           `json:"distributed"`
	NodeCounts   map[string]int `json:"node_counts"`
	TotalTracked int            `json:"total_tracked"`
	OriginNodeID string         `json:"origin_node_id"`
}

// RoomNodeStats reports the per-node participant distribution of a room.
func (c *Coordinator) RoomNodeStats(roomID string) NodeStats {
	groups := c.directory.GroupByNode(roomID)
	stats := NodeStats{
		RoomID:       roomID,
		Distributed:  len(groups) > 1,
		NodeCounts:   make(map[string]int, len(groups)),
		OriginNodeID: c.nodeID,
	}
	for nodeID, members := range groups {
		stats.NodeCounts[nodeID] = len(members)
		stats.TotalTracked += len(members)
	}
	return stats
}

// Sweep removes directory entries and subscriptions for dead sessions.
func (c *Coordinator) Sweep(activeSessions map[string]struct{}) (int, int) {
	removedDir := c.directory.CleanupDisconnected(activeSessions)
	removedSubs := c.distributor.CleanupDisconnectedSessions(activeSessions)
	if removedDir > 0 || removedSubs > 0 {
		c.logger.Info("cleanup sweep",
			zap.Int("directory_removed", removedDir),
			zap.Int("subscriptions_removed", removedSubs),
		)
	}
	return removedDir, removedSubs
}
