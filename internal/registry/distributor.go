package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hivechat/room-coordinator/internal/directory"
	"github.com/hivechat/room-coordinator/internal/model"
	"github.com/hivechat/room-coordinator/internal/storage"
	"github.com/hivechat/room-coordinator/internal/transport"
	"github.com/hivechat/room-coordinator/pkg/logger"
	"github.com/hivechat/room-coordinator/pkg/metrics"
)

// Distributor fans room events out to the sessions subscribed to the room.
// Message distribution is store-then-notify: the message is persisted before
// any subscriber sees it. Fan-out failures are isolated per target.
type Distributor struct {
	registry  *Registry
	store     storage.Adapter
	transport transport.Transport
	nodeID    string
	logger    *logger.Logger
}

// NewDistributor creates a distributor.
func NewDistributor(reg *Registry, store storage.Adapter, t transport.Transport, nodeID string, log *logger.Logger) *Distributor {
	return &Distributor{
		registry:  reg,
		store:     store,
		transport: t,
		nodeID:    nodeID,
		logger:    log,
	}
}

// DistributeMessage persists the message, then sends it to every subscriber
// of the room. Zero subscribers is a no-op beyond persistence, not an error.
// The persistence error is the only one returned; delivery failures are
// logged and swallowed per target.
func (d *Distributor) DistributeMessage(ctx context.Context, roomID string, msg *model.Message) error {
	if err := d.store.StoreMessage(ctx, roomID, msg); err != nil {
		return fmt.Errorf("store message: %w", err)
	}
	metrics.MessagesTotal.WithLabelValues(string(msg.Category)).Inc()

	d.fanOut(ctx, roomID, messageUpdateType(msg), map[string]any{
		"message": msg,
	})
	return nil
}

// messageUpdateType distinguishes auto-responses from ordinary messages on
// the wire so clients can render them differently.
func messageUpdateType(msg *model.Message) model.UpdateType {
	if msg.Category == model.CategoryResponse {
		return model.UpdateParticipantResponse
	}
	return model.UpdateMessageSent
}

// DistributeParticipantJoined notifies subscribers that a participant joined.
func (d *Distributor) DistributeParticipantJoined(ctx context.Context, roomID string, p *model.Participant) {
	d.fanOut(ctx, roomID, model.UpdateParticipantJoined, map[string]any{
		"participant": p,
	})
}

// DistributeParticipantLeft notifies subscribers that a participant left.
func (d *Distributor) DistributeParticipantLeft(ctx context.Context, roomID, participantID, reason string) {
	d.fanOut(ctx, roomID, model.UpdateParticipantLeft, map[string]any{
		"participant_id": participantID,
		"reason":         reason,
	})
}

// DistributeParticipantUpdate notifies subscribers of a membership change.
func (d *Distributor) DistributeParticipantUpdate(ctx context.Context, roomID string, participants []model.Participant) {
	d.fanOut(ctx, roomID, model.UpdateRoomStateChanged, map[string]any{
		"participants": participants,
	})
}

// fanOut sends one command per subscribed session, concurrently, and waits
// for every attempt to settle.
func (d *Distributor) fanOut(ctx context.Context, roomID string, updateType model.UpdateType, data any) {
	subscribers := d.registry.Subscribers(roomID)
	if len(subscribers) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, sessionID := range subscribers {
		cmd, err := model.NewRoomUpdate(roomID, updateType, data, sessionID, d.nodeID)
		if err != nil {
			// Settles this target and moves on; launched siblings still get
			// their wg.Wait barrier below.
			d.logger.Error("failed to build room update",
				zap.String("room_id", roomID),
				zap.String("session_id", sessionID),
				zap.String("update_type", string(updateType)),
				zap.Error(err),
			)
			metrics.RecordDelivery(string(updateType), err)
			continue
		}

		wg.Add(1)
		go func(sessionID string, cmd *model.RoomUpdate) {
			defer wg.Done()
			err := d.transport.Post(ctx, directory.CommandRoomUpdate, cmd)
			metrics.RecordDelivery(string(updateType), err)
			if err != nil {
				d.logger.Warn("event delivery failed",
					zap.String("room_id", roomID),
					zap.String("session_id", sessionID),
					zap.String("update_type", string(updateType)),
					zap.Error(err),
				)
			}
		}(sessionID, cmd)
	}
	wg.Wait()
}

// RoomHistory is a read-through delegation to the storage adapter. No caching
// happens at this layer.
func (d *Distributor) RoomHistory(ctx context.Context, roomID string, limit int, before time.Time) ([]model.Message, error) {
	return d.store.RoomHistory(ctx, roomID, limit, before)
}

// RoomParticipants resolves the room's subscribed sessions to participant
// records via the storage adapter.
func (d *Distributor) RoomParticipants(ctx context.Context, roomID string) ([]model.Participant, error) {
	sessions := d.registry.Subscribers(roomID)
	if len(sessions) == 0 {
		return nil, nil
	}
	return d.store.Participants(ctx, sessions)
}

// CleanupDisconnectedSessions unsubscribes all pairs for dead sessions.
func (d *Distributor) CleanupDisconnectedSessions(activeSessions map[string]struct{}) int {
	return d.registry.CleanupDisconnectedSessions(activeSessions)
}
