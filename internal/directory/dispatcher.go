package directory

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hivechat/room-coordinator/internal/model"
	"github.com/hivechat/room-coordinator/internal/transport"
	"github.com/hivechat/room-coordinator/pkg/logger"
	"github.com/hivechat/room-coordinator/pkg/metrics"
)

// CommandRoomUpdate is the command path room-update deliveries are sent to.
const CommandRoomUpdate = "chat/room-update"

// DeliveryResult records one settled delivery attempt.
type DeliveryResult struct {
	ParticipantID string
	SessionID     string
	NodeID        string
	Endpoint      string
	Err           error
}

// Dispatcher sends room-update commands to a room's participants without the
// caller knowing which node each participant lives on.
type Dispatcher struct {
	directory *Directory
	transport transport.Transport
	nodeID    string
	logger    *logger.Logger
}

// NewDispatcher creates a dispatcher for the given node.
func NewDispatcher(dir *Directory, t transport.Transport, nodeID string, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		directory: dir,
		transport: t,
		nodeID:    nodeID,
		logger:    log,
	}
}

// BuildEndpoint returns the command endpoint for a target node. A target on
// the current node gets the command unchanged; any other node gets the
// /remote/ form. This one function is what keeps "is this participant local"
// branching out of the rest of the system.
func BuildEndpoint(targetNodeID, currentNodeID, command string) string {
	if targetNodeID == currentNodeID {
		return command
	}
	return fmt.Sprintf("/remote/%s/%s", targetNodeID, command)
}

// NotifyAll sends one room-update command per tracked participant of the
// room, concurrently, and returns once every attempt has settled. Individual
// failures are logged and recorded in the result list; they never abort
// sibling deliveries and never surface as an aggregate error.
func (d *Dispatcher) NotifyAll(ctx context.Context, roomID string, updateType model.UpdateType, data any) []DeliveryResult {
	participants := d.directory.Participants(roomID)
	if len(participants) == 0 {
		return nil
	}

	results := make([]DeliveryResult, len(participants))
	var wg sync.WaitGroup

	for i, p := range participants {
		cmd, err := model.NewRoomUpdate(roomID, updateType, data, p.SessionID, d.nodeID)
		if err != nil {
			// Marshal failures settle immediately; the payload is shared, so
			// one bad payload fails every target identically.
			results[i] = DeliveryResult{
				ParticipantID: p.ParticipantID,
				SessionID:     p.SessionID,
				NodeID:        p.NodeID,
				Err:           err,
			}
			continue
		}

		endpoint := BuildEndpoint(p.NodeID, d.nodeID, CommandRoomUpdate)
		wg.Add(1)
		go func(i int, p model.DistributedParticipant) {
			defer wg.Done()
			err := d.transport.Post(ctx, endpoint, cmd)
			results[i] = DeliveryResult{
				ParticipantID: p.ParticipantID,
				SessionID:     p.SessionID,
				NodeID:        p.NodeID,
				Endpoint:      endpoint,
				Err:           err,
			}
			metrics.RecordDelivery(string(updateType), err)
			if err != nil {
				d.logger.Warn("room update delivery failed",
					zap.String("room_id", roomID),
					zap.String("participant_id", p.ParticipantID),
					zap.String("node_id", p.NodeID),
					zap.String("update_type", string(updateType)),
					zap.Error(err),
				)
			}
		}(i, p)
	}

	wg.Wait()
	return results
}

// NotifyParticipant sends one room-update command to a single participant.
func (d *Dispatcher) NotifyParticipant(ctx context.Context, roomID, participantID string, updateType model.UpdateType, data any) error {
	for _, p := range d.directory.Participants(roomID) {
		if p.ParticipantID != participantID {
			continue
		}
		cmd, err := model.NewRoomUpdate(roomID, updateType, data, p.SessionID, d.nodeID)
		if err != nil {
			return fmt.Errorf("build command: %w", err)
		}
		endpoint := BuildEndpoint(p.NodeID, d.nodeID, CommandRoomUpdate)
		err = d.transport.Post(ctx, endpoint, cmd)
		metrics.RecordDelivery(string(updateType), err)
		return err
	}
	return fmt.Errorf("participant %s not tracked in room %s", participantID, roomID)
}
