// Package transport moves room-update commands between sessions and nodes.
package transport

import (
	"context"

	"github.com/hivechat/room-coordinator/internal/model"
)

// Transport delivers one room-update command to the endpoint computed by the
// dispatcher. Local endpoints are handled by the node itself; `/remote/...`
// endpoints cross node boundaries. Per-delivery failures are returned to the
// caller, which isolates them; Post must never panic.
type Transport interface {
	Post(ctx context.Context, endpoint string, cmd *model.RoomUpdate) error
}

// Handler consumes inbound commands addressed to this node.
type Handler func(cmd *model.RoomUpdate)
