// Package storage defines the persistence collaborator consumed by the
// coordination core, plus a sqlite-backed implementation.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hivechat/room-coordinator/internal/model"
)

// ErrNotFound is returned when a room lookup misses.
var ErrNotFound = errors.New("not found")

// Adapter is the storage collaborator. Calls are expected to be
// idempotent-safe for retries; the core never retries them itself.
type Adapter interface {
	StoreMessage(ctx context.Context, roomID string, msg *model.Message) error
	RoomHistory(ctx context.Context, roomID string, limit int, before time.Time) ([]model.Message, error)

	StoreParticipant(ctx context.Context, p *model.Participant) error
	Participants(ctx context.Context, sessionIDs []string) ([]model.Participant, error)

	CreateRoom(ctx context.Context, room *model.Room) error
	Room(ctx context.Context, roomID string) (*model.Room, error)
	UpdateRoom(ctx context.Context, roomID string, patch *model.RoomPatch) error

	Close() error
}
