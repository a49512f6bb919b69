package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hivechat/room-coordinator/internal/model"
)

//go:embed schema.sql
var schema string

// SQLite is the sqlite-backed storage adapter.
type SQLite struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// StoreMessage inserts a message. Replays of the same message id are ignored.
func (s *SQLite) StoreMessage(ctx context.Context, roomID string, msg *model.Message) error {
	mentions, err := json.Marshal(msg.Mentions)
	if err != nil {
		return fmt.Errorf("marshal mentions: %w", err)
	}
	msgContext, err := json.Marshal(msg.Context)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO messages
			(message_id, room_id, sender_id, sender_name, content, timestamp, mentions, category, reply_to_id, context)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.MessageID, roomID, msg.SenderID, msg.SenderName, msg.Content,
		msg.Timestamp, string(mentions), string(msg.Category), msg.ReplyToID, string(msgContext),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	// A replayed message id is ignored above and must not drift the count.
	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert message result: %w", err)
	}
	if inserted == 0 {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE rooms SET message_count = message_count + 1, updated_at = ? WHERE room_id = ?`,
		time.Now(), roomID,
	)
	if err != nil {
		return fmt.Errorf("bump message count: %w", err)
	}
	return nil
}

// RoomHistory returns up to limit messages for a room, oldest first. A zero
// before time means "no upper bound".
func (s *SQLite) RoomHistory(ctx context.Context, roomID string, limit int, before time.Time) ([]model.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if before.IsZero() {
		before = time.Now().Add(time.Hour)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, room_id, sender_id, sender_name, content, timestamp, mentions, category, reply_to_id, context
		FROM messages
		WHERE room_id = ? AND timestamp < ?
		ORDER BY timestamp DESC
		LIMIT ?`,
		roomID, before, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var m model.Message
		var mentions, msgContext, category string
		if err := rows.Scan(&m.MessageID, &m.RoomID, &m.SenderID, &m.SenderName,
			&m.Content, &m.Timestamp, &mentions, &category, &m.ReplyToID, &msgContext); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Category = model.MessageCategory(category)
		if err := json.Unmarshal([]byte(mentions), &m.Mentions); err != nil {
			return nil, fmt.Errorf("decode mentions: %w", err)
		}
		if err := json.Unmarshal([]byte(msgContext), &m.Context); err != nil {
			return nil, fmt.Errorf("decode context: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query returns newest-first; callers want chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// StoreParticipant upserts a participant record.
func (s *SQLite) StoreParticipant(ctx context.Context, p *model.Participant) error {
	caps, err := json.Marshal(p.Capabilities)
	if err != nil {
		return fmt.Errorf("marshal capabilities: %w", err)
	}
	var adapterJSON sql.NullString
	if p.Adapter != nil {
		raw, err := json.Marshal(p.Adapter)
		if err != nil {
			return fmt.Errorf("marshal adapter: %w", err)
		}
		adapterJSON = sql.NullString{String: string(raw), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO participants (participant_id, session_id, display_name, joined_at, last_seen, is_online, capabilities, adapter)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(participant_id) DO UPDATE SET
			session_id = excluded.session_id,
			display_name = excluded.display_name,
			last_seen = excluded.last_seen,
			is_online = excluded.is_online,
			capabilities = excluded.capabilities,
			adapter = excluded.adapter`,
		p.ParticipantID, p.SessionID, p.DisplayName, p.JoinedAt, p.LastSeen,
		p.IsOnline, string(caps), adapterJSON,
	)
	if err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	return nil
}

// Participants returns the participant records for the given sessions.
func (s *SQLite) Participants(ctx context.Context, sessionIDs []string) ([]model.Participant, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(sessionIDs)), ",")
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT participant_id, session_id, display_name, joined_at, last_seen, is_online, capabilities, adapter
		FROM participants
		WHERE session_id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	var out []model.Participant
	for rows.Next() {
		var p model.Participant
		var caps string
		var adapterJSON sql.NullString
		if err := rows.Scan(&p.ParticipantID, &p.SessionID, &p.DisplayName,
			&p.JoinedAt, &p.LastSeen, &p.IsOnline, &caps, &adapterJSON); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		if err := json.Unmarshal([]byte(caps), &p.Capabilities); err != nil {
			return nil, fmt.Errorf("decode capabilities: %w", err)
		}
		if adapterJSON.Valid {
			var a model.Adapter
			if err := json.Unmarshal([]byte(adapterJSON.String), &a); err != nil {
				return nil, fmt.Errorf("decode adapter: %w", err)
			}
			p.Adapter = &a
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateRoom inserts a room record.
func (s *SQLite) CreateRoom(ctx context.Context, room *model.Room) error {
	moderation, err := json.Marshal(room.Moderation)
	if err != nil {
		return fmt.Errorf("marshal moderation: %w", err)
	}
	limits, err := json.Marshal(room.Limits)
	if err != nil {
		return fmt.Errorf("marshal limits: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rooms (room_id, name, description, created_at, updated_at, participant_count, message_count, is_private, category, moderation, participant_limits, retention_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		room.RoomID, room.Name, room.Description, room.CreatedAt, room.UpdatedAt,
		room.ParticipantCount, room.MessageCount, room.IsPrivate, room.Category,
		string(moderation), string(limits), int64(room.MessageRetention.Seconds()),
	)
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

// Room returns a room by id or ErrNotFound.
func (s *SQLite) Room(ctx context.Context, roomID string) (*model.Room, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT room_id, name, description, created_at, updated_at, participant_count, message_count, is_private, category, moderation, participant_limits, retention_seconds
		FROM rooms WHERE room_id = ?`,
		roomID,
	)

	var room model.Room
	var moderation, limits string
	var retentionSeconds int64
	err := row.Scan(&room.RoomID, &room.Name, &room.Description, &room.CreatedAt,
		&room.UpdatedAt, &room.ParticipantCount, &room.MessageCount, &room.IsPrivate,
		&room.Category, &moderation, &limits, &retentionSeconds)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan room: %w", err)
	}
	if err := json.Unmarshal([]byte(moderation), &room.Moderation); err != nil {
		return nil, fmt.Errorf("decode moderation: %w", err)
	}
	if err := json.Unmarshal([]byte(limits), &room.Limits); err != nil {
		return nil, fmt.Errorf("decode limits: %w", err)
	}
	room.MessageRetention = time.Duration(retentionSeconds) * time.Second
	return &room, nil
}

// UpdateRoom applies a partial update to a room.
func (s *SQLite) UpdateRoom(ctx context.Context, roomID string, patch *model.RoomPatch) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now()}

	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.ParticipantCount != nil {
		sets = append(sets, "participant_count = ?")
		args = append(args, *patch.ParticipantCount)
	}
	if patch.MessageCount != nil {
		sets = append(sets, "message_count = ?")
		args = append(args, *patch.MessageCount)
	}
	if patch.Moderation != nil {
		raw, err := json.Marshal(patch.Moderation)
		if err != nil {
			return fmt.Errorf("marshal moderation: %w", err)
		}
		sets = append(sets, "moderation = ?")
		args = append(args, string(raw))
	}

	args = append(args, roomID)
	res, err := s.db.ExecContext(ctx,
		"UPDATE rooms SET "+strings.Join(sets, ", ")+" WHERE room_id = ?", args...)
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
