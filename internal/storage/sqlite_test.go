package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hivechat/room-coordinator/internal/model"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "rooms.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMessageRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Minute)

	for i, content := range []string{"first", "second", "third"} {
		err := db.StoreMessage(ctx, "room-1", &model.Message{
			MessageID: content,
			RoomID:    "room-1",
			SenderID:  "p-1",
			Content:   content,
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Mentions:  []string{"p-2"},
			Category:  model.CategoryChat,
			Context:   map[string]string{"k": "v"},
		})
		if err != nil {
			t.Fatalf("store %q: %v", content, err)
		}
	}

	msgs, err := db.RoomHistory(ctx, "room-1", 10, time.Time{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("history = %d messages, want 3", len(msgs))
	}
	// Chronological, oldest first.
	if msgs[0].Content != "first" || msgs[2].Content != "third" {
		t.Errorf("order = %q, %q, %q", msgs[0].Content, msgs[1].Content, msgs[2].Content)
	}
	if len(msgs[0].Mentions) != 1 || msgs[0].Mentions[0] != "p-2" {
		t.Errorf("mentions = %v", msgs[0].Mentions)
	}
	if msgs[0].Context["k"] != "v" {
		t.Errorf("context = %v", msgs[0].Context)
	}
}

func TestStoreMessageIgnoresReplay(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	room := &model.Room{RoomID: "room-1", Name: "general", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := db.CreateRoom(ctx, room); err != nil {
		t.Fatal(err)
	}

	msg := &model.Message{
		MessageID: "m-1",
		RoomID:    "room-1",
		SenderID:  "p-1",
		Content:   "once",
		Timestamp: time.Now(),
		Category:  model.CategoryChat,
	}
	if err := db.StoreMessage(ctx, "room-1", msg); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := db.StoreMessage(ctx, "room-1", msg); err != nil {
		t.Fatalf("replay: %v", err)
	}

	msgs, err := db.RoomHistory(ctx, "room-1", 10, time.Time{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(msgs) != 1 {
		t.Errorf("history = %d messages, want 1 after replay", len(msgs))
	}

	got, err := db.Room(ctx, "room-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.MessageCount != 1 {
		t.Errorf("message count = %d after replay, want 1", got.MessageCount)
	}
}

func TestRoomHistoryLimitAndBefore(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		err := db.StoreMessage(ctx, "room-1", &model.Message{
			MessageID: string(rune('a' + i)),
			RoomID:    "room-1",
			SenderID:  "p-1",
			Content:   string(rune('a' + i)),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Category:  model.CategoryChat,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	// Limit keeps the newest messages, still returned oldest first.
	msgs, err := db.RoomHistory(ctx, "room-1", 2, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Content != "d" || msgs[1].Content != "e" {
		t.Errorf("limited history = %+v", msgs)
	}

	// Before excludes messages at or after the cutoff.
	msgs, err = db.RoomHistory(ctx, "room-1", 10, base.Add(2*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[1].Content != "b" {
		t.Errorf("bounded history = %+v", msgs)
	}
}

func TestParticipantUpsert(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	p := &model.Participant{
		ParticipantID: "p-1",
		SessionID:     "s-1",
		DisplayName:   "Alice",
		JoinedAt:      time.Now(),
		LastSeen:      time.Now(),
		IsOnline:      true,
		Capabilities:  model.Capabilities{CanSendMessages: true, AutoResponds: true},
		Adapter: &model.Adapter{
			Type:   model.AdapterTemplate,
			Config: model.TemplateConfig{Template: "hi"},
		},
	}
	if err := db.StoreParticipant(ctx, p); err != nil {
		t.Fatalf("store: %v", err)
	}

	// Rejoining with a new session replaces the record.
	p.SessionID = "s-2"
	p.DisplayName = "Alice B"
	if err := db.StoreParticipant(ctx, p); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := db.Participants(ctx, []string{"s-2"})
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("participants = %d, want 1", len(got))
	}
	if got[0].DisplayName != "Alice B" {
		t.Errorf("display name = %q", got[0].DisplayName)
	}
	if !got[0].Capabilities.AutoResponds {
		t.Error("capabilities lost in round trip")
	}
	if got[0].Adapter == nil {
		t.Fatal("adapter lost in round trip")
	}
	if cfg, ok := got[0].Adapter.Config.(model.TemplateConfig); !ok || cfg.Template != "hi" {
		t.Errorf("adapter config = %#v", got[0].Adapter.Config)
	}

	// The old session no longer resolves.
	if got, _ := db.Participants(ctx, []string{"s-1"}); len(got) != 0 {
		t.Errorf("stale session resolved: %+v", got)
	}
}

func TestParticipantsEmptyInput(t *testing.T) {
	db := openTestDB(t)
	got, err := db.Participants(context.Background(), nil)
	if err != nil || got != nil {
		t.Errorf("Participants(nil) = (%v, %v), want (nil, nil)", got, err)
	}
}

func TestRoomLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.Room(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing room err = %v, want ErrNotFound", err)
	}

	room := &model.Room{
		RoomID:    "room-1",
		Name:      "general",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Moderation: model.ModerationRules{
			AllowAutoResponders: true,
			BannedWords:         []string{"spam"},
		},
		Limits:           model.ParticipantLimits{MaxParticipants: 20},
		MessageRetention: 48 * time.Hour,
	}
	if err := db.CreateRoom(ctx, room); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := db.Room(ctx, "room-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Name != "general" || !got.Moderation.AllowAutoResponders {
		t.Errorf("room = %+v", got)
	}
	if got.Limits.MaxParticipants != 20 {
		t.Errorf("limits = %+v", got.Limits)
	}
	if got.MessageRetention != 48*time.Hour {
		t.Errorf("retention = %v", got.MessageRetention)
	}

	name := "renamed"
	if err := db.UpdateRoom(ctx, "room-1", &model.RoomPatch{Name: &name}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err = db.Room(ctx, "room-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "renamed" {
		t.Errorf("name = %q after patch", got.Name)
	}

	if err := db.UpdateRoom(ctx, "nope", &model.RoomPatch{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Errorf("patching missing room err = %v, want ErrNotFound", err)
	}
}

func TestStoreMessageBumpsRoomCount(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	room := &model.Room{RoomID: "room-1", Name: "general", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := db.CreateRoom(ctx, room); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		err := db.StoreMessage(ctx, "room-1", &model.Message{
			MessageID: string(rune('a' + i)),
			RoomID:    "room-1",
			SenderID:  "p-1",
			Content:   "x",
			Timestamp: time.Now(),
			Category:  model.CategoryChat,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.Room(ctx, "room-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.MessageCount != 3 {
		t.Errorf("message count = %d, want 3", got.MessageCount)
	}
}
