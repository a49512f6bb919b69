package registry

import (
	"testing"
)

func TestSubscribeSymmetry(t *testing.T) {
	r := New()

	r.Subscribe("sess-1", "room-a")

	if !r.IsSubscribed("sess-1", "room-a") {
		t.Error("session not in room's subscriber set after subscribe")
	}
	found := false
	for _, roomID := range r.Rooms("sess-1") {
		if roomID == "room-a" {
			found = true
		}
	}
	if !found {
		t.Error("room not in session's room set after subscribe")
	}
}

func TestUnsubscribePrunesEmptySets(t *testing.T) {
	r := New()

	r.Subscribe("sess-1", "room-a")
	r.Unsubscribe("sess-1", "room-a")

	if r.IsSubscribed("sess-1", "room-a") {
		t.Error("still subscribed after unsubscribe")
	}
	if r.HasRoom("room-a") {
		t.Error("empty room set not pruned")
	}
	if r.HasSession("sess-1") {
		t.Error("empty session set not pruned")
	}
}

func TestUnsubscribeKeepsOtherPairs(t *testing.T) {
	r := New()

	r.Subscribe("sess-1", "room-a")
	r.Subscribe("sess-2", "room-a")
	r.Subscribe("sess-1", "room-b")

	r.Unsubscribe("sess-1", "room-a")

	if !r.IsSubscribed("sess-2", "room-a") {
		t.Error("unsubscribe removed an unrelated session")
	}
	if !r.IsSubscribed("sess-1", "room-b") {
		t.Error("unsubscribe removed an unrelated room")
	}
}

func TestSubscribeIdempotent(t *testing.T) {
	r := New()

	r.Subscribe("sess-1", "room-a")
	r.Subscribe("sess-1", "room-a")

	if got := len(r.Subscribers("room-a")); got != 1 {
		t.Errorf("subscribers = %d, want 1", got)
	}

	r.Unsubscribe("sess-1", "room-a")
	if r.HasRoom("room-a") {
		t.Error("room not pruned after single unsubscribe of doubled subscribe")
	}
}

func TestCleanupDisconnectedSessions(t *testing.T) {
	r := New()

	r.Subscribe("sess-live", "room-a")
	r.Subscribe("sess-dead", "room-a")
	r.Subscribe("sess-dead", "room-b")

	removed := r.CleanupDisconnectedSessions(map[string]struct{}{
		"sess-live": {},
	})

	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if !r.IsSubscribed("sess-live", "room-a") {
		t.Error("live session was swept")
	}
	if r.HasSession("sess-dead") {
		t.Error("dead session still indexed")
	}
	if r.HasRoom("room-b") {
		t.Error("room-b not pruned after its only subscriber was swept")
	}
}
