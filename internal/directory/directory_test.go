package directory

import (
	"testing"

	"github.com/hivechat/room-coordinator/internal/model"
)

func participant(id, session string) model.Participant {
	return model.Participant{
		ParticipantID: id,
		SessionID:     session,
		DisplayName:   id,
	}
}

func TestAddAndListParticipants(t *testing.T) {
	d := New()

	d.AddParticipant("room-1", participant("p-1", "s-1"), "node-a")
	d.AddParticipant("room-1", participant("p-2", "s-2"), "node-b")

	got := d.Participants("room-1")
	if len(got) != 2 {
		t.Fatalf("participants = %d, want 2", len(got))
	}
	if got[0].NodeID != "node-a" || got[1].NodeID != "node-b" {
		t.Errorf("node ids = %q, %q", got[0].NodeID, got[1].NodeID)
	}
}

func TestAddReplacesExistingParticipant(t *testing.T) {
	d := New()

	d.AddParticipant("room-1", participant("p-1", "s-old"), "node-a")
	d.AddParticipant("room-1", participant("p-1", "s-new"), "node-b")

	got := d.Participants("room-1")
	if len(got) != 1 {
		t.Fatalf("participants = %d, want 1 (rejoin must not duplicate)", len(got))
	}
	if got[0].SessionID != "s-new" || got[0].NodeID != "node-b" {
		t.Errorf("entry = %+v, want updated session and node", got[0])
	}
}

func TestUnknownRoomYieldsEmptySnapshot(t *testing.T) {
	d := New()
	if got := d.Participants("nope"); len(got) != 0 {
		t.Errorf("participants = %v, want empty", got)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	d := New()
	d.AddParticipant("room-1", participant("p-1", "s-1"), "node-a")

	snap := d.Participants("room-1")
	snap[0].NodeID = "mutated"

	if got := d.Participants("room-1")[0].NodeID; got != "node-a" {
		t.Errorf("directory entry mutated through snapshot: %q", got)
	}
}

func TestRemoveParticipant(t *testing.T) {
	d := New()
	d.AddParticipant("room-1", participant("p-1", "s-1"), "node-a")
	d.AddParticipant("room-1", participant("p-2", "s-2"), "node-a")

	removed, ok := d.RemoveParticipant("room-1", "p-1")
	if !ok {
		t.Fatal("remove reported no match")
	}
	if removed.SessionID != "s-1" {
		t.Errorf("removed session = %q, want s-1", removed.SessionID)
	}
	if len(d.Participants("room-1")) != 1 {
		t.Error("room should have one participant left")
	}

	if _, ok := d.RemoveParticipant("room-1", "p-1"); ok {
		t.Error("second remove of same id should report no match")
	}
}

func TestRemoveLastParticipantPrunesRoom(t *testing.T) {
	d := New()
	d.AddParticipant("room-1", participant("p-1", "s-1"), "node-a")
	d.RemoveParticipant("room-1", "p-1")

	if rooms := d.Rooms(); len(rooms) != 0 {
		t.Errorf("rooms = %v, want none after last participant leaves", rooms)
	}
}

func TestGroupByNode(t *testing.T) {
	d := New()
	d.AddParticipant("room-1", participant("p-1", "s-1"), "node-a")
	d.AddParticipant("room-1", participant("p-2", "s-2"), "node-a")
	d.AddParticipant("room-1", participant("p-3", "s-3"), "node-b")

	groups := d.GroupByNode("room-1")
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if len(groups["node-a"]) != 2 || len(groups["node-b"]) != 1 {
		t.Errorf("group sizes = %d/%d, want 2/1", len(groups["node-a"]), len(groups["node-b"]))
	}

	if !d.IsDistributed("room-1") {
		t.Error("room spanning two nodes should be distributed")
	}

	d.RemoveParticipant("room-1", "p-3")
	if d.IsDistributed("room-1") {
		t.Error("single-node room should not be distributed")
	}
}

func TestCleanupDisconnected(t *testing.T) {
	d := New()
	d.AddParticipant("room-1", participant("p-1", "s-live"), "node-a")
	d.AddParticipant("room-1", participant("p-2", "s-dead"), "node-a")
	d.AddParticipant("room-2", participant("p-3", "s-dead"), "node-b")

	removed := d.CleanupDisconnected(map[string]struct{}{"s-live": {}})
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if len(d.Participants("room-1")) != 1 {
		t.Error("live participant swept from room-1")
	}
	if len(d.Rooms()) != 1 {
		t.Error("emptied room-2 not pruned")
	}
}
