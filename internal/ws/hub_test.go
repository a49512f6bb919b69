package ws

import (
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hivechat/room-coordinator/internal/model"
	"github.com/hivechat/room-coordinator/pkg/logger"
	"github.com/hivechat/room-coordinator/pkg/metrics"
)

func testSession(hub *Hub, id string) *Session {
	return NewSession(hub, nil, id, logger.NewNop())
}

func TestHubRegisterAndActiveSessions(t *testing.T) {
	hub := NewHub(logger.NewNop())
	s1 := testSession(hub, "s-1")
	s2 := testSession(hub, "s-2")
	hub.Register(s1)
	hub.Register(s2)

	active := hub.ActiveSessions()
	if len(active) != 2 {
		t.Fatalf("active = %v, want 2 sessions", active)
	}
	if _, ok := active["s-1"]; !ok {
		t.Error("s-1 missing")
	}

	hub.Unregister(s1)
	if _, ok := hub.ActiveSessions()["s-1"]; ok {
		t.Error("s-1 still active after unregister")
	}
}

func TestHubDeliverRoutesBySession(t *testing.T) {
	hub := NewHub(logger.NewNop())
	s := testSession(hub, "s-1")
	hub.Register(s)

	cmd, err := model.NewRoomUpdate("room-1", model.UpdateMessageSent, map[string]string{"k": "v"}, "s-1", "node-A")
	if err != nil {
		t.Fatal(err)
	}
	hub.Deliver(cmd)

	select {
	case data := <-s.send:
		var got model.RoomUpdate
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.RoomID != "room-1" || got.TargetSessionID != "s-1" {
			t.Errorf("delivered = %+v", got)
		}
	default:
		t.Fatal("nothing queued for s-1")
	}

	// Unknown targets are silently skipped.
	cmd.TargetSessionID = "s-ghost"
	hub.Deliver(cmd)
}

func TestHubUnregisterReplacedSessionKeepsCurrent(t *testing.T) {
	hub := NewHub(logger.NewNop())
	old := testSession(hub, "s-1")
	hub.Register(old)
	replacement := testSession(hub, "s-1")
	hub.Register(replacement)

	// Unregistering the stale session must not evict its replacement.
	hub.Unregister(old)
	if _, ok := hub.ActiveSessions()["s-1"]; !ok {
		t.Error("replacement session evicted by stale unregister")
	}
}

func TestDeliverAfterUnregisterDoesNotPanic(t *testing.T) {
	hub := NewHub(logger.NewNop())
	s := testSession(hub, "s-1")
	hub.Register(s)

	cmd, err := model.NewRoomUpdate("room-1", model.UpdateMessageSent, nil, "s-1", "node-A")
	if err != nil {
		t.Fatal(err)
	}

	// A dispatcher goroutine may race an unregister and still hold the
	// session; the queue must stay safe to send on.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			hub.Deliver(cmd)
			if err := s.SendJSON(cmd); err != nil {
				t.Errorf("SendJSON: %v", err)
				return
			}
		}
	}()
	hub.Unregister(s)
	<-done
}

func TestSessionGaugeStableAcrossReconnects(t *testing.T) {
	hub := NewHub(logger.NewNop())
	base := testutil.ToFloat64(metrics.WSSessionsActive)

	first := testSession(hub, "s-1")
	hub.Register(first)
	second := testSession(hub, "s-1")
	hub.Register(second)

	if got := testutil.ToFloat64(metrics.WSSessionsActive); got != base+1 {
		t.Errorf("gauge = %v after reconnect, want %v", got, base+1)
	}

	// Stale unregister of the replaced session leaves the gauge alone.
	hub.Unregister(first)
	if got := testutil.ToFloat64(metrics.WSSessionsActive); got != base+1 {
		t.Errorf("gauge = %v after stale unregister, want %v", got, base+1)
	}

	hub.Unregister(second)
	if got := testutil.ToFloat64(metrics.WSSessionsActive); got != base {
		t.Errorf("gauge = %v after disconnect, want %v", got, base)
	}
}

func TestSendJSONDropsWhenBufferFull(t *testing.T) {
	s := testSession(NewHub(logger.NewNop()), "s-1")
	for i := 0; i < cap(s.send)+10; i++ {
		if err := s.SendJSON(map[string]int{"i": i}); err != nil {
			t.Fatalf("SendJSON: %v", err)
		}
	}
	if len(s.send) != cap(s.send) {
		t.Errorf("queued = %d, want full buffer %d", len(s.send), cap(s.send))
	}
}
