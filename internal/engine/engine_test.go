package engine

import (
	"testing"

	"github.com/hivechat/room-coordinator/internal/model"
)

func responder(id string, triggers ...model.Trigger) *model.Participant {
	return &model.Participant{
		ParticipantID: id,
		Capabilities:  model.Capabilities{AutoResponds: true, CanSendMessages: true},
		Adapter: &model.Adapter{
			Type:             model.AdapterTemplate,
			Config:           model.TemplateConfig{Template: "ack"},
			ResponseStrategy: &model.ResponseStrategy{Triggers: triggers},
		},
	}
}

func chatMessage(sender, content string, mentions ...string) *model.Message {
	return &model.Message{
		MessageID: "m-1",
		RoomID:    "room-1",
		SenderID:  sender,
		Content:   content,
		Mentions:  mentions,
		Category:  model.CategoryChat,
	}
}

func ptr(f float64) *float64 { return &f }

// alwaysFire makes every probability check pass; neverFire makes them all fail.
func alwaysFire() *Engine { return New(WithRandSource(func() float64 { return 0.0 })) }
func neverFire() *Engine  { return New(WithRandSource(func() float64 { return 0.999999 })) }

func TestDecidePreconditions(t *testing.T) {
	e := alwaysFire()
	msg := chatMessage("p-sender", "hello there")

	tests := []struct {
		name   string
		p      *model.Participant
		msg    *model.Message
		reason string
	}{
		{
			name: "no auto-respond capability",
			p: &model.Participant{
				ParticipantID: "p-1",
				Adapter: &model.Adapter{
					ResponseStrategy: &model.ResponseStrategy{
						Triggers: []model.Trigger{{Type: model.TriggerAlways}},
					},
				},
			},
			msg:    msg,
			reason: model.ReasonNoAutoRespond,
		},
		{
			name: "no adapter",
			p: &model.Participant{
				ParticipantID: "p-1",
				Capabilities:  model.Capabilities{AutoResponds: true},
			},
			msg:    msg,
			reason: model.ReasonNoStrategy,
		},
		{
			name: "adapter without strategy",
			p: &model.Participant{
				ParticipantID: "p-1",
				Capabilities:  model.Capabilities{AutoResponds: true},
				Adapter:       &model.Adapter{Type: model.AdapterTemplate},
			},
			msg:    msg,
			reason: model.ReasonNoStrategy,
		},
		{
			name:   "own message",
			p:      responder("p-1", model.Trigger{Type: model.TriggerAlways}),
			msg:    chatMessage("p-1", "talking to myself"),
			reason: model.ReasonSelfMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.Decide(tt.p, tt.msg, nil)
			if d.ShouldRespond {
				t.Error("ShouldRespond = true, want false")
			}
			if d.Reason != tt.reason {
				t.Errorf("reason = %q, want %q", d.Reason, tt.reason)
			}
		})
	}
}

func TestFirstMatchingTriggerWins(t *testing.T) {
	e := alwaysFire()
	p := responder("p-1",
		model.Trigger{Type: model.TriggerMention},
		model.Trigger{Type: model.TriggerKeyword, Value: []string{"deploy"}},
	)

	// Message both mentions p-1 and contains the keyword; mention is listed
	// first, so its reason and confidence win.
	d := e.Decide(p, chatMessage("p-2", "time to deploy", "p-1"), nil)
	if !d.ShouldRespond {
		t.Fatal("ShouldRespond = false, want true")
	}
	if d.Reason != model.ReasonMentioned {
		t.Errorf("reason = %q, want %q", d.Reason, model.ReasonMentioned)
	}
	if d.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", d.Confidence)
	}
}

func TestKeywordMatchCaseInsensitive(t *testing.T) {
	e := alwaysFire()
	p := responder("p-1", model.Trigger{Type: model.TriggerKeyword, Value: []string{"Deploy", "rollback"}})

	d := e.Decide(p, chatMessage("p-2", "starting the DEPLOY now"), nil)
	if !d.ShouldRespond || d.Reason != model.ReasonKeywordMatch {
		t.Fatalf("decision = %+v, want keyword match", d)
	}
	if d.Confidence != defaultKeywordConfidence {
		t.Errorf("confidence = %v, want default %v", d.Confidence, defaultKeywordConfidence)
	}

	d = e.Decide(p, chatMessage("p-2", "nothing relevant"), nil)
	if d.ShouldRespond {
		t.Errorf("decision = %+v, want no match", d)
	}
	if d.Reason != model.ReasonNoTriggers {
		t.Errorf("reason = %q, want %q", d.Reason, model.ReasonNoTriggers)
	}
}

func TestQuestionTriggerSkipsWithoutQuestionMark(t *testing.T) {
	e := alwaysFire()
	p := responder("p-1",
		model.Trigger{Type: model.TriggerQuestion},
		model.Trigger{Type: model.TriggerAlways},
	)

	// No question mark: the question trigger must skip, not veto, so the
	// always trigger behind it still fires.
	d := e.Decide(p, chatMessage("p-2", "plain statement"), nil)
	if !d.ShouldRespond || d.Reason != model.ReasonAlwaysRespond {
		t.Fatalf("decision = %+v, want always-respond fallthrough", d)
	}

	d = e.Decide(p, chatMessage("p-2", "is anyone around?"), nil)
	if !d.ShouldRespond || d.Reason != model.ReasonQuestionDetected {
		t.Fatalf("decision = %+v, want question-detected", d)
	}
	if d.Confidence != defaultQuestionProbability {
		t.Errorf("confidence = %v, want %v", d.Confidence, defaultQuestionProbability)
	}
}

func TestProbabilisticTriggers(t *testing.T) {
	p := responder("p-1", model.Trigger{Type: model.TriggerRandom, Probability: ptr(0.5)})
	msg := chatMessage("p-2", "anything")

	if d := alwaysFire().Decide(p, msg, nil); !d.ShouldRespond || d.Reason != model.ReasonRandomResponse {
		t.Errorf("draw below probability: decision = %+v, want random-response", d)
	}
	if d := neverFire().Decide(p, msg, nil); d.ShouldRespond {
		t.Errorf("draw above probability: decision = %+v, want no response", d)
	}
	if d := neverFire().Decide(p, msg, nil); d.Reason != model.ReasonNoTriggers {
		t.Errorf("reason = %q, want %q", d.Reason, model.ReasonNoTriggers)
	}
}

func TestActivityTriggerNeedsActiveDiscussion(t *testing.T) {
	e := alwaysFire()
	p := responder("p-1", model.Trigger{Type: model.TriggerActivity})
	msg := chatMessage("p-2", "keeping the thread going")

	recent := func(n int) *model.RoomContext {
		ctx := &model.RoomContext{}
		for i := 0; i < n; i++ {
			ctx.Recent = append(ctx.Recent, model.Message{MessageID: "m", Content: "x"})
		}
		return ctx
	}

	if d := e.Decide(p, msg, nil); d.ShouldRespond {
		t.Errorf("nil room context: decision = %+v, want no response", d)
	}
	if d := e.Decide(p, msg, recent(activeDiscussionThreshold-1)); d.ShouldRespond {
		t.Errorf("below threshold: decision = %+v, want no response", d)
	}
	d := e.Decide(p, msg, recent(activeDiscussionThreshold))
	if !d.ShouldRespond || d.Reason != model.ReasonActiveDiscussion {
		t.Errorf("at threshold: decision = %+v, want active-discussion", d)
	}
}

func TestNeverTriggerSuppressesRest(t *testing.T) {
	e := alwaysFire()
	p := responder("p-1",
		model.Trigger{Type: model.TriggerNever},
		model.Trigger{Type: model.TriggerAlways},
	)

	d := e.Decide(p, chatMessage("p-2", "hello"), nil)
	if d.ShouldRespond {
		t.Error("ShouldRespond = true, want false")
	}
	if d.Reason != model.ReasonNeverRespond {
		t.Errorf("reason = %q, want %q", d.Reason, model.ReasonNeverRespond)
	}
}

func TestEmptyTriggerList(t *testing.T) {
	e := alwaysFire()
	p := responder("p-1")

	d := e.Decide(p, chatMessage("p-2", "hello"), nil)
	if d.ShouldRespond || d.Reason != model.ReasonNoTriggers {
		t.Errorf("decision = %+v, want no-triggers-matched", d)
	}
}

func TestExplicitProbabilityOverridesDefault(t *testing.T) {
	p := responder("p-1", model.Trigger{Type: model.TriggerQuestion, Probability: ptr(1.0)})
	msg := chatMessage("p-2", "sure about that?")

	// Probability 1.0 fires on every draw strictly below 1.
	d := neverFire().Decide(p, msg, nil)
	if !d.ShouldRespond {
		t.Fatalf("decision = %+v, want response at probability 1.0", d)
	}
	if d.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", d.Confidence)
	}
}
