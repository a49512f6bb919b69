// Package engine decides, for each auto-responding participant, whether an
// inbound message should produce a reply.
package engine

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/hivechat/room-coordinator/internal/model"
	"github.com/hivechat/room-coordinator/pkg/metrics"
)

// Default probabilities for triggers that omit one.
const (
	defaultKeywordConfidence   = 0.8
	defaultQuestionProbability = 0.7
	defaultActivityProbability = 0.2
	defaultRandomProbability   = 0.1
)

// activeDiscussionThreshold is the minimum number of tracked recent messages
// (out of a window of 5) for a room to count as an active discussion.
const activeDiscussionThreshold = 3

// RecentWindow is how many messages per room the caller should track for the
// activity heuristic.
const RecentWindow = 5

// Engine evaluates a participant's ordered trigger list against a message.
// The random source is injectable so probabilistic triggers are testable.
type Engine struct {
	mu   sync.Mutex
	rand func() float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithRandSource replaces the uniform [0,1) draw used by probabilistic
// triggers.
func WithRandSource(f func() float64) Option {
	return func(e *Engine) {
		e.rand = f
	}
}

// New creates an engine. Without options it draws from a time-seeded source.
func New(opts ...Option) *Engine {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	e := &Engine{rand: src.Float64}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) draw() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rand()
}

// Decide evaluates the participant's triggers against the message, in list
// order, first positive match wins. Preconditions short-circuit with explicit
// negative reasons before any trigger runs.
func (e *Engine) Decide(p *model.Participant, msg *model.Message, room *model.RoomContext) model.ResponseDecision {
	decision := e.decide(p, msg, room)
	metrics.DecisionsTotal.WithLabelValues(decision.Reason, boolLabel(decision.ShouldRespond)).Inc()
	return decision
}

func (e *Engine) decide(p *model.Participant, msg *model.Message, room *model.RoomContext) model.ResponseDecision {
	if !p.Capabilities.AutoResponds {
		return model.ResponseDecision{Reason: model.ReasonNoAutoRespond}
	}
	if p.Adapter == nil || p.Adapter.ResponseStrategy == nil {
		return model.ResponseDecision{Reason: model.ReasonNoStrategy}
	}
	// A responder replying to itself would loop forever once its reply
	// re-enters distribution.
	if msg.SenderID == p.ParticipantID {
		return model.ResponseDecision{Reason: model.ReasonSelfMessage}
	}

	for i := range p.Adapter.ResponseStrategy.Triggers {
		trigger := &p.Adapter.ResponseStrategy.Triggers[i]
		decision, done := e.evaluate(trigger, p, msg, room)
		if done {
			return decision
		}
	}

	return model.ResponseDecision{Reason: model.ReasonNoTriggers}
}

// evaluate runs one trigger. done=false means the trigger neither fired nor
// vetoed, and the next trigger in the list gets its chance.
func (e *Engine) evaluate(t *model.Trigger, p *model.Participant, msg *model.Message, room *model.RoomContext) (model.ResponseDecision, bool) {
	switch t.Type {
	case model.TriggerMention:
		if msg.Mentioned(p.ParticipantID) {
			return model.ResponseDecision{
				ShouldRespond: true,
				Reason:        model.ReasonMentioned,
				TriggerType:   model.TriggerMention,
				Confidence:    1.0,
			}, true
		}

	case model.TriggerKeyword:
		content := strings.ToLower(msg.Content)
		for _, kw := range t.Value {
			if kw != "" && strings.Contains(content, strings.ToLower(kw)) {
				return model.ResponseDecision{
					ShouldRespond: true,
					Reason:        model.ReasonKeywordMatch,
					TriggerType:   model.TriggerKeyword,
					Confidence:    t.ProbabilityOr(defaultKeywordConfidence),
				}, true
			}
		}

	case model.TriggerQuestion:
		// No question mark: skip, not reject, so later triggers still run.
		if !strings.Contains(msg.Content, "?") {
			return model.ResponseDecision{}, false
		}
		prob := t.ProbabilityOr(defaultQuestionProbability)
		if e.draw() < prob {
			return model.ResponseDecision{
				ShouldRespond: true,
				Reason:        model.ReasonQuestionDetected,
				TriggerType:   model.TriggerQuestion,
				Confidence:    prob,
			}, true
		}

	case model.TriggerActivity:
		if room == nil || len(room.Recent) < activeDiscussionThreshold {
			return model.ResponseDecision{}, false
		}
		prob := t.ProbabilityOr(defaultActivityProbability)
		if e.draw() < prob {
			return model.ResponseDecision{
				ShouldRespond: true,
				Reason:        model.ReasonActiveDiscussion,
				TriggerType:   model.TriggerActivity,
				Confidence:    prob,
			}, true
		}

	case model.TriggerRandom:
		prob := t.ProbabilityOr(defaultRandomProbability)
		if e.draw() < prob {
			return model.ResponseDecision{
				ShouldRespond: true,
				Reason:        model.ReasonRandomResponse,
				TriggerType:   model.TriggerRandom,
				Confidence:    prob,
			}, true
		}

	case model.TriggerAlways:
		return model.ResponseDecision{
			ShouldRespond: true,
			Reason:        model.ReasonAlwaysRespond,
			TriggerType:   model.TriggerAlways,
			Confidence:    1.0,
		}, true

	case model.TriggerNever:
		// Evaluated in list order like any other trigger: placing never
		// first suppresses everything after it.
		return model.ResponseDecision{
			Reason:      model.ReasonNeverRespond,
			TriggerType: model.TriggerNever,
		}, true
	}

	return model.ResponseDecision{}, false
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
