package model

import (
	"encoding/json"
	"fmt"
)

// TriggerType enumerates response trigger kinds.
type TriggerType string

const (
	TriggerMention  TriggerType = "mention"
	TriggerKeyword  TriggerType = "keyword"
	TriggerQuestion TriggerType = "question"
	TriggerActivity TriggerType = "activity"
	TriggerRandom   TriggerType = "random"
	TriggerAlways   TriggerType = "always"
	TriggerNever    TriggerType = "never"
)

// Trigger is one rule in a participant's ordered response strategy.
// Value accepts either a single string or a list on the wire; it is
// normalized to a list. Probability, when set, must be in [0,1].
type Trigger struct {
	Type        TriggerType `json:"type"`
	Value       []string    `json:"value,omitempty"`
	Probability *float64    `json:"probability,omitempty"`
}

// ProbabilityOr returns the trigger's probability or def when unset.
func (t *Trigger) ProbabilityOr(def float64) float64 {
	if t.Probability != nil {
		return *t.Probability
	}
	return def
}

// triggerJSON is the wire shape; value is string-or-list.
type triggerJSON struct {
	Type        TriggerType     `json:"type"`
	Value       json.RawMessage `json:"value,omitempty"`
	Probability *float64        `json:"probability,omitempty"`
}

func (t *Trigger) UnmarshalJSON(data []byte) error {
	var raw triggerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Type = raw.Type
	t.Probability = raw.Probability
	t.Value = nil
	if len(raw.Value) == 0 || string(raw.Value) == "null" {
		return nil
	}
	var one string
	if err := json.Unmarshal(raw.Value, &one); err == nil {
		t.Value = []string{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(raw.Value, &many); err == nil {
		t.Value = many
		return nil
	}
	return fmt.Errorf("trigger value must be a string or a string list")
}

// ResponseStrategy is a participant's ordered trigger list plus style hints.
// Order is caller-supplied policy: triggers are evaluated front to back and
// the first positive one wins.
type ResponseStrategy struct {
	Triggers  []Trigger `json:"triggers"`
	Style     string    `json:"style,omitempty"`
	Frequency float64   `json:"frequency,omitempty"`
}

// ResponseDecision is the outcome of evaluating one participant against one
// message. Never persisted; consumed immediately by the caller.
type ResponseDecision struct {
	ShouldRespond bool        `json:"should_respond"`
	Reason        string      `json:"reason"`
	TriggerType   TriggerType `json:"trigger_type,omitempty"`
	Confidence    float64     `json:"confidence,omitempty"`
}

// Decision reason strings. Tests assert on these exact values.
const (
	ReasonNoAutoRespond    = "no-auto-respond-capability"
	ReasonNoStrategy       = "no-response-strategy"
	ReasonSelfMessage      = "self-message"
	ReasonMentioned        = "mentioned"
	ReasonKeywordMatch     = "keyword-match"
	ReasonQuestionDetected = "question-detected"
	ReasonActiveDiscussion = "active-discussion"
	ReasonRandomResponse   = "random-response"
	ReasonAlwaysRespond    = "always-respond"
	ReasonNeverRespond     = "never-respond"
	ReasonNoTriggers       = "no-triggers-matched"
)
