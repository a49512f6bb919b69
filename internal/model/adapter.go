package model

import (
	"encoding/json"
	"fmt"
)

// AdapterType discriminates how a participant produces content.
type AdapterType string

const (
	AdapterAIAPI       AdapterType = "ai-api"
	AdapterWebhook     AdapterType = "webhook"
	AdapterLoraPersona AdapterType = "lora-persona"
	AdapterTemplate    AdapterType = "template"
	AdapterBrowserUI   AdapterType = "browser-ui"
	AdapterCustom      AdapterType = "custom"
)

// AdapterConfig is the tagged variant carried by an Adapter. Each concrete
// type holds only its own required fields; construction goes through the
// validator so invalid configs never reach the invoker.
type AdapterConfig interface {
	adapterConfig()
}

// AIAPIConfig configures an AI-provider-backed responder.
type AIAPIConfig struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model,omitempty"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
}

// WebhookConfig configures a webhook-backed responder.
type WebhookConfig struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// LoraPersonaConfig configures a local-inference persona responder.
type LoraPersonaConfig struct {
	PersonaName string `json:"persona_name"`
	ModelPath   string `json:"model_path"`
}

// TemplateConfig configures a fixed-template responder.
type TemplateConfig struct {
	Template string `json:"template"`
}

// BrowserUIConfig marks a human-driven browser session; responses come from
// the user, never from the invoker.
type BrowserUIConfig struct{}

// CustomConfig carries an opaque settings bag for unrecognized adapter kinds.
type CustomConfig map[string]any

func (AIAPIConfig) adapterConfig()       {}
func (WebhookConfig) adapterConfig()     {}
func (LoraPersonaConfig) adapterConfig() {}
func (TemplateConfig) adapterConfig()    {}
func (BrowserUIConfig) adapterConfig()   {}
func (CustomConfig) adapterConfig()      {}

// Adapter is a participant's pluggable content-generation strategy.
type Adapter struct {
	Type             AdapterType       `json:"type"`
	Config           AdapterConfig     `json:"config"`
	ResponseStrategy *ResponseStrategy `json:"response_strategy,omitempty"`
}

type adapterJSON struct {
	Type             AdapterType       `json:"type"`
	Config           json.RawMessage   `json:"config"`
	ResponseStrategy *ResponseStrategy `json:"response_strategy,omitempty"`
}

func (a *Adapter) UnmarshalJSON(data []byte) error {
	var raw adapterJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.Type = raw.Type
	a.ResponseStrategy = raw.ResponseStrategy
	cfg, err := decodeAdapterConfig(raw.Type, raw.Config)
	if err != nil {
		return err
	}
	a.Config = cfg
	return nil
}

func decodeAdapterConfig(t AdapterType, raw json.RawMessage) (AdapterConfig, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	switch t {
	case AdapterAIAPI:
		var c AIAPIConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode ai-api config: %w", err)
		}
		return c, nil
	case AdapterWebhook:
		var c WebhookConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode webhook config: %w", err)
		}
		return c, nil
	case AdapterLoraPersona:
		var c LoraPersonaConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode lora-persona config: %w", err)
		}
		return c, nil
	case AdapterTemplate:
		var c TemplateConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode template config: %w", err)
		}
		return c, nil
	case AdapterBrowserUI:
		return BrowserUIConfig{}, nil
	default:
		var c CustomConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode custom config: %w", err)
		}
		return c, nil
	}
}
