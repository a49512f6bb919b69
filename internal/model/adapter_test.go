package model

import (
	"encoding/json"
	"testing"
)

func TestAdapterUnmarshalDecodesTypedConfig(t *testing.T) {
	in := `{
		"type": "webhook",
		"config": {"url": "https://bots.example.com/hook", "headers": {"X-Key": "v"}},
		"response_strategy": {"triggers": [{"type": "mention"}]}
	}`

	var a Adapter
	if err := json.Unmarshal([]byte(in), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a.Type != AdapterWebhook {
		t.Errorf("type = %q", a.Type)
	}
	cfg, ok := a.Config.(WebhookConfig)
	if !ok {
		t.Fatalf("config type = %T, want WebhookConfig", a.Config)
	}
	if cfg.URL != "https://bots.example.com/hook" || cfg.Headers["X-Key"] != "v" {
		t.Errorf("config = %+v", cfg)
	}
	if a.ResponseStrategy == nil || len(a.ResponseStrategy.Triggers) != 1 {
		t.Fatalf("strategy = %+v", a.ResponseStrategy)
	}
	if a.ResponseStrategy.Triggers[0].Type != TriggerMention {
		t.Errorf("trigger = %+v", a.ResponseStrategy.Triggers[0])
	}
}

func TestAdapterUnmarshalVariants(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want any
	}{
		{
			"ai-api",
			`{"type":"ai-api","config":{"provider":"anthropic","model":"claude-3-5-haiku-latest"}}`,
			AIAPIConfig{Provider: "anthropic", Model: "claude-3-5-haiku-latest"},
		},
		{
			"lora-persona",
			`{"type":"lora-persona","config":{"persona_name":"sage","model_path":"/m/s.gguf"}}`,
			LoraPersonaConfig{PersonaName: "sage", ModelPath: "/m/s.gguf"},
		},
		{
			"template",
			`{"type":"template","config":{"template":"hi"}}`,
			TemplateConfig{Template: "hi"},
		},
		{
			"browser-ui",
			`{"type":"browser-ui","config":{}}`,
			BrowserUIConfig{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Adapter
			if err := json.Unmarshal([]byte(tt.in), &a); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if a.Config != tt.want {
				t.Errorf("config = %#v, want %#v", a.Config, tt.want)
			}
		})
	}
}

func TestAdapterUnmarshalUnknownTypeKeepsRawConfig(t *testing.T) {
	var a Adapter
	if err := json.Unmarshal([]byte(`{"type":"my-bridge","config":{"k":"v"}}`), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	cfg, ok := a.Config.(CustomConfig)
	if !ok {
		t.Fatalf("config type = %T, want CustomConfig", a.Config)
	}
	if cfg["k"] != "v" {
		t.Errorf("config = %v", cfg)
	}
}

func TestAdapterUnmarshalMissingConfig(t *testing.T) {
	var a Adapter
	if err := json.Unmarshal([]byte(`{"type":"webhook"}`), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a.Config != nil {
		t.Errorf("config = %v, want nil", a.Config)
	}
}
