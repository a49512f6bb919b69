// Package adapter validates adapter configurations and invokes the configured
// content-generation strategy for participants that decided to respond.
package adapter

import (
	"fmt"

	"github.com/hivechat/room-coordinator/internal/model"
)

// ValidationResult is the structured outcome of validating an adapter config.
// Validation never panics or returns an error; callers inspect the result and
// decide whether to block the join or proceed degraded.
type ValidationResult struct {
	Valid  bool     `json:"isValid"`
	Errors []string `json:"errors,omitempty"`
}

func invalid(errs ...string) ValidationResult {
	return ValidationResult{Errors: errs}
}

var validProviders = map[string]bool{
	"openai":    true,
	"anthropic": true,
	"local":     true,
}

// ValidateConfig checks a raw config object against the mandatory fields of
// the adapter type.
func ValidateConfig(t model.AdapterType, raw map[string]any) ValidationResult {
	if raw == nil {
		return invalid("config object is required")
	}

	var errs []string
	switch t {
	case model.AdapterAIAPI:
		provider, _ := raw["provider"].(string)
		if provider == "" {
			errs = append(errs, "ai-api adapter requires a provider")
		} else if !validProviders[provider] {
			errs = append(errs, fmt.Sprintf("unknown provider %q (want openai, anthropic or local)", provider))
		}

	case model.AdapterWebhook:
		if url, _ := raw["url"].(string); url == "" {
			errs = append(errs, "webhook adapter requires a url")
		}

	case model.AdapterLoraPersona:
		if name, _ := raw["persona_name"].(string); name == "" {
			errs = append(errs, "lora-persona adapter requires a persona_name")
		}
		if path, _ := raw["model_path"].(string); path == "" {
			errs = append(errs, "lora-persona adapter requires a model_path")
		}

	case model.AdapterTemplate:
		if tpl, _ := raw["template"].(string); tpl == "" {
			errs = append(errs, "template adapter requires a template")
		}

	case model.AdapterBrowserUI:
		// No mandatory fields beyond a present config object.

	default:
		// Custom and unrecognized types only need a config object.
	}

	if len(errs) > 0 {
		return invalid(errs...)
	}
	return ValidationResult{Valid: true}
}

// ExtractConfig validates a raw config and, when valid, returns the typed
// variant for the adapter type.
func ExtractConfig(t model.AdapterType, raw map[string]any) (model.AdapterConfig, ValidationResult) {
	result := ValidateConfig(t, raw)
	if !result.Valid {
		return nil, result
	}

	switch t {
	case model.AdapterAIAPI:
		cfg := model.AIAPIConfig{
			Provider:     stringField(raw, "provider"),
			Model:        stringField(raw, "model"),
			SystemPrompt: stringField(raw, "system_prompt"),
		}
		if v, ok := raw["temperature"].(float64); ok {
			cfg.Temperature = v
		}
		if v, ok := raw["max_tokens"].(float64); ok {
			cfg.MaxTokens = int(v)
		}
		return cfg, result

	case model.AdapterWebhook:
		cfg := model.WebhookConfig{URL: stringField(raw, "url")}
		if hs, ok := raw["headers"].(map[string]any); ok {
			cfg.Headers = make(map[string]string, len(hs))
			for k, v := range hs {
				if s, ok := v.(string); ok {
					cfg.Headers[k] = s
				}
			}
		}
		return cfg, result

	case model.AdapterLoraPersona:
		return model.LoraPersonaConfig{
			PersonaName: stringField(raw, "persona_name"),
			ModelPath:   stringField(raw, "model_path"),
		}, result

	case model.AdapterTemplate:
		return model.TemplateConfig{Template: stringField(raw, "template")}, result

	case model.AdapterBrowserUI:
		return model.BrowserUIConfig{}, result

	default:
		return model.CustomConfig(raw), result
	}
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}
