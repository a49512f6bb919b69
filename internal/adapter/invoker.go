package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hivechat/room-coordinator/internal/llm"
	"github.com/hivechat/room-coordinator/internal/model"
	"github.com/hivechat/room-coordinator/pkg/logger"
	"github.com/hivechat/room-coordinator/pkg/metrics"
)

// contextMessageWindow is how many recent messages the ai-api prompt embeds.
const contextMessageWindow = 5

// Request carries everything an adapter needs to generate a reply.
type Request struct {
	Participant *model.Participant `json:"participant"`
	Message     *model.Message     `json:"message"`
	Room        *model.Room        `json:"room"`
	Context     []model.Message    `json:"context,omitempty"`
}

// Response is the settled outcome of one adapter invocation. Generation
// failures land here as Success=false; they never crash the update pipeline.
type Response struct {
	Success          bool           `json:"success"`
	Content          string         `json:"content,omitempty"`
	Error            string         `json:"error,omitempty"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
	Context          map[string]any `json:"context,omitempty"`
}

// LoraInvoker is the extension point for local-inference persona generation.
type LoraInvoker interface {
	Generate(ctx context.Context, cfg model.LoraPersonaConfig, req *Request) (string, error)
}

// Invoker dispatches a positive response decision to the participant's
// configured adapter.
type Invoker struct {
	providers  map[string]llm.Client
	httpClient *http.Client
	lora       LoraInvoker
	logger     *logger.Logger
}

// NewInvoker creates an invoker. providers maps provider names to clients;
// lora may be nil, in which case lora-persona adapters get a placeholder
// persona reply.
func NewInvoker(providers map[string]llm.Client, webhookTimeout time.Duration, lora LoraInvoker, log *logger.Logger) *Invoker {
	if webhookTimeout <= 0 {
		webhookTimeout = 15 * time.Second
	}
	return &Invoker{
		providers:  providers,
		httpClient: &http.Client{Timeout: webhookTimeout},
		lora:       lora,
		logger:     log,
	}
}

// Invoke generates content via the participant's adapter. Any error or panic
// inside generation is converted into a failed Response.
func (iv *Invoker) Invoke(ctx context.Context, a *model.Adapter, req *Request) *Response {
	start := time.Now()
	resp := &Response{}

	func() {
		defer func() {
			if r := recover(); r != nil {
				resp.Success = false
				resp.Error = fmt.Sprintf("adapter panic: %v", r)
			}
		}()

		content, extra, err := iv.generate(ctx, a, req)
		if err != nil {
			resp.Error = err.Error()
			return
		}
		resp.Success = true
		resp.Content = content
		resp.Context = extra
	}()

	resp.ProcessingTimeMs = time.Since(start).Milliseconds()

	status := "success"
	if !resp.Success {
		status = "error"
	}
	metrics.RecordInvocation(string(a.Type), status, time.Since(start).Seconds())
	return resp
}

func (iv *Invoker) generate(ctx context.Context, a *model.Adapter, req *Request) (string, map[string]any, error) {
	switch cfg := a.Config.(type) {
	case model.AIAPIConfig:
		return iv.generateAI(ctx, cfg, req)
	case model.WebhookConfig:
		return iv.generateWebhook(ctx, cfg, req)
	case model.LoraPersonaConfig:
		return iv.generateLora(ctx, cfg, req)
	case model.TemplateConfig:
		return renderTemplate(cfg.Template, req), nil, nil
	default:
		return "", nil, fmt.Errorf("adapter type %q cannot generate responses", a.Type)
	}
}

func (iv *Invoker) generateAI(ctx context.Context, cfg model.AIAPIConfig, req *Request) (string, map[string]any, error) {
	client, ok := iv.providers[cfg.Provider]
	if !ok || client == nil {
		// Unrecognized providers degrade to a canned acknowledgement.
		return fmt.Sprintf("%s received the message.", req.Participant.DisplayName), nil, nil
	}

	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt(req)
	}

	resp, err := client.Complete(ctx, &llm.CompletionRequest{
		Model:        cfg.Model,
		SystemPrompt: systemPrompt,
		UserPrompt:   buildUserPrompt(req),
		MaxTokens:    cfg.MaxTokens,
		Temperature:  cfg.Temperature,
	})
	if err != nil {
		return "", nil, fmt.Errorf("%s completion: %w", cfg.Provider, err)
	}

	metrics.RecordLLMUsage(resp.Model, resp.TokensIn, resp.TokensOut)
	return resp.Content, map[string]any{
		"model":       resp.Model,
		"tokens_in":   resp.TokensIn,
		"tokens_out":  resp.TokensOut,
		"stop_reason": resp.StopReason,
	}, nil
}

func defaultSystemPrompt(req *Request) string {
	roomName := ""
	if req.Room != nil {
		roomName = req.Room.Name
	}
	return fmt.Sprintf(
		"You are %s, a participant in the chat room %q. Reply conversationally and briefly, staying in character.",
		req.Participant.DisplayName, roomName,
	)
}

// buildUserPrompt embeds the last few context messages plus the triggering
// message.
func buildUserPrompt(req *Request) string {
	var b strings.Builder

	recent := req.Context
	if len(recent) > contextMessageWindow {
		recent = recent[len(recent)-contextMessageWindow:]
	}
	if len(recent) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, m := range recent {
			fmt.Fprintf(&b, "%s: %s\n", m.SenderName, m.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%s says: %s", req.Message.SenderName, req.Message.Content)
	return b.String()
}

// webhookReply is the subset of a webhook response body the invoker reads.
type webhookReply struct {
	Content string         `json:"content"`
	Context map[string]any `json:"context"`
}

func (iv *Invoker) generateWebhook(ctx context.Context, cfg model.WebhookConfig, req *Request) (string, map[string]any, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", nil, fmt.Errorf("marshal webhook body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", nil, fmt.Errorf("build webhook request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := iv.httpClient.Do(httpReq)
	if err != nil {
		return "", nil, fmt.Errorf("webhook call: %w", err)
	}
	defer httpResp.Body.Close()

	// Non-2xx is a hard failure, not a degraded default.
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return "", nil, fmt.Errorf("webhook returned status %d", httpResp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return "", nil, fmt.Errorf("read webhook response: %w", err)
	}

	var reply webhookReply
	if len(raw) > 0 {
		// A body that is not JSON, or lacks content, falls back to the
		// default acknowledgement below.
		_ = json.Unmarshal(raw, &reply)
	}
	if reply.Content == "" {
		reply.Content = fmt.Sprintf("%s received the message.", req.Participant.DisplayName)
	}
	return reply.Content, reply.Context, nil
}

func (iv *Invoker) generateLora(ctx context.Context, cfg model.LoraPersonaConfig, req *Request) (string, map[string]any, error) {
	if iv.lora != nil {
		content, err := iv.lora.Generate(ctx, cfg, req)
		if err != nil {
			return "", nil, fmt.Errorf("lora generation: %w", err)
		}
		return content, map[string]any{"persona": cfg.PersonaName}, nil
	}
	// Placeholder pending a real local-inference integration.
	return fmt.Sprintf("[%s] %s acknowledges: %s",
		cfg.PersonaName, req.Participant.DisplayName, req.Message.Content), nil, nil
}

// renderTemplate performs a single-pass literal substitution of the fixed
// variable set. Unmatched placeholders are left as-is; substitution is not
// recursive.
func renderTemplate(template string, req *Request) string {
	roomName := ""
	if req.Room != nil {
		roomName = req.Room.Name
	}
	r := strings.NewReplacer(
		"{{senderName}}", req.Message.SenderName,
		"{{content}}", req.Message.Content,
		"{{participantName}}", req.Participant.DisplayName,
		"{{roomName}}", roomName,
	)
	return r.Replace(template)
}
