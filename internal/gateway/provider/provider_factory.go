package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"diagnoseme/internal/logger"
	"diagnoseme/internal/pkg/jsonutil"
)

type ModelCfg struct {
	ID, Provider, APIURL, APIKey, Model string
	Enabled                             bool
	Headers                             map[string]string
	SupportsVision                      bool
	ExpectJSON                          bool
	MaxRetries                          int
	Temperature                         float64
	Timeout                             time.Duration
}

type completer interface {
	Complete(ctx context.Context, payload ChatPayload) (string, error)
}

// ChatModelProvider adapts a completion client to ModelProvider and writes the
// LLM dump around each call.
type ChatModelProvider struct {
	id         string
	enabled    bool
	vision     bool
	expectJSON bool
	client     completer
}

func NewChatModelProvider(id string, enabled, vision, expectJSON bool, client completer) *ChatModelProvider {
	return &ChatModelProvider{id: id, enabled: enabled, vision: vision, expectJSON: expectJSON, client: client}
}

func (p *ChatModelProvider) ID() string           { return p.id }
func (p *ChatModelProvider) Enabled() bool        { return p.enabled }
func (p *ChatModelProvider) SupportsVision() bool { return p.vision }
func (p *ChatModelProvider) ExpectsJSON() bool    { return p.expectJSON }

func (p *ChatModelProvider) Call(ctx context.Context, payload ChatPayload) (string, error) {
	if !p.enabled {
		return "", fmt.Errorf("provider %s disabled", p.id)
	}
	if len(payload.Images) > 0 && !p.vision {
		return "", fmt.Errorf("provider %s does not accept images", p.id)
	}
	if p.expectJSON {
		payload.ExpectJSON = true
	}
	metas := make([]logger.ImageMeta, 0, len(payload.Images))
	for _, img := range payload.Images {
		metas = append(metas, logger.ImageMeta{MimeType: img.MimeType, Bytes: len(img.Data)})
	}
	logger.LogLLMRequest(p.id, payload.TraceID, payload.System, payload.User, metas, requestOptions(p.id, payload))
	out, err := p.client.Complete(ctx, payload)
	if err != nil {
		logger.LogLLMResponse(p.id, payload.TraceID, "ERROR: "+err.Error())
		return "", err
	}
	logger.LogLLMResponse(p.id, payload.TraceID, jsonutil.Pretty(out))
	return out, nil
}

// requestOptions is the non-prompt part of a call, for the payload dump.
func requestOptions(id string, payload ChatPayload) string {
	data, err := json.Marshal(map[string]any{
		"provider":    id,
		"expect_json": payload.ExpectJSON,
		"max_tokens":  payload.MaxTokens,
		"images":      len(payload.Images),
	})
	if err != nil {
		return ""
	}
	return jsonutil.Pretty(string(data))
}

// BuildProvider turns one model config into a provider. The id defaults to
// "<provider>:<model>".
func BuildProvider(m ModelCfg) (ModelProvider, error) {
	kind := strings.ToLower(strings.TrimSpace(m.Provider))
	if kind == "" {
		kind = "gemini"
	}
	id := strings.TrimSpace(m.ID)
	if id == "" {
		model := strings.TrimSpace(m.Model)
		if model == "" && kind == "gemini" {
			model = DefaultGeminiModel
		}
		id = kind
		if model != "" {
			id = fmt.Sprintf("%s:%s", kind, model)
		}
		logger.Debugf("model.id not configured, generated %s", id)
	}
	if !m.SupportsVision {
		return nil, fmt.Errorf("model %s must support vision", id)
	}
	var client completer
	switch kind {
	case "gemini", "google":
		client = &GeminiClient{
			BaseURL:      m.APIURL,
			APIKey:       m.APIKey,
			Model:        m.Model,
			Timeout:      m.Timeout,
			MaxRetries:   m.MaxRetries,
			Temperature:  m.Temperature,
			ExtraHeaders: m.Headers,
		}
	case "openai", "openai-compatible", "deepseek", "qwen", "openrouter":
		client = &OpenAIChatClient{
			BaseURL:      m.APIURL,
			APIKey:       m.APIKey,
			Model:        m.Model,
			Timeout:      m.Timeout,
			MaxRetries:   m.MaxRetries,
			Temperature:  m.Temperature,
			ExtraHeaders: m.Headers,
		}
	default:
		return nil, fmt.Errorf("unsupported model provider %q", m.Provider)
	}
	return NewChatModelProvider(id, m.Enabled, m.SupportsVision, m.ExpectJSON, client), nil
}
