package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"diagnoseme/internal/logger"

	"github.com/tidwall/gjson"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel   = "gemini-1.5-flash"
)

// GeminiClient calls the Generative Language REST API (models/*:generateContent).
type GeminiClient struct {
	BaseURL      string
	APIKey       string
	Model        string
	Timeout      time.Duration
	MaxRetries   int
	Temperature  float64
	ExtraHeaders map[string]string
	HTTPClient   *http.Client
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

func (c *GeminiClient) model() string {
	if m := strings.TrimSpace(c.Model); m != "" {
		return strings.TrimPrefix(m, "models/")
	}
	return DefaultGeminiModel
}

func (c *GeminiClient) endpoint() string {
	base := c.BaseURL
	if strings.TrimSpace(base) == "" {
		base = DefaultGeminiBaseURL
	}
	return joinURL(base, "models/"+c.model()+":generateContent")
}

func (c *GeminiClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func (c *GeminiClient) buildBody(payload ChatPayload) ([]byte, error) {
	// prompt first, then the images, like the JS SDK's generateContent([prompt, ...images])
	parts := []geminiPart{{Text: payload.User}}
	for _, img := range payload.Images {
		mime := img.MimeType
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{MimeType: mime, Data: img.Base64()}})
	}
	req := geminiRequest{Contents: []geminiContent{{Role: "user", Parts: parts}}}
	if s := strings.TrimSpace(payload.System); s != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: s}}}
	}
	gen := geminiGenerationConfig{MaxOutputTokens: payload.MaxTokens}
	if c.Temperature > 0 {
		t := c.Temperature
		gen.Temperature = &t
	}
	if payload.ExpectJSON {
		gen.ResponseMimeType = "application/json"
	}
	if gen != (geminiGenerationConfig{}) {
		req.GenerationConfig = &gen
	}
	return json.Marshal(req)
}

func (c *GeminiClient) headers() map[string]string {
	h := make(map[string]string, len(c.ExtraHeaders)+1)
	if c.APIKey != "" {
		h["x-goog-api-key"] = c.APIKey
	}
	for k, v := range c.ExtraHeaders {
		h[k] = v
	}
	return h
}

// Complete runs one generateContent call and returns the concatenated text
// parts of the first candidate.
func (c *GeminiClient) Complete(ctx context.Context, payload ChatPayload) (string, error) {
	body, err := c.buildBody(payload)
	if err != nil {
		return "", err
	}
	url := c.endpoint()
	headers := c.headers()
	logger.Debugf("[AI] request: POST %s, headers=%v, images=%d", url, maskHeaders(headers), len(payload.Images))

	data, err := postJSON(ctx, c.httpClient(), url, headers, body, c.MaxRetries)
	if err != nil {
		return "", err
	}
	return geminiText(data)
}

func geminiText(data []byte) (string, error) {
	if !gjson.ValidBytes(data) {
		return "", fmt.Errorf("invalid generateContent response")
	}
	parsed := gjson.ParseBytes(data)
	candidates := parsed.Get("candidates")
	if !candidates.IsArray() || len(candidates.Array()) == 0 {
		if reason := parsed.Get("promptFeedback.blockReason").String(); reason != "" {
			return "", fmt.Errorf("prompt blocked: %s", reason)
		}
		return "", fmt.Errorf("empty candidates")
	}
	var b strings.Builder
	for _, part := range candidates.Get("0.content.parts").Array() {
		b.WriteString(part.Get("text").String())
	}
	if b.Len() == 0 {
		if reason := candidates.Get("0.finishReason").String(); reason != "" && reason != "STOP" {
			return "", fmt.Errorf("no text returned (finishReason=%s)", reason)
		}
	}
	return b.String(), nil
}
