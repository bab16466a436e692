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

// OpenAIChatClient talks to OpenAI-compatible /chat/completions endpoints
// (OpenAI, DeepSeek, Qwen, OpenRouter ...). Images are sent as image_url parts.
type OpenAIChatClient struct {
	BaseURL      string
	APIKey       string
	Model        string
	Timeout      time.Duration
	MaxRetries   int
	Temperature  float64
	ExtraHeaders map[string]string
	HTTPClient   *http.Client
}

func (c *OpenAIChatClient) endpoint() string {
	url := c.BaseURL
	if strings.TrimSpace(url) == "" {
		url = "https://api.openai.com/v1"
	}
	url = strings.TrimRight(url, "/")
	// tolerate configs that already include the full path
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/chat/completions"
}

func (c *OpenAIChatClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func (c *OpenAIChatClient) buildBody(payload ChatPayload) ([]byte, error) {
	messages := make([]map[string]any, 0, 2)
	if strings.TrimSpace(payload.System) != "" {
		messages = append(messages, map[string]any{"role": "system", "content": payload.System})
	}
	parts := []map[string]any{{"type": "text", "text": payload.User}}
	for _, img := range payload.Images {
		parts = append(parts, map[string]any{
			"type":      "image_url",
			"image_url": map[string]string{"url": img.DataURI()},
		})
	}
	messages = append(messages, map[string]any{"role": "user", "content": parts})

	body := map[string]any{"model": c.Model, "messages": messages}
	if c.Temperature > 0 {
		body["temperature"] = c.Temperature
	}
	if payload.MaxTokens > 0 {
		body["max_tokens"] = payload.MaxTokens
	}
	if payload.ExpectJSON {
		body["response_format"] = map[string]string{"type": "json_object"}
	}
	return json.Marshal(body)
}

func (c *OpenAIChatClient) headers() map[string]string {
	h := make(map[string]string, len(c.ExtraHeaders)+1)
	if c.APIKey != "" {
		h["Authorization"] = "Bearer " + c.APIKey
	}
	for k, v := range c.ExtraHeaders {
		h[k] = v
	}
	return h
}

// Complete sends a single chat completion and returns the first choice text.
func (c *OpenAIChatClient) Complete(ctx context.Context, payload ChatPayload) (string, error) {
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
	if !gjson.ValidBytes(data) {
		return "", fmt.Errorf("invalid completion response")
	}
	choices := gjson.GetBytes(data, "choices")
	if !choices.IsArray() || len(choices.Array()) == 0 {
		return "", fmt.Errorf("empty choices")
	}
	return choices.Get("0.message.content").String(), nil
}
