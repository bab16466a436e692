package provider

import (
	"context"
	"encoding/base64"
	"fmt"
)

// ImagePayload is an inline image handed to a vision model.
type ImagePayload struct {
	Data        []byte
	MimeType    string
	Description string
}

// Base64 returns the standard base64 encoding of the image bytes.
func (p ImagePayload) Base64() string {
	return base64.StdEncoding.EncodeToString(p.Data)
}

// DataURI renders the image as a data: URI for OpenAI-style content parts.
func (p ImagePayload) DataURI() string {
	mime := p.MimeType
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + p.Base64()
}

type ChatPayload struct {
	System     string
	User       string
	Images     []ImagePayload
	ExpectJSON bool
	MaxTokens  int
	// TraceID tags LLM dump entries; it is never sent upstream.
	TraceID string
}

type ModelProvider interface {
	ID() string
	Enabled() bool
	SupportsVision() bool
	ExpectsJSON() bool

	Call(ctx context.Context, payload ChatPayload) (string, error)
}

// APIError is a non-2xx reply from the model endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status=%d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether the status is worth another attempt.
func (e *APIError) Retryable() bool {
	switch e.StatusCode {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}
