package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestSetLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)
	SetLevel("info")
	defer SetLevel("info")

	Debugf("hidden %d", 1)
	Infof("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 2")
	assert.Equal(t, "info", Level())
}

func TestLLMDumpSummarisesImages(t *testing.T) {
	var buf bytes.Buffer
	SetLLMWriter(&buf)
	defer SetLLMWriter(nil)

	LogLLMRequest("gemini:gemini-1.5-flash", "trace-1", "sys", "describe", []ImageMeta{{MimeType: "image/png", Bytes: 42}}, `{"secret":"data"}`)
	LogLLMResponse("gemini:gemini-1.5-flash", "trace-1", `{"disease":"Eczema"}`)

	out := buf.String()
	assert.Contains(t, out, "[LLM][request][gemini:gemini-1.5-flash][trace-1]")
	assert.Contains(t, out, "mime=image/png bytes=42")
	assert.NotContains(t, out, "secret", "payload must stay hidden unless dumping is enabled")
	assert.Equal(t, 2, strings.Count(out, "====="))
}

func TestLLMDumpPayloadWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	SetLLMWriter(&buf)
	EnableLLMPayloadDump(true)
	defer func() {
		SetLLMWriter(nil)
		EnableLLMPayloadDump(false)
	}()

	LogLLMRequest("p", "", "", "u", nil, `{"k":1}`)
	assert.Contains(t, buf.String(), "--- PAYLOAD ---")
}
