package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

var (
	llmMu          sync.Mutex
	llmLog         *log.Logger
	llmDumpPayload bool
)

// SetLLMWriter routes model request/response dumps to w. nil disables the channel.
func SetLLMWriter(w io.Writer) {
	llmMu.Lock()
	defer llmMu.Unlock()
	if w == nil {
		llmLog = nil
		return
	}
	llmLog = log.New(w, "", log.LstdFlags)
}

// ImageMeta describes an attached image without its bytes.
type ImageMeta struct {
	MimeType string
	Bytes    int
}

type llmSection struct {
	Title string
	Body  string
}

func logLLM(kind, provider, traceID string, sections []llmSection) {
	llmMu.Lock()
	logger := llmLog
	llmMu.Unlock()
	if logger == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[LLM]")
	for _, tag := range []string{kind, provider, traceID} {
		if tag == "" {
			continue
		}
		b.WriteString("[")
		b.WriteString(tag)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := strings.TrimSpace(sec.Title)
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(t)
		b.WriteString(" ---\n")
		body := sec.Body
		b.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	logger.Print(b.String())
}

// LogLLMRequest dumps the prompt pair. Images are summarised; the payload body is
// only written when payload dumping is enabled.
func LogLLMRequest(provider, traceID, systemPrompt, userPrompt string, images []ImageMeta, payload string) {
	sections := []llmSection{
		{Title: "SYSTEM", Body: systemPrompt},
		{Title: "USER", Body: userPrompt},
	}
	for i, img := range images {
		title := fmt.Sprintf("IMAGE#%d", i+1)
		sections = append(sections, llmSection{Title: title, Body: fmt.Sprintf("mime=%s bytes=%d", img.MimeType, img.Bytes)})
	}
	if payloadDumpEnabled() && strings.TrimSpace(payload) != "" {
		sections = append(sections, llmSection{Title: "PAYLOAD", Body: payload})
	}
	logLLM("request", provider, traceID, sections)
}

func LogLLMResponse(provider, traceID, raw string) {
	sections := []llmSection{{Title: "RAW", Body: raw}}
	logLLM("response", provider, traceID, sections)
}

func EnableLLMPayloadDump(enabled bool) {
	llmMu.Lock()
	llmDumpPayload = enabled
	llmMu.Unlock()
}

func payloadDumpEnabled() bool {
	llmMu.Lock()
	defer llmMu.Unlock()
	return llmDumpPayload
}
