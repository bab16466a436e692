package diagnosis

import (
	"encoding/json"
	"strings"

	"diagnoseme/internal/pkg/jsonutil"

	"github.com/tidwall/gjson"
)

// Result is the JSON value recovered from a model reply.
type Result struct {
	Payload json.RawMessage
	// Extracted is true when the value had to be cut out of surrounding text.
	Extracted bool
}

// ParseReply recovers the JSON payload from raw model output. A reply that is
// already valid JSON is returned unchanged. Otherwise an embedded object is
// looked for: fenced block, then the first balanced object, then the span from
// the first '{' to the last '}'. Failures come back as *ParseError carrying the
// raw text.
func ParseReply(raw string) (Result, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" && gjson.Valid(trimmed) {
		return Result{Payload: json.RawMessage(trimmed)}, nil
	}
	candidates := make([]string, 0, 2)
	if obj, ok := jsonutil.ExtractObject(trimmed); ok {
		candidates = append(candidates, obj)
	}
	if obj, ok := jsonutil.GreedyObject(trimmed); ok {
		candidates = append(candidates, obj)
	}
	if len(candidates) == 0 {
		return Result{}, &ParseError{Kind: ErrNoJSON, Raw: raw}
	}
	var lastErr error
	for _, c := range candidates {
		if gjson.Valid(c) {
			return Result{Payload: json.RawMessage(c), Extracted: true}, nil
		}
		var candidate any
		lastErr = json.Unmarshal([]byte(c), &candidate)
	}
	return Result{}, &ParseError{Kind: ErrUnparseable, Raw: raw, Err: lastErr}
}
