package jsonutil

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Pretty indents raw when it is valid JSON and returns it untouched otherwise.
func Pretty(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err != nil {
		return raw
	}
	return buf.String()
}
