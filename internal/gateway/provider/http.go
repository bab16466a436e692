package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultTimeout   = 60 * time.Second
	maxResponseBytes = 4 << 20
	maxBackoff       = 8 * time.Second
)

// postJSON sends body to url and returns the 2xx response bytes. Retryable
// statuses (429/5xx) are retried up to maxRetries times, honoring Retry-After;
// transport errors are not retried.
func postJSON(ctx context.Context, httpc *http.Client, url string, headers map[string]string, body []byte, maxRetries int) ([]byte, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := httpc.Do(req)
		if err != nil {
			return nil, err
		}
		data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		resp.Body.Close()
		if resp.StatusCode/100 == 2 {
			if readErr != nil {
				return nil, readErr
			}
			return data, nil
		}
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data, resp.Status)}
		lastErr = apiErr
		if !apiErr.Retryable() || attempt >= maxRetries {
			break
		}
		wait := retryAfter(resp.Header.Get("Retry-After"))
		if wait == 0 {
			// 0.8s, 1.6s, 3.2s ...
			wait = 800 * time.Millisecond << attempt
		}
		if wait > maxBackoff {
			wait = maxBackoff
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.Join(ctx.Err(), lastErr)
		case <-timer.C:
		}
	}
	return nil, lastErr
}

// errorMessage digs the human readable message out of an error envelope shared
// by the OpenAI and Gemini APIs ({"error":{"message":...}}).
func errorMessage(body []byte, status string) string {
	if gjson.ValidBytes(body) {
		if msg := strings.TrimSpace(gjson.GetBytes(body, "error.message").String()); msg != "" {
			return msg
		}
	}
	if status == "" {
		return "unknown error"
	}
	return status
}

func retryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// maskSecret keeps the last four characters for debug output.
func maskSecret(v string) string {
	if len(v) > 4 {
		return "****" + v[len(v)-4:]
	}
	return "****"
}

func maskHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "key") || strings.Contains(lk, "token") || strings.Contains(lk, "auth") {
			out[k] = maskSecret(v)
			continue
		}
		out[k] = v
	}
	return out
}

func joinURL(base, suffix string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	return fmt.Sprintf("%s/%s", base, strings.TrimLeft(suffix, "/"))
}
