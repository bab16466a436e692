package diagnosis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"diagnoseme/internal/gateway/provider"
	"diagnoseme/internal/logger"
	"diagnoseme/internal/metrics"
	"diagnoseme/internal/pkg/text"
	"diagnoseme/internal/prompt"
	"diagnoseme/internal/store/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Recorder persists finished diagnoses.
type Recorder interface {
	SaveDiagnosis(ctx context.Context, rec *model.DiagnosisModel) error
}

type Options struct {
	// PromptName selects the catalog template; empty uses the catalog default.
	PromptName  string
	DefaultMime string
	MaxTokens   int
	Recorder    Recorder
	Schema      *SchemaChecker
}

// Service runs one image through the model and recovers the JSON it returns.
type Service struct {
	provider    provider.ModelProvider
	prompts     prompt.Source
	promptName  string
	defaultMime string
	maxTokens   int
	recorder    Recorder
	schema      *SchemaChecker
	now         func() time.Time
}

func NewService(p provider.ModelProvider, prompts prompt.Source, opts Options) (*Service, error) {
	if p == nil {
		return nil, fmt.Errorf("diagnosis: model provider is required")
	}
	if prompts == nil || prompts.Catalog() == nil {
		return nil, fmt.Errorf("diagnosis: prompt catalog is required")
	}
	if _, err := prompts.Catalog().Get(opts.PromptName); err != nil {
		return nil, err
	}
	mime := strings.TrimSpace(opts.DefaultMime)
	if mime == "" {
		mime = DefaultMimeType
	}
	schema := opts.Schema
	if schema == nil {
		schema = NewSchemaChecker()
	}
	return &Service{
		provider:    p,
		prompts:     prompts,
		promptName:  strings.TrimSpace(opts.PromptName),
		defaultMime: mime,
		maxTokens:   opts.MaxTokens,
		recorder:    opts.Recorder,
		schema:      schema,
		now:         time.Now,
	}, nil
}

type Request struct {
	ImageBase64 string
	// TraceID is generated when empty.
	TraceID string
}

type Outcome struct {
	TraceID      string
	ProviderID   string
	PromptName   string
	Raw          string
	Result       Result
	Summary      Summary
	SchemaIssues []string
	Duration     time.Duration
}

// Diagnose returns ErrNoImage or ErrInvalidImage for bad input, *ModelError
// when the upstream call fails and *ParseError when no JSON can be recovered.
// Outcome is populated as far as processing got, even on error.
func (s *Service) Diagnose(ctx context.Context, req Request) (Outcome, error) {
	out := Outcome{TraceID: strings.TrimSpace(req.TraceID), ProviderID: s.provider.ID()}
	if out.TraceID == "" {
		out.TraceID = uuid.NewString()
	}
	img, err := DecodeImage(req.ImageBase64, s.defaultMime)
	if err != nil {
		return out, err
	}
	tpl, err := s.prompts.Catalog().Get(s.promptName)
	if err != nil {
		return out, err
	}
	out.PromptName = tpl.Name
	rendered, err := tpl.Render()
	if err != nil {
		return out, err
	}

	start := s.now()
	raw, callErr := s.provider.Call(ctx, provider.ChatPayload{
		System:    rendered.System,
		User:      rendered.User,
		Images:    []provider.ImagePayload{{Data: img.Data, MimeType: img.MimeType, Description: "uploaded image"}},
		MaxTokens: s.maxTokens,
		TraceID:   out.TraceID,
	})
	out.Duration = s.now().Sub(start)
	out.Raw = raw

	rec := &model.DiagnosisModel{
		TraceID:    out.TraceID,
		ProviderID: out.ProviderID,
		Prompt:     tpl.Name,
		ImageBytes: len(img.Data),
		ImageMime:  img.MimeType,
		DurationMs: out.Duration.Milliseconds(),
		CreatedAt:  start,
	}

	if callErr != nil {
		metrics.ModelCallDuration.WithLabelValues(out.ProviderID, "error").Observe(out.Duration.Seconds())
		rec.Status = model.DiagnosisStatusModelError
		rec.Error = callErr.Error()
		s.record(ctx, rec)
		logger.Warnf("diagnosis %s: model call failed: %v", out.TraceID, callErr)
		return out, &ModelError{ProviderID: out.ProviderID, Err: callErr}
	}
	metrics.ModelCallDuration.WithLabelValues(out.ProviderID, "ok").Observe(out.Duration.Seconds())

	rec.RawOutput = raw
	result, parseErr := ParseReply(raw)
	if parseErr != nil {
		rec.Status = model.DiagnosisStatusParseError
		if errors.Is(parseErr, ErrNoJSON) {
			rec.Status = model.DiagnosisStatusNoJSON
		}
		rec.Error = parseErr.Error()
		s.record(ctx, rec)
		logger.Warnf("diagnosis %s: %v (raw=%q)", out.TraceID, parseErr, text.Truncate(raw, 160))
		return out, parseErr
	}
	out.Result = result
	out.Summary = Summarize(result.Payload)
	metrics.DiagnosisSeverity.WithLabelValues(out.Summary.Severity).Inc()

	issues, err := s.schema.Check(tpl, result.Payload)
	if err != nil {
		logger.Debugf("diagnosis %s: schema check skipped: %v", out.TraceID, err)
	}
	out.SchemaIssues = issues
	if len(issues) > 0 {
		logger.Infof("diagnosis %s: payload deviates from %s schema: %s", out.TraceID, tpl.Name, strings.Join(issues, "; "))
	}

	rec.Status = model.DiagnosisStatusOK
	rec.Payload = datatypes.JSON(result.Payload)
	rec.Extracted = result.Extracted
	rec.Condition = out.Summary.Condition
	rec.Confidence = out.Summary.Confidence
	rec.Severity = out.Summary.Severity
	if len(issues) > 0 {
		if data, err := json.Marshal(issues); err == nil {
			rec.SchemaIssues = datatypes.JSON(data)
		}
	}
	s.record(ctx, rec)

	logger.With("trace_id", out.TraceID, "provider", out.ProviderID, "prompt", tpl.Name).Info("diagnosis completed",
		"condition", out.Summary.Condition,
		"severity", out.Summary.Severity,
		"extracted", result.Extracted,
		"duration_ms", out.Duration.Milliseconds(),
	)
	return out, nil
}

func (s *Service) record(ctx context.Context, rec *model.DiagnosisModel) {
	if s.recorder == nil {
		return
	}
	// Persist even when the client has already gone away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.recorder.SaveDiagnosis(ctx, rec); err != nil {
		logger.Errorf("diagnosis %s: persist failed: %v", rec.TraceID, err)
	}
}
