package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for DiagnoseRequests.
const (
	OutcomeOK          = "ok"
	OutcomeNoImage     = "no_image"
	OutcomeBadImage    = "invalid_image"
	OutcomeTooLarge    = "too_large"
	OutcomeRateLimited = "rate_limited"
	OutcomeParseError  = "parse_error"
	OutcomeNoJSON      = "no_json"
	OutcomeModelError  = "model_error"
)

var (
	DiagnoseRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagnoseme_diagnose_requests_total",
			Help: "Diagnose API requests by outcome",
		},
		[]string{"outcome"},
	)

	ModelCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "diagnoseme_model_call_duration_seconds",
			Help:    "Latency of the upstream model call",
			Buckets: []float64{0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"provider", "status"},
	)

	DiagnosisSeverity = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagnoseme_diagnosis_severity_total",
			Help: "Parsed diagnoses by normalised severity",
		},
		[]string{"severity"},
	)

	ContactMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagnoseme_contact_messages_total",
			Help: "Contact form submissions by status",
		},
		[]string{"status"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagnoseme_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)
)
