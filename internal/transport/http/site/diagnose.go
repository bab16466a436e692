package sitehttp

import (
	"errors"
	"html/template"
	"net/http"

	"diagnoseme/internal/diagnosis"
	"diagnoseme/internal/logger"
	"diagnoseme/internal/metrics"

	"github.com/gin-gonic/gin"
)

const (
	diagnosePath = "/api/diagnose"

	errMethodNotAllowed = "Method not allowed"
	errNoImage          = "No image provided"
	errInvalidImage     = "Invalid image data"
	errImageTooLarge    = "Image too large"
	errUnparseable      = "Failed to parse response from AI model"
	errNoJSON           = "AI response was not in the expected format"
	errProcessing       = "Failed to process the image"
)

type handlers struct {
	cfg   ServerConfig
	pages map[string]*template.Template
}

type diagnoseRequest struct {
	ImageBase64 string `json:"imageBase64"`
}

// handleDiagnose answers with the model's JSON exactly as recovered, or an
// error object. Parse failures echo the raw model text as rawResponse.
func (h *handlers) handleDiagnose(c *gin.Context) {
	var req diagnoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isTooLarge(err) {
			abortTooLarge(c, errImageTooLarge)
			return
		}
		metrics.DiagnoseRequests.WithLabelValues(metrics.OutcomeNoImage).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": errNoImage})
		return
	}

	out, err := h.cfg.Diagnoser.Diagnose(c.Request.Context(), diagnosis.Request{
		ImageBase64: req.ImageBase64,
		TraceID:     requestIDFrom(c),
	})
	if err != nil {
		h.writeDiagnoseError(c, err)
		return
	}
	metrics.DiagnoseRequests.WithLabelValues(metrics.OutcomeOK).Inc()
	c.Data(http.StatusOK, "application/json; charset=utf-8", out.Result.Payload)
}

func (h *handlers) writeDiagnoseError(c *gin.Context, err error) {
	var parseErr *diagnosis.ParseError
	switch {
	case errors.Is(err, diagnosis.ErrNoImage):
		metrics.DiagnoseRequests.WithLabelValues(metrics.OutcomeNoImage).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": errNoImage})
	case errors.Is(err, diagnosis.ErrInvalidImage):
		metrics.DiagnoseRequests.WithLabelValues(metrics.OutcomeBadImage).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidImage})
	case errors.As(err, &parseErr) && errors.Is(err, diagnosis.ErrNoJSON):
		metrics.DiagnoseRequests.WithLabelValues(metrics.OutcomeNoJSON).Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": errNoJSON, "rawResponse": parseErr.Raw})
	case errors.As(err, &parseErr):
		metrics.DiagnoseRequests.WithLabelValues(metrics.OutcomeParseError).Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": errUnparseable, "rawResponse": parseErr.Raw})
	default:
		logger.Errorf("diagnose %s failed: %v", requestIDFrom(c), err)
		metrics.DiagnoseRequests.WithLabelValues(metrics.OutcomeModelError).Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": errProcessing})
	}
}
