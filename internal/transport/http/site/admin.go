package sitehttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"diagnoseme/internal/diagnosis"
	"diagnoseme/internal/store"
	"diagnoseme/internal/store/model"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

var severityOrder = []string{
	diagnosis.SeverityMild,
	diagnosis.SeverityModerate,
	diagnosis.SeveritySevere,
	diagnosis.SeverityUnknown,
}

var severityColors = map[string]string{
	diagnosis.SeverityMild:     "#22c55e",
	diagnosis.SeverityModerate: "#f59e0b",
	diagnosis.SeveritySevere:   "#ef4444",
	diagnosis.SeverityUnknown:  "#9ca3af",
}

func (h *handlers) registerAdmin(group *gin.RouterGroup) {
	group.GET("/diagnoses", h.handleListDiagnoses)
	group.GET("/diagnoses/:id", h.handleDiagnosisByID)
	group.GET("/contacts", h.handleListContacts)
	group.GET("/stats", h.handleStatsChart)
	group.GET("/stats.json", h.handleStatsJSON)
}

type diagnosisView struct {
	TraceID      string          `json:"trace_id"`
	ProviderID   string          `json:"provider_id"`
	Prompt       string          `json:"prompt"`
	Status       string          `json:"status"`
	Condition    string          `json:"condition,omitempty"`
	Confidence   *float64        `json:"confidence,omitempty"`
	Severity     string          `json:"severity,omitempty"`
	Extracted    bool            `json:"extracted"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	RawOutput    string          `json:"raw_output,omitempty"`
	SchemaIssues []string        `json:"schema_issues,omitempty"`
	Error        string          `json:"error,omitempty"`
	ImageBytes   int             `json:"image_bytes"`
	ImageMime    string          `json:"image_mime"`
	DurationMs   int64           `json:"duration_ms"`
	CreatedAt    string          `json:"created_at"`
}

func toDiagnosisView(rec model.DiagnosisModel, detail bool) diagnosisView {
	v := diagnosisView{
		TraceID:    rec.TraceID,
		ProviderID: rec.ProviderID,
		Prompt:     rec.Prompt,
		Status:     string(rec.Status),
		Condition:  rec.Condition,
		Confidence: rec.Confidence,
		Severity:   rec.Severity,
		Extracted:  rec.Extracted,
		Error:      rec.Error,
		ImageBytes: rec.ImageBytes,
		ImageMime:  rec.ImageMime,
		DurationMs: rec.DurationMs,
	}
	if !rec.CreatedAt.IsZero() {
		v.CreatedAt = rec.CreatedAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	if detail {
		v.RawOutput = rec.RawOutput
		if len(rec.Payload) > 0 {
			v.Payload = json.RawMessage(rec.Payload)
		}
		if len(rec.SchemaIssues) > 0 {
			_ = json.Unmarshal(rec.SchemaIssues, &v.SchemaIssues)
		}
	}
	return v
}

func (h *handlers) handleListDiagnoses(c *gin.Context) {
	q := store.ListQuery{
		Limit:    queryInt(c, "limit", 50),
		Offset:   queryInt(c, "offset", 0),
		Status:   strings.TrimSpace(c.Query("status")),
		Severity: strings.TrimSpace(c.Query("severity")),
	}
	rows, err := h.cfg.Store.ListDiagnoses(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	items := make([]diagnosisView, 0, len(rows))
	for _, r := range rows {
		items = append(items, toDiagnosisView(r, false))
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "limit": q.Limit, "offset": q.Offset})
}

func (h *handlers) handleDiagnosisByID(c *gin.Context) {
	rec, err := h.cfg.Store.GetDiagnosis(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "diagnosis not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toDiagnosisView(*rec, true))
}

func (h *handlers) handleListContacts(c *gin.Context) {
	rows, err := h.cfg.Store.ListContacts(c.Request.Context(), queryInt(c, "limit", 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	items := make([]gin.H, 0, len(rows))
	for _, r := range rows {
		items = append(items, gin.H{
			"id":             r.ID,
			"name":           r.Name,
			"email":          r.Email,
			"subject":        r.Subject,
			"message":        r.Message,
			"delivered":      r.Delivered,
			"delivery_error": r.DeliveryError,
			"created_at":     r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *handlers) severityCounts(c *gin.Context) (map[string]int64, bool) {
	counts, err := h.cfg.Store.SeverityCounts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	out := make(map[string]int64, len(severityOrder))
	for _, sev := range severityOrder {
		out[sev] = 0
	}
	for sev, n := range counts {
		if _, known := out[sev]; !known {
			sev = diagnosis.SeverityUnknown
		}
		out[sev] += n
	}
	return out, true
}

func (h *handlers) handleStatsJSON(c *gin.Context) {
	counts, ok := h.severityCounts(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"severity": counts})
}

// handleStatsChart renders the severity distribution as a standalone page.
func (h *handlers) handleStatsChart(c *gin.Context) {
	counts, ok := h.severityCounts(c)
	if !ok {
		return
	}
	var total int64
	data := make([]opts.BarData, 0, len(severityOrder))
	for _, sev := range severityOrder {
		total += counts[sev]
		data = append(data, opts.BarData{
			Name:      sev,
			Value:     counts[sev],
			ItemStyle: &opts.ItemStyle{Color: severityColors[sev]},
		})
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: h.cfg.Site.Name + " | Severity",
			Width:     "900px",
			Height:    "480px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Diagnoses by severity",
			Subtitle: fmt.Sprintf("%d successful diagnoses", total),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "count"}),
	)
	bar.SetXAxis(severityOrder).AddSeries("diagnoses", data)
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := bar.Render(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
