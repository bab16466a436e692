package sitehttp

import (
	"encoding/json"
	"net/http"
	"testing"

	"diagnoseme/internal/store/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func adminStore() *memStore {
	conf := 87.5
	return &memStore{
		diagnoses: []model.DiagnosisModel{{
			TraceID:      "t-1",
			ProviderID:   "gemini:gemini-1.5-flash",
			Prompt:       "classic",
			Status:       model.DiagnosisStatusOK,
			Condition:    "Eczema",
			Confidence:   &conf,
			Severity:     "Mild",
			Payload:      datatypes.JSON(`{"disease":"Eczema"}`),
			RawOutput:    "```json\n{\"disease\":\"Eczema\"}\n```",
			Extracted:    true,
			SchemaIssues: datatypes.JSON(`["(root): missing properties: 'severity'"]`),
		}},
		counts: map[string]int64{"Mild": 3, "Severe": 1, "weird": 2},
	}
}

func TestAdminDisabledWithoutToken(t *testing.T) {
	h := newTestServer(t, ServerConfig{Store: adminStore()})
	w := do(h, http.MethodGet, "/admin/stats.json", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRequiresToken(t *testing.T) {
	h := newTestServer(t, ServerConfig{Store: adminStore(), AdminToken: "s3cret"})
	w := do(h, http.MethodGet, "/admin/stats.json", "", "X-Admin-Token", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(h, http.MethodGet, "/admin/stats.json", "", "Authorization", "Bearer s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"severity":{"Mild":3,"Moderate":0,"Severe":1,"Unknown":2}}`, w.Body.String())
}

func TestAdminDiagnoses(t *testing.T) {
	h := newTestServer(t, ServerConfig{Store: adminStore(), AdminToken: "s3cret"})

	w := do(h, http.MethodGet, "/admin/diagnoses?limit=5", "", "X-Admin-Token", "s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Items []map[string]any `json:"items"`
		Limit int              `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 5, list.Limit)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Eczema", list.Items[0]["condition"])
	assert.NotContains(t, list.Items[0], "raw_output")

	w = do(h, http.MethodGet, "/admin/diagnoses/t-1", "", "X-Admin-Token", "s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	var one map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &one))
	assert.Equal(t, map[string]any{"disease": "Eczema"}, one["payload"])
	assert.Equal(t, []any{"(root): missing properties: 'severity'"}, one["schema_issues"])
	assert.Equal(t, 87.5, one["confidence"])

	w = do(h, http.MethodGet, "/admin/diagnoses/nope", "", "X-Admin-Token", "s3cret")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminStatsChart(t *testing.T) {
	h := newTestServer(t, ServerConfig{Store: adminStore(), AdminToken: "s3cret"})
	w := do(h, http.MethodGet, "/admin/stats", "", "X-Admin-Token", "s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Diagnoses by severity")
	assert.Contains(t, w.Body.String(), "echarts")
}

func TestQueryInt(t *testing.T) {
	h := newTestServer(t, ServerConfig{Store: adminStore(), AdminToken: "s3cret"})
	w := do(h, http.MethodGet, "/admin/diagnoses?limit=-4&offset=abc", "", "X-Admin-Token", "s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"limit":50`)
	assert.Contains(t, w.Body.String(), `"offset":0`)
}
