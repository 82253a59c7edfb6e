package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidity-mcs/internal/config"
	"liquidity-mcs/internal/runner"
	"liquidity-mcs/internal/simulation"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Simulation: config.SimulationConfig{DefaultTrials: 200, DefaultSeed: 11, MaxTrials: 1000},
		HTTP:       config.HTTPConfig{Env: "test", CORSOrigins: []string{"https://dash.example"}},
	}
}

func testEngine() *simulation.Engine {
	return simulation.NewEngine(simulation.WithWorkers(2), simulation.WithAttributionTrials(0))
}

const validBody = `{
  "project": {"name": "api", "start_month": "2025-01", "duration_months": 3},
  "policy": {"max_throttle_pct_per_month": 0.3, "friction_multiplier": 1.1},
  "risk": {
    "market": {"volatility_class": "med"},
    "execution": {"schedule_confidence": 0.8, "contractor_reliability": "med"},
    "funding": {"collection_efficiency": 0.95}
  },
  "allocation_planned": [
    {"month": "2025-01", "amount": 120}, {"month": "2025-02", "amount": 120}, {"month": "2025-03", "amount": 120}
  ],
  "outflow_planned": [
    {"month": "2025-01", "service": 50, "material": 50},
    {"month": "2025-02", "service": 50, "material": 50},
    {"month": "2025-03", "service": 50, "material": 50}
  ]
}`

func post(t *testing.T, h http.Handler, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	router := NewRouter(testConfig(), testEngine())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSimulate_OK(t *testing.T) {
	router := NewRouter(testConfig(), testEngine())
	w := post(t, router, "/api/v1/simulate", "application/json", validBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp simulation.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Len(t, resp.Months, 3)
	assert.Equal(t, 200, resp.KPIs.Diagnostics.Trials)
	assert.Equal(t, int64(11), resp.KPIs.Diagnostics.Seed)
	assert.NotNil(t, resp.BreachRadar)
}

func TestSimulate_YAMLBody(t *testing.T) {
	yamlBody := `
project: {name: yaml, start_month: "2025-01", duration_months: 1}
policy: {max_throttle_pct_per_month: 0.2, friction_multiplier: 1.1}
risk:
  market: {volatility_class: low}
  execution: {schedule_confidence: 1, contractor_reliability: high}
  funding: {collection_efficiency: 1}
allocation_planned: [{month: "2025-01", amount: 10}]
outflow_planned: [{month: "2025-01", service: 5}]
`
	router := NewRouter(testConfig(), testEngine())
	w := post(t, router, "/api/v1/simulate", "application/yaml", yamlBody)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestSimulate_MalformedJSON(t *testing.T) {
	router := NewRouter(testConfig(), testEngine())
	w := post(t, router, "/api/v1/simulate", "application/json", `{"project": `)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeInvalidRequest, decodeError(t, w).Error.Code)
}

func TestSimulate_ValidationFailed(t *testing.T) {
	body := strings.Replace(validBody, `"friction_multiplier": 1.1`, `"friction_multiplier": 0.5`, 1)
	router := NewRouter(testConfig(), testEngine())
	w := post(t, router, "/api/v1/simulate", "application/json", body)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp struct {
		Error struct {
			Code    string                       `json:"code"`
			Details []simulation.ValidationError `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, CodeValidationFailed, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "policy.friction_multiplier", resp.Error.Details[0].Field)
}

type failingSim struct{ err error }

func (f failingSim) Run(context.Context, simulation.Request) (simulation.Response, error) {
	return simulation.Response{}, f.err
}

func TestSimulate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"superseded", runner.ErrSuperseded, http.StatusConflict, CodeSuperseded},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable, CodeCancelled},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(testConfig(), failingSim{err: tt.err})
			w := post(t, router, "/api/v1/simulate", "application/json", validBody)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Error.Code)
		})
	}
}

func TestValidate(t *testing.T) {
	router := NewRouter(testConfig(), testEngine())

	w := post(t, router, "/api/v1/validate", "application/json", validBody)
	require.Equal(t, http.StatusOK, w.Code)
	var ok ValidateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ok))
	assert.True(t, ok.Valid)
	assert.Equal(t, []string{"2025-01", "2025-02", "2025-03"}, ok.Horizon)

	bad := strings.Replace(validBody, `"duration_months": 3`, `"duration_months": 0`, 1)
	w = post(t, router, "/api/v1/validate", "application/json", bad)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRecovery(t *testing.T) {
	router := NewRouter(testConfig(), testEngine())
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, CodeInternal, resp.Error.Code)
	assert.Equal(t, "boom", resp.Error.Message)
}

func TestNotFound(t *testing.T) {
	router := NewRouter(testConfig(), testEngine())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nothing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_CORS(t *testing.T) {
	cfg := testConfig()
	h := Handler(cfg, NewRouter(cfg, testEngine()))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/simulate", bytes.NewReader(nil))
	req.Header.Set("Origin", "https://dash.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "https://dash.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, w.Code)
}
