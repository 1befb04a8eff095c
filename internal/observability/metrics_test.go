package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/cookgpt-backend/internal/generation"
)

func TestObserveGeneration(t *testing.T) {
	m := NewMetrics()
	m.ObserveGeneration("fake", time.Second, generation.Usage{PromptTokens: 12, CompletionTokens: 30}, nil)
	m.ObserveGeneration("fake", time.Second, generation.Usage{PromptTokens: 5}, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues("fake", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues("fake", "error")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.generationTokens.WithLabelValues("fake", "prompt")))
	assert.Equal(t, 30.0, testutil.ToFloat64(m.generationTokens.WithLabelValues("fake", "completion")))
}

func TestHandlerExposesAPIMetrics(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("GET", "/api/threads", "200", 20*time.Millisecond)
	m.IncBudgetPlaceholder()
	m.ObserveStreamRead("ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `cookgpt_api_requests_total{method="GET",route="/api/threads",status="200"} 1`)
	assert.Contains(t, body, "cookgpt_budget_placeholders_total 1")
	assert.Contains(t, body, `cookgpt_stream_reads_total{outcome="ok"} 1`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", "200", time.Millisecond)
	m.ObserveGeneration("fake", time.Second, generation.Usage{}, nil)
	m.ApiInflightInc()
	m.ApiInflightDec()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
