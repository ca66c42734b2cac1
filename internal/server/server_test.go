package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/salary-insights/internal/aggregate"
	"github.com/jonathan/salary-insights/internal/assistant"
	"github.com/jonathan/salary-insights/internal/dataset"
	"github.com/jonathan/salary-insights/internal/db"
	"github.com/jonathan/salary-insights/internal/llm"
	"github.com/jonathan/salary-insights/internal/server/middleware"
	"github.com/jonathan/salary-insights/internal/server/ratelimit"
	"github.com/jonathan/salary-insights/internal/strategy"
	"github.com/jonathan/salary-insights/internal/types"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// mockDataset serves a fixed snapshot.
type mockDataset struct {
	mu        sync.Mutex
	records   []dataset.Record
	err       error
	reloadErr error
	loadedAt  time.Time
	reloads   int
}

func (m *mockDataset) Records(context.Context) ([]dataset.Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

func (m *mockDataset) Reload(context.Context) ([]dataset.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloads++
	if m.reloadErr != nil {
		return nil, m.reloadErr
	}
	m.loadedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return m.records, nil
}

func (m *mockDataset) Loaded() bool        { return m.err == nil }
func (m *mockDataset) LoadedAt() time.Time { return m.loadedAt }

// mockModel replies with canned text and records prompts.
type mockModel struct {
	reply   string
	err     error
	prompts []string
}

func (m *mockModel) Generate(_ context.Context, prompt string) (*llm.Completion, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return nil, m.err
	}
	return &llm.Completion{Text: m.reply}, nil
}

func (m *mockModel) Provider() llm.Provider { return llm.ProviderGemini }
func (m *mockModel) Model() string          { return "mock" }
func (m *mockModel) Close() error           { return nil }

func sampleRecords() []dataset.Record {
	return []dataset.Record{
		{"Job": "Treasury Analyst", "FAMILY": "Treasury", "Level": "Team Member", "country": "Poland", "Base Salary-Average": 100000},
		{"Job": "Treasury Director", "FAMILY": "Treasury", "Level": "Director", "country": "Germany", "Base Salary-Average": 250000},
		{"Job": "Operations Analyst", "FAMILY": "Operations", "Level": "Team Member", "country": "Poland", "Base Salary-Average": 80000},
	}
}

func newTestServer(data Dataset, model llm.Client) *Server {
	return New(Options{
		Port:      0,
		RateLimit: &ratelimit.Config{Enabled: false},
		Env:       EnvReport{StoreDriver: "postgres", Provider: "gemini", APIKeyConfigured: true, APIKeyLength: 39},
	}, data, assistant.New(model))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp types.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestChat_Success(t *testing.T) {
	model := &mockModel{reply: "| Job | Salary |\n|---|---|\n| Treasury Director | 250,000 |\n| Treasury Analyst | 100,000 |"}
	s := newTestServer(&mockDataset{records: sampleRecords()}, model)

	rec := do(t, s.Handler(), http.MethodPost, "/api/chat", `{"message":"What is the average salary?"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp types.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.reply, resp.Response)
	require.NotNil(t, resp.Formatted)
	assert.Equal(t, "table", string(resp.Formatted.Kind))
	require.NotNil(t, resp.Strategy)
	assert.Equal(t, strategy.RationaleStatistical, resp.Strategy.Rationale)
	assert.Equal(t, 3, resp.Strategy.Count)

	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "User question: What is the average salary?")
}

func TestChat_AppliesContextFilters(t *testing.T) {
	model := &mockModel{reply: "ok"}
	s := newTestServer(&mockDataset{records: sampleRecords()}, model)

	body := `{"message":"overview","context":{"filters":{"families":["Operations"]}}}`
	rec := do(t, s.Handler(), http.MethodPost, "/api/chat", body)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "DATASET: 1 of 1 job positions")
	assert.NotContains(t, model.prompts[0], "Treasury Director")
}

func TestChat_MissingMessage(t *testing.T) {
	s := newTestServer(&mockDataset{records: sampleRecords()}, &mockModel{reply: "x"})

	for _, body := range []string{`{}`, `{"message":"   "}`, `{"context":{}}`} {
		rec := do(t, s.Handler(), http.MethodPost, "/api/chat", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "message is required", decodeError(t, rec))
	}
}

func TestChat_InvalidJSON(t *testing.T) {
	s := newTestServer(&mockDataset{records: sampleRecords()}, &mockModel{reply: "x"})

	rec := do(t, s.Handler(), http.MethodPost, "/api/chat", `{"message":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decodeError(t, rec))
}

func TestChat_MethodNotAllowed(t *testing.T) {
	s := newTestServer(&mockDataset{records: sampleRecords()}, &mockModel{reply: "x"})

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := do(t, s.Handler(), method, "/api/chat", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.Equal(t, "Method not allowed", decodeError(t, rec))
	}
}

func TestChat_Preflight(t *testing.T) {
	s := newTestServer(&mockDataset{records: sampleRecords()}, &mockModel{reply: "x"})

	rec := do(t, s.Handler(), http.MethodOptions, "/api/chat", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestChat_NotConfigured(t *testing.T) {
	s := newTestServer(&mockDataset{records: sampleRecords()}, nil)

	rec := do(t, s.Handler(), http.MethodPost, "/api/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeError(t, rec), "not configured")
}

func TestChat_NotConfiguredCheckedBeforeDataset(t *testing.T) {
	data := &mockDataset{err: &db.DataUnavailableError{Message: "count failed"}}
	s := newTestServer(data, nil)

	rec := do(t, s.Handler(), http.MethodPost, "/api/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "The assistant is not configured: llm.api_key is not set.", decodeError(t, rec))
}

func TestChat_UpstreamFailure(t *testing.T) {
	model := &mockModel{err: &llm.UpstreamError{Provider: llm.ProviderGemini, StatusCode: 503, Cause: errors.New("overloaded")}}
	s := newTestServer(&mockDataset{records: sampleRecords()}, model)

	rec := do(t, s.Handler(), http.MethodPost, "/api/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "The model provider returned status 503.", decodeError(t, rec))
}

func TestChat_RefusalFallsBack(t *testing.T) {
	model := &mockModel{err: &llm.RefusalError{Provider: llm.ProviderGemini, Reason: "SAFETY"}}
	s := newTestServer(&mockDataset{records: sampleRecords()}, model)

	rec := do(t, s.Handler(), http.MethodPost, "/api/chat", `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, assistant.RephraseReply, resp.Response)
	assert.Nil(t, resp.Formatted)
}

func TestChat_EmptyReplyFallsBack(t *testing.T) {
	model := &mockModel{err: &llm.EmptyReplyError{Provider: llm.ProviderGemini}}
	s := newTestServer(&mockDataset{records: sampleRecords()}, model)

	rec := do(t, s.Handler(), http.MethodPost, "/api/chat", `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), assistant.EmptyReply)
}

func TestChat_DataUnavailable(t *testing.T) {
	data := &mockDataset{err: &db.DataUnavailableError{Message: "page fetch failed", Offset: 1000}}
	model := &mockModel{reply: "x"}
	s := newTestServer(data, model)

	rec := do(t, s.Handler(), http.MethodPost, "/api/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, model.prompts)
}

func TestJobs_FilterAndPaginate(t *testing.T) {
	s := newTestServer(&mockDataset{records: sampleRecords()}, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/api/jobs?country=Poland&page_size=1&page=2", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var page dataset.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "Operations Analyst", page.Records[0].String(dataset.FieldJob))
}

func TestJobs_SearchAndMultiSelect(t *testing.T) {
	s := newTestServer(&mockDataset{records: sampleRecords()}, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/api/jobs?search=analyst&family=Treasury,Operations", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page dataset.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, dataset.DefaultPageSize, page.PageSize)
}

func TestJobs_InvalidPaging(t *testing.T) {
	s := newTestServer(&mockDataset{records: sampleRecords()}, nil)

	tests := map[string]string{
		"/api/jobs?page=abc":      "page must be an integer",
		"/api/jobs?page=0":        "page must be at least 1",
		"/api/jobs?page_size=500": "page_size must be at most 100",
		"/api/aggregates?page=-1": "page must be at least 1",
	}
	for path, want := range tests {
		rec := do(t, s.Handler(), http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, want, decodeError(t, rec), path)
	}
}

func TestAggregates(t *testing.T) {
	s := newTestServer(&mockDataset{records: sampleRecords()}, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/api/aggregates", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var agg aggregate.Aggregates
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &agg))
	assert.Equal(t, 3, agg.Total)
	require.Len(t, agg.Families, 2)
	assert.Equal(t, aggregate.Bucket{Key: "Treasury", Count: 2, Percentage: 67}, agg.Families[0])
	assert.Equal(t, aggregate.Bucket{Key: "Operations", Count: 1, Percentage: 33}, agg.Families[1])
	require.Len(t, agg.TopSalaries, 3)
	assert.InDelta(t, 250000, agg.TopSalaries[0].Salary, 0.01)
	assert.InDelta(t, 80000, agg.TopSalaries[2].Salary, 0.01)
	assert.Equal(t, 1, agg.LevelAnalysis.Director)
}

func TestFacets(t *testing.T) {
	s := newTestServer(&mockDataset{records: sampleRecords()}, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/api/facets", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var facets dataset.Facets
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &facets))
	assert.Equal(t, []string{"Operations", "Treasury"}, facets.Families)
	assert.Equal(t, []string{"Germany", "Poland"}, facets.Countries)
}

func TestReload(t *testing.T) {
	data := &mockDataset{records: sampleRecords()}
	s := newTestServer(data, nil)

	rec := do(t, s.Handler(), http.MethodPost, "/api/dataset/reload", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.ReloadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Records)
	assert.Equal(t, "2026-01-02T03:04:05Z", resp.LoadedAt)

	data.reloadErr = &db.DataUnavailableError{Message: "count failed"}
	rec = do(t, s.Handler(), http.MethodPost, "/api/dataset/reload", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "The compensation dataset is currently unavailable.", decodeError(t, rec))
}

func TestHealth(t *testing.T) {
	s := newTestServer(&mockDataset{records: sampleRecords()}, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","dataset_loaded":true}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestDebugEnv(t *testing.T) {
	s := newTestServer(&mockDataset{records: sampleRecords()}, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/debug/env", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Message     string         `json:"message"`
		Environment map[string]any `json:"environment"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Debug endpoint - environment check", resp.Message)
	assert.Equal(t, true, resp.Environment["api_key_configured"])
	assert.Equal(t, float64(39), resp.Environment["api_key_length"])
	assert.Equal(t, false, resp.Environment["assistant_ready"])
	assert.Equal(t, "postgres", resp.Environment["store_driver"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(&mockDataset{records: sampleRecords()}, nil)
	do(t, s.Handler(), http.MethodGet, "/health", "")

	rec := do(t, s.Handler(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "salary_http_requests_total")
}

func TestRateLimit_ChatReturns429(t *testing.T) {
	s := New(Options{
		RateLimit: &ratelimit.Config{
			Enabled:         true,
			DefaultLimit:    1000,
			DefaultWindow:   time.Minute,
			EndpointConfigs: ratelimit.DefaultEndpointConfigs(10, time.Minute, 1),
		},
	}, &mockDataset{records: sampleRecords()}, assistant.New(&mockModel{reply: "ok"}))
	t.Cleanup(s.rateLimiter.Stop)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"message":"hi"}`))
		req.RemoteAddr = "192.0.2.10:5555"
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec
	}

	first := send()
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "10", first.Header().Get("X-RateLimit-Limit"))

	second := send()
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Contains(t, decodeError(t, second), "Rate limit exceeded")
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(&ValidationError{Field: "message", Message: "message is required"}))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(&db.DataUnavailableError{Message: "x"}))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(&llm.ConfigurationMissingError{Setting: "GEMINI_API_KEY"}))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(&llm.UpstreamError{Provider: llm.ProviderGemini, StatusCode: 500}))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestStart_ShutsDownOnCancel(t *testing.T) {
	s := newTestServer(&mockDataset{records: sampleRecords()}, nil)
	s.httpServer.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
