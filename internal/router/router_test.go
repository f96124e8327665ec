package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/config"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/middleware"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/overlay"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/provider"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/reconcile"
)

// providerStub records requests and answers like the scheduled-task API.
type providerStub struct {
	mu       sync.Mutex
	requests []string
	bodies   []map[string]any
}

func (p *providerStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	body := map[string]any{}
	_ = json.Unmarshal(raw, &body)

	p.mu.Lock()
	p.requests = append(p.requests, r.Method+" "+r.URL.Path)
	p.bodies = append(p.bodies, body)
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/scheduled-task":
		body["id"] = "st_1"
		body["next_run_at"] = time.Now().Add(2 * time.Minute).UTC().Format(time.RFC3339)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(body)
	case r.Method == http.MethodGet && r.URL.Path == "/scheduled-tasks":
		_, _ = w.Write([]byte(`{"scheduled_tasks":[{"id":"st_1","task":"x","use_proxy":true}],"total_pages":1}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Scheduled task not found"}`))
	}
}

func (p *providerStub) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.requests...)
}

func setupTestServer(t *testing.T, apiKey string) (*echo.Echo, *providerStub) {
	t.Helper()
	stub := &providerStub{}
	server := httptest.NewServer(stub)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		Provider: config.ProviderConfig{APIKey: apiKey, BaseURL: server.URL, Timeout: 5 * time.Second},
		Store:    config.StoreConfig{Driver: config.DriverMemory},
	}
	logger := zap.NewNop()
	client := provider.New(cfg.Provider, logger)
	tasks := reconcile.New(client, overlay.NewCache(overlay.NewMemoryStore(), logger), logger)

	e := echo.New()
	Setup(e, cfg, tasks, middleware.NewIdempotencyStore(nil, time.Minute), logger)
	return e, stub
}

func do(e *echo.Echo, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMissingCredentialShortCircuits(t *testing.T) {
	for _, key := range []string{"", config.PlaceholderAPIKey} {
		e, stub := setupTestServer(t, key)

		for _, route := range [][2]string{
			{http.MethodGet, "/api/scheduled-tasks"},
			{http.MethodPost, "/api/scheduled-tasks"},
			{http.MethodGet, "/api/scheduled-tasks/st_1"},
			{http.MethodPut, "/api/scheduled-tasks/st_1"},
			{http.MethodDelete, "/api/scheduled-tasks/st_1"},
		} {
			rec := do(e, route[0], route[1], "", nil)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("key %q %s %s: expected 401, got %d", key, route[0], route[1], rec.Code)
			}
		}
		if calls := stub.calls(); len(calls) != 0 {
			t.Errorf("no provider call expected, got %v", calls)
		}
	}
}

func TestCreateThroughRouter(t *testing.T) {
	e, stub := setupTestServer(t, "bu_test")

	rec := do(e, http.MethodPost, "/api/scheduled-tasks",
		`{"task":"x","schedule_type":"interval","interval_minutes":1,"cron_expression":"* * * * *","max_agent_steps":20}`,
		map[string]string{middleware.HeaderIdempotencyKey: "create-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	calls := stub.calls()
	if len(calls) != 1 || calls[0] != "POST /scheduled-task" {
		t.Fatalf("expected a single create call, got %v", calls)
	}
	sent := stub.bodies[0]
	if _, ok := sent["cron_expression"]; ok {
		t.Errorf("cron_expression must be stripped for interval schedules")
	}
	if _, ok := sent["start_at"].(string); !ok {
		t.Errorf("aligned start_at should be sent, got %v", sent["start_at"])
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["id"] != "st_1" || body["max_agent_steps"] != float64(20) {
		t.Errorf("unexpected merged record %v", body)
	}
	if rec.Header().Get(middleware.HeaderRequestID) == "" {
		t.Errorf("responses should carry a request id")
	}

	dup := do(e, http.MethodPost, "/api/scheduled-tasks", `{"task":"x"}`,
		map[string]string{middleware.HeaderIdempotencyKey: "create-1"})
	if dup.Code != http.StatusConflict {
		t.Errorf("repeated idempotency key: expected 409, got %d", dup.Code)
	}
}

func TestProviderStatusPassesThrough(t *testing.T) {
	e, _ := setupTestServer(t, "bu_test")

	rec := do(e, http.MethodGet, "/api/scheduled-tasks/missing", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected provider 404, got %d", rec.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["error"] != "Scheduled task not found" || body["details"] == nil {
		t.Errorf("unexpected error body %v", body)
	}
}

func TestListThroughRouter(t *testing.T) {
	e, _ := setupTestServer(t, "bu_test")

	rec := do(e, http.MethodGet, "/api/scheduled-tasks", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	items, ok := body["scheduled_tasks"].([]any)
	if !ok || len(items) != 1 || body["total_pages"] != float64(1) {
		t.Errorf("envelope should pass through, got %v", body)
	}
}

func TestHealth(t *testing.T) {
	e, _ := setupTestServer(t, "")
	rec := do(e, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health should not need the credential, got %d", rec.Code)
	}
}
