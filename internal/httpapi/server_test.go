package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"shiftopt/internal/config"
	"shiftopt/internal/model"
	"shiftopt/internal/service"
)

func testServer() *Server {
	cfg := &config.AppConfig{
		Host:                       "127.0.0.1",
		Port:                       8000,
		AllowedOrigins:             []string{"http://localhost:3000"},
		MaxOptimizationTime:        30,
		MaxConcurrentOptimizations: 4,
		GAPopulation:               20,
		GAGenerations:              10,
	}
	return NewServer(cfg, service.New(cfg))
}

func requestBody(t *testing.T, days int, algorithm model.AlgorithmKind, tier model.TierLevel) *bytes.Buffer {
	t.Helper()
	start := model.NewDate(2026, time.September, 1)
	req := model.OptimizationRequest{
		UserID:    "user-1",
		Objective: model.ObjectiveMaximizeIncome,
		TimeRange: model.TimeRange{Start: start, End: start.AddDays(days)},
		Constraints: []model.Constraint{
			{Type: model.ConstraintFuyouLimit, Value: 1_030_000, Unit: model.UnitYen},
			{Type: model.ConstraintDailyHours, Value: 8, Unit: model.UnitHours},
			{Type: model.ConstraintWeeklyHours, Value: 28, Unit: model.UnitHours},
		},
		JobSources: []model.JobSource{
			{ID: "job-a", Name: "Cafe", HourlyRate: 1200, IsActive: true},
		},
		Preferences: model.Preferences{Algorithm: algorithm},
		TierLevel:   tier,
	}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	return bytes.NewBuffer(data)
}

func do(s *Server, method, path string, body *bytes.Buffer) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	s := testServer()

	for _, path := range []string{"/", "/health"} {
		rec := do(s, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s returned %d", path, rec.Code)
		}
		var body map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("Invalid JSON from %s: %v", path, err)
		}
		if body["status"] != "healthy" || body["service"] != "shift-optimization" {
			t.Errorf("Unexpected health body from %s: %v", path, body)
		}
	}
}

func TestTracingHeaders(t *testing.T) {
	s := testServer()
	rec := do(s, http.MethodGet, "/health", nil)

	trace := rec.Header().Get("X-Trace-ID")
	matched, err := regexp.MatchString(`^opt_\d+_\d{8}_\d{6}$`, trace)
	if err != nil || !matched {
		t.Errorf("Unexpected trace id format: %q", trace)
	}

	processTime := rec.Header().Get("X-Process-Time")
	if seconds, err := strconv.ParseFloat(processTime, 64); err != nil || seconds < 0 {
		t.Errorf("Unexpected X-Process-Time: %q", processTime)
	}

	second := do(s, http.MethodGet, "/health", nil)
	if second.Header().Get("X-Trace-ID") == trace {
		t.Error("Trace ids must be unique per request")
	}
}

func TestOptimizeEndpoint(t *testing.T) {
	s := testServer()
	rec := do(s, http.MethodPost, "/optimize", requestBody(t, 3, model.AlgorithmLinearProgramming, model.TierFree))

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /optimize returned %d: %s", rec.Code, rec.Body.String())
	}

	var resp model.OptimizationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid response JSON: %v", err)
	}
	if !resp.Success || resp.Solution == nil {
		t.Fatalf("Expected successful response with solution: %+v", resp)
	}
	if len(resp.Solution.SuggestedShifts) == 0 {
		t.Error("Expected suggested shifts")
	}
	if resp.Solution.TotalIncome > 1_030_000 {
		t.Errorf("Income %g exceeds fuyou limit", resp.Solution.TotalIncome)
	}
}

func TestOptimizeTierRejection(t *testing.T) {
	s := testServer()
	rec := do(s, http.MethodPost, "/optimize", requestBody(t, 3, model.AlgorithmGenetic, model.TierFree))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "not available") {
		t.Errorf("Expected algorithm violation in body: %s", rec.Body.String())
	}
	var body struct {
		Violations []model.Violation `json:"violations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || len(body.Violations) == 0 {
		t.Errorf("Expected structured violations, got %s", rec.Body.String())
	}
}

func TestOptimizeDuplicateConstraints(t *testing.T) {
	s := testServer()

	start := model.NewDate(2026, time.September, 1)
	req := model.OptimizationRequest{
		UserID:    "user-1",
		Objective: model.ObjectiveMaximizeIncome,
		TimeRange: model.TimeRange{Start: start, End: start.AddDays(3)},
		Constraints: []model.Constraint{
			{Type: model.ConstraintDailyHours, Value: 8, Unit: model.UnitHours},
			{Type: model.ConstraintDailyHours, Value: 10, Unit: model.UnitHours},
		},
		JobSources: []model.JobSource{{ID: "job-a", Name: "Cafe", HourlyRate: 1200, IsActive: true}},
		TierLevel:  model.TierFree,
	}
	data, _ := json.Marshal(req)

	rec := do(s, http.MethodPost, "/optimize", bytes.NewBuffer(data))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Duplicate constraint types") {
		t.Errorf("Expected duplicate-constraint violation: %s", rec.Body.String())
	}
}

func TestOptimizeMalformedBody(t *testing.T) {
	s := testServer()
	rec := do(s, http.MethodPost, "/optimize", bytes.NewBufferString("{not json"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestAsyncLifecycleOverHTTP(t *testing.T) {
	s := testServer()
	rec := do(s, http.MethodPost, "/optimize/async", requestBody(t, 2, model.AlgorithmLinearProgramming, model.TierFree))

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /optimize/async returned %d: %s", rec.Code, rec.Body.String())
	}
	var status model.RunStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("Invalid status JSON: %v", err)
	}
	if status.Status != model.RunStarted || status.RunID == "" {
		t.Fatalf("Unexpected initial status: %+v", status)
	}

	deadline := time.After(10 * time.Second)
	for {
		poll := do(s, http.MethodGet, "/optimize/status/"+status.RunID, nil)
		if poll.Code != http.StatusOK {
			t.Fatalf("Status poll returned %d", poll.Code)
		}
		var current model.RunStatus
		if err := json.Unmarshal(poll.Body.Bytes(), &current); err != nil {
			t.Fatalf("Invalid poll JSON: %v", err)
		}
		if current.Status == model.RunCompleted {
			if current.Progress != 1.0 {
				t.Errorf("Expected progress 1.0, got %g", current.Progress)
			}
			return
		}
		if current.Status == model.RunFailed {
			t.Fatalf("Async run failed: %s", current.Message)
		}
		select {
		case <-deadline:
			t.Fatalf("Run did not complete, last status %s", current.Status)
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestRunStatusNotFound(t *testing.T) {
	s := testServer()
	rec := do(s, http.MethodGet, "/optimize/status/unknown-run", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestValidateConstraintsEndpoint(t *testing.T) {
	s := testServer()
	body := bytes.NewBufferString(`{"constraints":[
		{"constraint_type":"daily_hours","constraint_value":8,"constraint_unit":"hours"},
		{"constraint_type":"daily_hours","constraint_value":10,"constraint_unit":"hours"}
	]}`)

	rec := do(s, http.MethodPost, "/validate/constraints", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /validate/constraints returned %d", rec.Code)
	}
	var result model.ValidationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if result.IsValid {
		t.Error("Expected invalid result for duplicate constraints")
	}
}

func TestAlgorithmsEndpoint(t *testing.T) {
	s := testServer()
	rec := do(s, http.MethodGet, "/algorithms", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /algorithms returned %d", rec.Code)
	}
	var catalog []model.AlgorithmInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &catalog); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(catalog) != 4 {
		t.Errorf("Expected 4 algorithms, got %d", len(catalog))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := testServer()

	// Drive one request through so counters are non-zero.
	do(s, http.MethodPost, "/optimize", requestBody(t, 2, model.AlgorithmLinearProgramming, model.TierFree))

	rec := do(s, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics returned %d", rec.Code)
	}
	text := rec.Body.String()
	for _, want := range []string{
		"optimization_total_requests",
		"optimization_success_rate",
		"optimization_algorithm_usage",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Metrics output missing %s", want)
		}
	}
}

func TestMetricsUnavailableWithoutService(t *testing.T) {
	cfg := &config.AppConfig{Host: "127.0.0.1", Port: 8000}
	s := NewServer(cfg, nil)

	rec := do(s, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
}

func TestUnknownPath(t *testing.T) {
	s := testServer()
	rec := do(s, http.MethodGet, "/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := testServer()
	if rec := do(s, http.MethodGet, "/optimize", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET /optimize, got %d", rec.Code)
	}
	if rec := do(s, http.MethodPost, "/algorithms", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for POST /algorithms, got %d", rec.Code)
	}
}
