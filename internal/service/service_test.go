package service

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shiftopt/internal/config"
	"shiftopt/internal/model"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Host:                       "127.0.0.1",
		Port:                       8000,
		MaxOptimizationTime:        30,
		MaxShiftsPerOptimization:   1000,
		MaxConcurrentOptimizations: 4,
		MaxMemoryMB:                1024,
		GAPopulation:               20,
		GAGenerations:              10,
	}
}

func optimizeRequest() *model.OptimizationRequest {
	start := model.NewDate(2026, time.September, 1)
	return &model.OptimizationRequest{
		UserID:    "user-1",
		Objective: model.ObjectiveMaximizeIncome,
		TimeRange: model.TimeRange{Start: start, End: start.AddDays(3)},
		Constraints: []model.Constraint{
			{Type: model.ConstraintFuyouLimit, Value: 1_030_000, Unit: model.UnitYen},
			{Type: model.ConstraintDailyHours, Value: 8, Unit: model.UnitHours},
			{Type: model.ConstraintWeeklyHours, Value: 28, Unit: model.UnitHours},
		},
		JobSources: []model.JobSource{
			{ID: "job-a", Name: "Cafe", HourlyRate: 1200, IsActive: true},
		},
		Preferences: model.Preferences{Algorithm: model.AlgorithmLinearProgramming},
		TierLevel:   model.TierFree,
	}
}

func TestOptimizeSynchronous(t *testing.T) {
	svc := New(testConfig())

	resp, err := svc.Optimize(context.Background(), optimizeRequest())
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if !resp.Success {
		t.Fatal("Expected successful response")
	}
	if resp.RunID == "" {
		t.Error("Expected a run id")
	}
	if resp.Solution == nil || len(resp.Solution.SuggestedShifts) == 0 {
		t.Fatal("Expected a solution with shifts")
	}
	if resp.Solution.AlgorithmUsed != model.AlgorithmLinearProgramming {
		t.Errorf("Expected linear_programming label, got %s", resp.Solution.AlgorithmUsed)
	}
	if resp.Solution.TotalIncome > 1_030_000 {
		t.Errorf("Income %g exceeds fuyou limit", resp.Solution.TotalIncome)
	}
	if !resp.Solution.ConstraintsSatisfied[model.ConstraintFuyouLimit] {
		t.Error("Expected fuyou constraint satisfied")
	}
	if resp.Solution.TotalShifts != len(resp.Solution.SuggestedShifts) {
		t.Error("Aggregate shift count out of sync")
	}
	if _, ok := resp.Solution.Metadata["objective_breakdown"]; !ok {
		t.Error("Expected objective breakdown in solution metadata")
	}
	if penalty, ok := resp.Solution.Metadata["constraint_penalty"].(float64); !ok || penalty != 0 {
		t.Errorf("Expected zero constraint penalty, got %v", resp.Solution.Metadata["constraint_penalty"])
	}
}

func TestPostValidationDegradesConfidence(t *testing.T) {
	svc := New(testConfig())

	date := model.NewDate(2026, time.September, 2)
	shiftAt := func(start, end string) model.SuggestedShift {
		return model.SuggestedShift{
			ID:                 start,
			JobSourceID:        "job-a",
			JobSourceName:      "Cafe",
			Date:               date,
			StartTime:          start,
			EndTime:            end,
			HourlyRate:         1200,
			WorkingHours:       4,
			CalculatedEarnings: 4800,
			Confidence:         0.9,
		}
	}
	solution := &model.OptimizationSolution{
		SuggestedShifts: []model.SuggestedShift{
			shiftAt("09:00", "13:00"),
			shiftAt("11:00", "15:00"),
		},
		ConfidenceScore: 0.9,
		TotalShifts:     2,
		TotalIncome:     9600,
		TotalHours:      8,
	}
	constraints := []model.Constraint{
		{Type: model.ConstraintFuyouLimit, Value: 1_030_000, Unit: model.UnitYen},
	}

	post := svc.postValidate("run-1", solution, constraints)
	if post.IsValid {
		t.Fatal("Expected overlapping shifts to fail post-validation")
	}
	if solution.ConfidenceScore != 0.45 {
		t.Errorf("Expected confidence halved to 0.45, got %g", solution.ConfidenceScore)
	}
	found := false
	for _, v := range post.Violations {
		if v.Type == "feasibility_error" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected feasibility violation, got %v", post.Violations)
	}

	rec := httptest.NewRecorder()
	svc.MetricsHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Result().Body)
	if !strings.Contains(string(body), `optimization_constraint_violations{constraint="feasibility_error"} 1`) {
		t.Error("Expected violation counted in metrics")
	}

	// A clean solution passes untouched.
	clean := &model.OptimizationSolution{
		SuggestedShifts: []model.SuggestedShift{shiftAt("09:00", "13:00")},
		ConfidenceScore: 0.9,
		TotalShifts:     1,
		TotalIncome:     4800,
		TotalHours:      4,
	}
	if post := svc.postValidate("run-2", clean, constraints); !post.IsValid {
		t.Fatalf("Expected clean solution to pass, got %v", post.Violations)
	}
	if clean.ConfidenceScore != 0.9 {
		t.Errorf("Expected confidence untouched, got %g", clean.ConfidenceScore)
	}
}

func TestOptimizeRejectsTierViolation(t *testing.T) {
	svc := New(testConfig())
	req := optimizeRequest()
	req.Preferences.Algorithm = model.AlgorithmGenetic

	_, err := svc.Optimize(context.Background(), req)
	if err == nil {
		t.Fatal("Expected validation error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected *ValidationError, got %T", err)
	}
	found := false
	for _, v := range verr.Result.Violations {
		if strings.Contains(v.Message, "not available") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected algorithm availability violation, got %v", verr.Result.Violations)
	}
}

func TestOptimizeAsyncLifecycle(t *testing.T) {
	svc := New(testConfig())

	status := svc.OptimizeAsync(optimizeRequest())
	if status.Status != model.RunStarted {
		t.Fatalf("Expected started status, got %s", status.Status)
	}
	if status.RunID == "" {
		t.Fatal("Expected run id")
	}
	if status.EstimatedCompletion == nil {
		t.Error("Expected an estimated completion time")
	}

	deadline := time.After(10 * time.Second)
	for {
		current, ok := svc.RunStatus(status.RunID)
		if !ok {
			t.Fatal("Run vanished from the store")
		}
		if current.Status == model.RunCompleted {
			if current.Progress != 1.0 {
				t.Errorf("Expected progress 1.0, got %g", current.Progress)
			}
			break
		}
		if current.Status == model.RunFailed {
			t.Fatalf("Run failed: %s", current.Message)
		}
		select {
		case <-deadline:
			t.Fatalf("Run did not complete, last status %s", current.Status)
		case <-time.After(20 * time.Millisecond):
		}
	}

	resp, ok := svc.RunResponse(status.RunID)
	if !ok || resp.Solution == nil {
		t.Fatal("Expected completed run response with solution")
	}
}

func TestOptimizeAsyncFailureRecorded(t *testing.T) {
	svc := New(testConfig())
	req := optimizeRequest()
	req.Constraints = nil // fails validation inside the background run

	status := svc.OptimizeAsync(req)

	deadline := time.After(5 * time.Second)
	for {
		current, ok := svc.RunStatus(status.RunID)
		if !ok {
			t.Fatal("Run vanished from the store")
		}
		if current.Status == model.RunFailed {
			if current.Message == "" {
				t.Error("Expected failure message")
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("Run did not fail, last status %s", current.Status)
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestRunStatusUnknown(t *testing.T) {
	svc := New(testConfig())
	if _, ok := svc.RunStatus("missing"); ok {
		t.Error("Expected unknown run to be absent")
	}
}

func TestRunStoreTransitions(t *testing.T) {
	store := NewRunStore()

	store.Start("run-1", nil)
	store.MarkRunning("run-1", 0.4, "crunching")
	status, ok := store.Status("run-1")
	if !ok || status.Status != model.RunRunning || status.Progress != 0.4 {
		t.Fatalf("Unexpected running status: %+v", status)
	}

	store.Complete("run-1", &model.OptimizationResponse{Success: true})
	status, ok = store.Status("run-1")
	if !ok || status.Status != model.RunCompleted || status.Progress != 1.0 {
		t.Fatalf("Unexpected completed status: %+v", status)
	}
	if store.ActiveCount() != 0 {
		t.Error("Completed run must leave the active map")
	}
	if _, ok := store.Response("run-1"); !ok {
		t.Error("Expected stored response for completed run")
	}
}

func TestRunStoreCancelAll(t *testing.T) {
	store := NewRunStore()
	ctx, cancel := context.WithCancel(context.Background())
	store.Start("run-1", cancel)

	store.CancelAll()

	select {
	case <-ctx.Done():
	default:
		t.Error("Expected cancel func to fire")
	}
	status, ok := store.Status("run-1")
	if !ok || status.Status != model.RunCancelled {
		t.Errorf("Expected cancelled status, got %+v", status)
	}
}

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics()
	m.RecordRun(model.AlgorithmLinearProgramming, 12.5, true)
	m.RecordRun(model.AlgorithmGenetic, 7.5, false)
	m.RecordViolation("constraint_violation")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Result().Body)
	text := string(body)

	for _, want := range []string{
		"optimization_total_requests 2",
		"optimization_successful_requests 1",
		"optimization_failed_requests 1",
		"optimization_average_processing_time_ms 10",
		"optimization_success_rate 0.5",
		`optimization_algorithm_usage{algorithm="linear_programming"} 1`,
		`optimization_constraint_violations{constraint="constraint_violation"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Metrics output missing %q:\n%s", want, text)
		}
	}
}

func TestAlgorithmCatalog(t *testing.T) {
	svc := New(testConfig())
	catalog := svc.Algorithms()

	if len(catalog) != 4 {
		t.Fatalf("Expected 4 catalog entries, got %d", len(catalog))
	}
	byID := make(map[model.AlgorithmKind]model.AlgorithmInfo)
	for _, info := range catalog {
		byID[info.ID] = info
	}
	if byID[model.AlgorithmLinearProgramming].TierRequirement != model.TierFree {
		t.Error("LP must be available on the free tier")
	}
	if byID[model.AlgorithmNSGA2].TierRequirement != model.TierPro {
		t.Error("NSGA-II must require the pro tier")
	}
	if _, ok := byID[model.AlgorithmSimulatedAnnealing]; !ok {
		t.Error("Expected simulated annealing in the catalog")
	}
}
