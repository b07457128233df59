package validate

import (
	"strings"
	"testing"
	"time"

	"shiftopt/internal/model"
)

func shiftOn(day int, start, end string, rate float64) model.SuggestedShift {
	startMin, _ := model.MinutesOfDay(start)
	endMin, _ := model.MinutesOfDay(end)
	hours := float64(endMin-startMin) / 60
	return model.SuggestedShift{
		ID:                 "shift",
		JobSourceID:        "job-a",
		Date:               model.NewDate(2026, time.September, day),
		StartTime:          start,
		EndTime:            end,
		HourlyRate:         rate,
		WorkingHours:       hours,
		CalculatedEarnings: hours * rate,
		Confidence:         0.9,
	}
}

func solutionFrom(shifts ...model.SuggestedShift) *model.OptimizationSolution {
	sol := &model.OptimizationSolution{
		SuggestedShifts: shifts,
		TotalShifts:     len(shifts),
		ConfidenceScore: 0.9,
	}
	for _, s := range shifts {
		sol.TotalIncome += s.CalculatedEarnings
		sol.TotalHours += s.WorkingHours
	}
	return sol
}

func TestValidateSolution_Clean(t *testing.T) {
	v := NewSolutionValidator()
	sol := solutionFrom(
		shiftOn(1, "09:00", "15:00", 1200),
		shiftOn(2, "10:00", "16:00", 1200),
	)
	constraints := []model.Constraint{
		{Type: model.ConstraintFuyouLimit, Value: 1_030_000, Unit: model.UnitYen},
		{Type: model.ConstraintDailyHours, Value: 8, Unit: model.UnitHours},
		{Type: model.ConstraintWeeklyHours, Value: 40, Unit: model.UnitHours},
	}

	result := v.ValidateSolution(sol, constraints)
	if !result.IsValid {
		t.Fatalf("Expected valid solution, got %v", result.Violations)
	}
}

func TestValidateSolution_Empty(t *testing.T) {
	v := NewSolutionValidator()
	result := v.ValidateSolution(&model.OptimizationSolution{}, nil)

	if result.IsValid {
		t.Fatal("Expected empty solution to be invalid")
	}
	if result.Violations[0].Type != "empty_solution" {
		t.Errorf("Expected empty_solution violation, got %s", result.Violations[0].Type)
	}
}

func TestValidateSolution_OverlapIsFeasibilityError(t *testing.T) {
	v := NewSolutionValidator()
	sol := solutionFrom(
		shiftOn(1, "09:00", "15:00", 1200),
		shiftOn(1, "14:00", "18:00", 1200),
	)

	result := v.ValidateSolution(sol, nil)
	if result.IsValid {
		t.Fatal("Expected overlapping shifts to be invalid")
	}
	found := false
	for _, viol := range result.Violations {
		if viol.Type == "feasibility_error" && strings.Contains(viol.Message, "Overlapping") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected feasibility_error for overlap, got %v", result.Violations)
	}
}

func TestValidateSolution_BackToBackShiftsAllowed(t *testing.T) {
	v := NewSolutionValidator()
	sol := solutionFrom(
		shiftOn(1, "09:00", "13:00", 1200),
		shiftOn(1, "13:00", "17:00", 1200),
	)

	result := v.ValidateSolution(sol, nil)
	if !result.IsValid {
		t.Errorf("Expected back-to-back shifts to be valid, got %v", result.Violations)
	}
}

func TestValidateSolution_EarningsMismatch(t *testing.T) {
	v := NewSolutionValidator()
	shift := shiftOn(1, "09:00", "15:00", 1200)
	shift.CalculatedEarnings = 9999
	sol := &model.OptimizationSolution{
		SuggestedShifts: []model.SuggestedShift{shift},
		TotalIncome:     9999,
		TotalHours:      shift.WorkingHours,
		TotalShifts:     1,
		ConfidenceScore: 0.9,
	}

	result := v.ValidateSolution(sol, nil)
	if result.IsValid {
		t.Fatal("Expected earnings mismatch to be invalid")
	}
	found := false
	for _, viol := range result.Violations {
		if viol.Type == "shift_validation_error" && strings.Contains(viol.Message, "Earnings calculation") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected earnings calculation violation, got %v", result.Violations)
	}
}

func TestValidateSolution_AggregateMismatch(t *testing.T) {
	v := NewSolutionValidator()
	sol := solutionFrom(shiftOn(1, "09:00", "15:00", 1200))
	sol.TotalIncome += 100
	sol.TotalShifts = 3

	result := v.ValidateSolution(sol, nil)
	if result.IsValid {
		t.Fatal("Expected aggregate mismatch to be invalid")
	}
	structureErrors := 0
	for _, viol := range result.Violations {
		if viol.Type == "structure_error" {
			structureErrors++
		}
	}
	if structureErrors != 2 {
		t.Errorf("Expected income and count structure errors, got %v", result.Violations)
	}
}

func TestValidateSolution_FuyouViolationAndWarning(t *testing.T) {
	v := NewSolutionValidator()
	sol := solutionFrom(shiftOn(1, "09:00", "17:00", 1200))
	constraints := []model.Constraint{
		{Type: model.ConstraintFuyouLimit, Value: 5000, Unit: model.UnitYen},
	}

	result := v.ValidateSolution(sol, constraints)
	if result.IsValid {
		t.Fatal("Expected fuyou violation")
	}
	found := false
	for _, viol := range result.Violations {
		if viol.Type == "constraint_violation" && strings.Contains(viol.Message, "Fuyou") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected fuyou constraint_violation, got %v", result.Violations)
	}

	// 9600 against a 10000 limit is within bounds but past 90%.
	warned := v.ValidateSolution(sol, []model.Constraint{
		{Type: model.ConstraintFuyouLimit, Value: 10_000, Unit: model.UnitYen},
	})
	if !warned.IsValid {
		t.Fatalf("Expected warning-only result, got %v", warned.Violations)
	}
	foundWarn := false
	for _, w := range warned.Warnings {
		if strings.Contains(w, "Approaching fuyou limit") {
			foundWarn = true
		}
	}
	if !foundWarn {
		t.Errorf("Expected approaching-limit warning, got %v", warned.Warnings)
	}
}

func TestValidateSolution_DailyHoursViolation(t *testing.T) {
	v := NewSolutionValidator()
	sol := solutionFrom(
		shiftOn(1, "08:00", "12:00", 1200),
		shiftOn(1, "13:00", "19:00", 1200),
	)
	constraints := []model.Constraint{
		{Type: model.ConstraintDailyHours, Value: 8, Unit: model.UnitHours},
	}

	result := v.ValidateSolution(sol, constraints)
	if result.IsValid {
		t.Fatal("Expected daily hours violation for 10h day")
	}
}

func TestValidateSolution_WeeklyHoursAcrossDays(t *testing.T) {
	v := NewSolutionValidator()
	// Mon Sep 7 through Fri Sep 11 2026, 8h each: 40h in one ISO week.
	var shifts []model.SuggestedShift
	for day := 7; day <= 11; day++ {
		shifts = append(shifts, shiftOn(day, "09:00", "17:00", 1200))
	}
	sol := solutionFrom(shifts...)

	result := v.ValidateSolution(sol, []model.Constraint{
		{Type: model.ConstraintWeeklyHours, Value: 30, Unit: model.UnitHours},
	})
	if result.IsValid {
		t.Fatal("Expected weekly hours violation for 40h week")
	}

	ok := v.ValidateSolution(sol, []model.Constraint{
		{Type: model.ConstraintWeeklyHours, Value: 50, Unit: model.UnitHours},
	})
	if !ok.IsValid {
		t.Errorf("Expected 40h week under a 50h limit to be valid, got %v", ok.Violations)
	}
}

func TestValidateSolution_ShortAndLongShifts(t *testing.T) {
	v := NewSolutionValidator()

	short := solutionFrom(shiftOn(1, "09:00", "09:30", 1200))
	if result := v.ValidateSolution(short, nil); result.IsValid {
		t.Error("Expected sub-hour shift to be invalid")
	}

	long := solutionFrom(shiftOn(1, "08:00", "21:00", 1200))
	result := v.ValidateSolution(long, nil)
	if !result.IsValid {
		t.Errorf("Expected 13h shift to only warn, got %v", result.Violations)
	}
	if len(result.Warnings) == 0 {
		t.Error("Expected long-shift warning")
	}
}

func TestDailyAndWeeklyHoursHelpers(t *testing.T) {
	shifts := []model.SuggestedShift{
		shiftOn(1, "09:00", "13:00", 1200),
		shiftOn(1, "14:00", "18:00", 1200),
		shiftOn(2, "09:00", "15:00", 1200),
	}

	daily := DailyHours(shifts)
	if daily["2026-09-01"] != 8 {
		t.Errorf("Expected 8h on 2026-09-01, got %g", daily["2026-09-01"])
	}
	if daily["2026-09-02"] != 6 {
		t.Errorf("Expected 6h on 2026-09-02, got %g", daily["2026-09-02"])
	}

	weekly := WeeklyHours(shifts)
	var total float64
	for _, h := range weekly {
		total += h
	}
	if total != 14 {
		t.Errorf("Expected 14h total across weeks, got %g", total)
	}
}
