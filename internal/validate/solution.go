package validate

import (
	"fmt"
	"math"
	"sort"

	"shiftopt/internal/model"
)

// amountTolerance is the largest acceptable drift between reported and
// recomputed monetary/hour aggregates.
const amountTolerance = 0.01

// SolutionValidator performs post-solve feasibility and consistency checks.
type SolutionValidator struct{}

// NewSolutionValidator builds a validator.
func NewSolutionValidator() *SolutionValidator {
	return &SolutionValidator{}
}

// ValidateSolution checks structure, constraint satisfaction and shift
// feasibility. Violations do not discard the solution; the caller degrades
// its confidence instead.
func (v *SolutionValidator) ValidateSolution(sol *model.OptimizationSolution, constraints []model.Constraint) model.ValidationResult {
	result := model.ValidationResult{}

	result.Merge(v.validateStructure(sol))
	result.Merge(v.validateConstraintSatisfaction(sol, constraints))
	result.Merge(v.validateFeasibility(sol.SuggestedShifts))

	result.Finalize()
	return result
}

func (v *SolutionValidator) validateStructure(sol *model.OptimizationSolution) model.ValidationResult {
	result := model.ValidationResult{}

	if len(sol.SuggestedShifts) == 0 {
		result.Violations = append(result.Violations, model.Violation{
			Message: "Solution must contain at least one suggested shift",
			Type:    "empty_solution",
		})
		result.Finalize()
		return result
	}

	if sol.ConfidenceScore < 0 || sol.ConfidenceScore > 1 {
		result.Violations = append(result.Violations, model.Violation{
			Message: fmt.Sprintf("Invalid confidence score: %g", sol.ConfidenceScore),
			Type:    "structure_error",
		})
	} else if sol.ConfidenceScore < 0.5 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Low confidence score: %g", sol.ConfidenceScore))
		result.Suggestions = append(result.Suggestions,
			"Consider reviewing the optimization parameters or constraints")
	}

	var income, hours float64
	for _, shift := range sol.SuggestedShifts {
		income += shift.CalculatedEarnings
		hours += shift.WorkingHours
	}
	if math.Abs(income-sol.TotalIncome) > amountTolerance {
		result.Violations = append(result.Violations, model.Violation{
			Message: fmt.Sprintf("Income calculation inconsistent: calculated=%g, reported=%g", income, sol.TotalIncome),
			Type:    "structure_error",
		})
	}
	if math.Abs(hours-sol.TotalHours) > amountTolerance {
		result.Violations = append(result.Violations, model.Violation{
			Message: fmt.Sprintf("Hours calculation inconsistent: calculated=%g, reported=%g", hours, sol.TotalHours),
			Type:    "structure_error",
		})
	}
	if sol.TotalShifts != len(sol.SuggestedShifts) {
		result.Violations = append(result.Violations, model.Violation{
			Message: fmt.Sprintf("Shift count inconsistent: %d shifts, reported %d", len(sol.SuggestedShifts), sol.TotalShifts),
			Type:    "structure_error",
		})
	}

	result.Finalize()
	return result
}

func (v *SolutionValidator) validateConstraintSatisfaction(sol *model.OptimizationSolution, constraints []model.Constraint) model.ValidationResult {
	result := model.ValidationResult{}

	for _, c := range constraints {
		switch c.Type {
		case model.ConstraintFuyouLimit:
			if sol.TotalIncome > c.Value {
				result.Violations = append(result.Violations, model.Violation{
					Message: fmt.Sprintf("Fuyou limit violation: %g > %g", sol.TotalIncome, c.Value),
					Type:    "constraint_violation",
				})
				result.Suggestions = append(result.Suggestions,
					"Consider reducing shift hours or hourly rates")
			} else if sol.TotalIncome > c.Value*0.9 {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("Approaching fuyou limit: %g (limit: %g)", sol.TotalIncome, c.Value))
			}
		case model.ConstraintDailyHours:
			maxDaily := maxValue(DailyHours(sol.SuggestedShifts))
			if maxDaily > c.Value {
				result.Violations = append(result.Violations, model.Violation{
					Message: fmt.Sprintf("Daily hours violation: %g > %g", maxDaily, c.Value),
					Type:    "constraint_violation",
				})
				result.Suggestions = append(result.Suggestions, "Consider reducing daily shift hours")
			} else if maxDaily > c.Value*0.9 {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("Approaching daily hours limit: %g (limit: %g)", maxDaily, c.Value))
			}
		case model.ConstraintWeeklyHours:
			maxWeekly := maxIntKeyed(WeeklyHours(sol.SuggestedShifts))
			if maxWeekly > c.Value {
				result.Violations = append(result.Violations, model.Violation{
					Message: fmt.Sprintf("Weekly hours violation: %g > %g", maxWeekly, c.Value),
					Type:    "constraint_violation",
				})
				result.Suggestions = append(result.Suggestions, "Consider reducing weekly shift hours")
			} else if maxWeekly > c.Value*0.9 {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("Approaching weekly hours limit: %g (limit: %g)", maxWeekly, c.Value))
			}
		}
	}

	result.Finalize()
	return result
}

func (v *SolutionValidator) validateFeasibility(shifts []model.SuggestedShift) model.ValidationResult {
	result := model.ValidationResult{}

	for _, overlap := range findOverlappingShifts(shifts) {
		result.Violations = append(result.Violations, model.Violation{
			Message: fmt.Sprintf("Overlapping shifts on %s: %s-%s and %s-%s",
				overlap.date, overlap.a.StartTime, overlap.a.EndTime, overlap.b.StartTime, overlap.b.EndTime),
			Type: "feasibility_error",
		})
	}
	if len(result.Violations) > 0 {
		result.Suggestions = append(result.Suggestions, "Review shift scheduling to avoid overlaps")
	}

	for _, shift := range shifts {
		result.Merge(v.validateShift(shift))
	}

	result.Finalize()
	return result
}

func (v *SolutionValidator) validateShift(shift model.SuggestedShift) model.ValidationResult {
	result := model.ValidationResult{}

	start, errStart := model.MinutesOfDay(shift.StartTime)
	end, errEnd := model.MinutesOfDay(shift.EndTime)
	switch {
	case errStart != nil || errEnd != nil:
		result.Violations = append(result.Violations, model.Violation{
			Message: fmt.Sprintf("Invalid time format in shift: %s-%s", shift.StartTime, shift.EndTime),
			Type:    "shift_validation_error",
		})
	case start >= end:
		result.Violations = append(result.Violations, model.Violation{
			Message: fmt.Sprintf("Invalid shift times: %s to %s", shift.StartTime, shift.EndTime),
			Type:    "shift_validation_error",
		})
	default:
		duration := float64(end-start) / 60
		if duration > 12 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Very long shift: %g hours", duration))
			result.Suggestions = append(result.Suggestions,
				"Consider breaking long shifts into multiple shorter shifts")
		} else if duration < 1 {
			result.Violations = append(result.Violations, model.Violation{
				Message: fmt.Sprintf("Very short shift: %g hours", duration),
				Type:    "shift_validation_error",
			})
		}
	}

	expected := shift.WorkingHours * shift.HourlyRate
	if math.Abs(expected-shift.CalculatedEarnings) > amountTolerance {
		result.Violations = append(result.Violations, model.Violation{
			Message: fmt.Sprintf("Earnings calculation error: expected %g, got %g", expected, shift.CalculatedEarnings),
			Type:    "shift_validation_error",
		})
	}

	if shift.Confidence < 0 || shift.Confidence > 1 {
		result.Violations = append(result.Violations, model.Violation{
			Message: fmt.Sprintf("Invalid confidence score: %g", shift.Confidence),
			Type:    "shift_validation_error",
		})
	} else if shift.Confidence < 0.5 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Low confidence shift: %g", shift.Confidence))
	}

	result.Finalize()
	return result
}

// DailyHours sums working hours per calendar date.
func DailyHours(shifts []model.SuggestedShift) map[string]float64 {
	daily := make(map[string]float64)
	for _, shift := range shifts {
		daily[shift.Date.String()] += shift.WorkingHours
	}
	return daily
}

// WeeklyHours sums working hours per ISO week.
func WeeklyHours(shifts []model.SuggestedShift) map[int]float64 {
	weekly := make(map[int]float64)
	for _, shift := range shifts {
		weekly[shift.Date.WeekKey()] += shift.WorkingHours
	}
	return weekly
}

type shiftOverlap struct {
	date string
	a, b model.SuggestedShift
}

func findOverlappingShifts(shifts []model.SuggestedShift) []shiftOverlap {
	byDate := make(map[string][]model.SuggestedShift)
	for _, shift := range shifts {
		key := shift.Date.String()
		byDate[key] = append(byDate[key], shift)
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var overlaps []shiftOverlap
	for _, date := range dates {
		group := byDate[date]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if model.ClockRangesOverlap(group[i].StartTime, group[i].EndTime, group[j].StartTime, group[j].EndTime) {
					overlaps = append(overlaps, shiftOverlap{date: date, a: group[i], b: group[j]})
				}
			}
		}
	}
	return overlaps
}

func maxValue(m map[string]float64) float64 {
	max := 0.0
	for _, v := range m {
		if v > max {
			max = v
		}
	}
	return max
}

func maxIntKeyed(m map[int]float64) float64 {
	max := 0.0
	for _, v := range m {
		if v > max {
			max = v
		}
	}
	return max
}
