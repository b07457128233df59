package validate

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"shiftopt/internal/model"
)

// ConstraintManager validates optimization requests before they reach a
// solver: tier policy, constraint sanity, mutual compatibility, time range
// and job sources. Validators return structured results and never error
// for expected failures.
type ConstraintManager struct {
	tierLimits map[model.TierLevel]model.TierLimits
}

// NewConstraintManager builds a manager with the built-in tier table.
func NewConstraintManager() *ConstraintManager {
	return &ConstraintManager{tierLimits: defaultTierLimits()}
}

// TierLimitsFor exposes the policy for a tier.
func (m *ConstraintManager) TierLimitsFor(tier model.TierLevel) (model.TierLimits, bool) {
	limits, ok := m.tierLimits[tier]
	return limits, ok
}

// ValidateRequest runs the full pre-solve cascade over a request.
func (m *ConstraintManager) ValidateRequest(req *model.OptimizationRequest) model.ValidationResult {
	result := model.ValidationResult{}

	result.Merge(m.validateTierLimits(req))
	result.Merge(m.ValidateConstraints(req.Constraints))
	result.Merge(m.validateTimeRange(req))
	result.Merge(m.validateJobSources(req))
	result.Merge(m.validateExistingShifts(req))

	result.Finalize()
	if !result.IsValid {
		log.Debug().
			Str("user", req.UserID).
			Int("violations", len(result.Violations)).
			Msg("Request rejected by validator")
	}
	return result
}

// ValidateConstraints checks the constraint list in isolation, including
// cross-constraint compatibility.
func (m *ConstraintManager) ValidateConstraints(constraints []model.Constraint) model.ValidationResult {
	result := model.ValidationResult{}

	if len(constraints) == 0 {
		result.Violations = append(result.Violations, model.Violation{
			Message: "At least one constraint is required",
			Type:    "missing_constraints",
		})
		result.Finalize()
		return result
	}

	seen := make(map[model.ConstraintKind]bool, len(constraints))
	duplicate := false
	for _, c := range constraints {
		if seen[c.Type] {
			duplicate = true
		}
		seen[c.Type] = true
	}
	if duplicate {
		result.Violations = append(result.Violations, model.Violation{
			Message: "Duplicate constraint types are not allowed",
			Type:    "constraint_error",
		})
	}

	for _, c := range constraints {
		result.Merge(m.validateSingleConstraint(c))
	}
	result.Merge(m.validateConstraintCompatibility(constraints))

	result.Finalize()
	return result
}

func (m *ConstraintManager) validateTierLimits(req *model.OptimizationRequest) model.ValidationResult {
	result := model.ValidationResult{}

	limits, ok := m.tierLimits[req.TierLevel]
	if !ok {
		result.Violations = append(result.Violations, model.Violation{
			Message: fmt.Sprintf("Invalid tier level: %s", req.TierLevel),
			Type:    "invalid_tier",
		})
		result.Finalize()
		return result
	}

	algorithm := req.Preferences.EffectiveAlgorithm()
	if !limits.AllowsAlgorithm(algorithm) {
		result.Violations = append(result.Violations, model.Violation{
			Message: fmt.Sprintf("Algorithm '%s' is not available for %s tier", algorithm, req.TierLevel),
			Type:    "tier_limit_error",
		})
		result.Suggestions = append(result.Suggestions,
			fmt.Sprintf("Upgrade to a higher tier to access the %s algorithm", algorithm))
	}

	if limits.MaxConstraints != -1 && len(req.Constraints) > limits.MaxConstraints {
		result.Violations = append(result.Violations, model.Violation{
			Message: fmt.Sprintf("Too many constraints: %d > %d (limit for %s tier)",
				len(req.Constraints), limits.MaxConstraints, req.TierLevel),
			Type: "tier_limit_error",
		})
		result.Suggestions = append(result.Suggestions,
			fmt.Sprintf("Reduce constraints to %d or upgrade to a higher tier", limits.MaxConstraints))
	}

	if horizon := req.TimeRange.Days(); horizon > limits.MaxTimeHorizon {
		result.Violations = append(result.Violations, model.Violation{
			Message: fmt.Sprintf("Time horizon too long: %d days > %d days (limit for %s tier)",
				horizon, limits.MaxTimeHorizon, req.TierLevel),
			Type: "tier_limit_error",
		})
		result.Suggestions = append(result.Suggestions,
			fmt.Sprintf("Reduce time horizon to %d days or upgrade to a higher tier", limits.MaxTimeHorizon))
	}

	result.Finalize()
	return result
}

func (m *ConstraintManager) validateSingleConstraint(c model.Constraint) model.ValidationResult {
	result := model.ValidationResult{}

	if c.Value <= 0 {
		result.Violations = append(result.Violations, model.Violation{
			Message: fmt.Sprintf("Constraint value must be positive: %g", c.Value),
			Type:    "constraint_value_error",
		})
	}
	if c.Priority != 0 && (c.Priority < model.PriorityHard || c.Priority > model.PriorityNice) {
		result.Violations = append(result.Violations, model.Violation{
			Message: fmt.Sprintf("Constraint priority out of range: %d", c.Priority),
			Type:    "constraint_value_error",
		})
	}

	switch c.Type {
	case model.ConstraintFuyouLimit:
		if c.Value > 5_000_000 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Fuyou limit seems very high: %g yen", c.Value))
			result.Suggestions = append(result.Suggestions,
				"Consider double-checking the fuyou limit value")
		} else if c.Value < 500_000 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Fuyou limit seems very low: %g yen", c.Value))
		}
	case model.ConstraintDailyHours:
		if c.Value > 16 {
			result.Violations = append(result.Violations, model.Violation{
				Message: fmt.Sprintf("Daily hours limit too high: %g hours", c.Value),
				Type:    "constraint_value_error",
			})
			result.Suggestions = append(result.Suggestions,
				"Consider setting daily hours limit to 8-12 hours")
		} else if c.Value < 1 {
			result.Violations = append(result.Violations, model.Violation{
				Message: fmt.Sprintf("Daily hours limit too low: %g hours", c.Value),
				Type:    "constraint_value_error",
			})
		}
	case model.ConstraintWeeklyHours:
		if c.Value > 80 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Weekly hours limit very high: %g hours", c.Value))
			result.Suggestions = append(result.Suggestions,
				"Consider reducing weekly hours for better work-life balance")
		} else if c.Value < 5 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Weekly hours limit very low: %g hours", c.Value))
		}
	}

	result.Finalize()
	return result
}

func (m *ConstraintManager) validateConstraintCompatibility(constraints []model.Constraint) model.ValidationResult {
	result := model.ValidationResult{}

	byKind := make(map[model.ConstraintKind]model.Constraint, len(constraints))
	for _, c := range constraints {
		byKind[c.Type] = c
	}

	daily, hasDaily := byKind[model.ConstraintDailyHours]
	weekly, hasWeekly := byKind[model.ConstraintWeeklyHours]
	fuyou, hasFuyou := byKind[model.ConstraintFuyouLimit]

	if hasDaily && hasWeekly {
		maxWeeklyFromDaily := daily.Value * 7
		if weekly.Value > maxWeeklyFromDaily {
			result.Violations = append(result.Violations, model.Violation{
				Message: fmt.Sprintf("Weekly hours limit (%g) is inconsistent with daily hours limit (%g)",
					weekly.Value, daily.Value),
				Type: "constraint_compatibility_error",
			})
			result.Suggestions = append(result.Suggestions,
				fmt.Sprintf("Consider setting weekly hours to %g or less", maxWeeklyFromDaily))
		}
	}

	if hasFuyou && hasWeekly {
		// Assume a floor rate of 1000 yen/hour when projecting annual income.
		maxAnnualIncome := weekly.Value * 1000 * 52
		if maxAnnualIncome > fuyou.Value*2 {
			result.Warnings = append(result.Warnings,
				"Weekly hours limit may result in income exceeding fuyou limit")
			result.Suggestions = append(result.Suggestions,
				"Consider reducing weekly hours or increasing fuyou limit")
		}
	}

	result.Finalize()
	return result
}

func (m *ConstraintManager) validateTimeRange(req *model.OptimizationRequest) model.ValidationResult {
	result := model.ValidationResult{}
	r := req.TimeRange

	if r.Start.IsZero() || r.End.IsZero() {
		result.Violations = append(result.Violations, model.Violation{
			Message: "time_range must contain start and end dates",
			Type:    "time_range_error",
		})
		result.Finalize()
		return result
	}

	if !r.Start.Before(r.End) {
		result.Violations = append(result.Violations, model.Violation{
			Message: "Start date must be before end date",
			Type:    "time_range_error",
		})
	}

	span := r.Days()
	if span > 365 {
		result.Violations = append(result.Violations, model.Violation{
			Message: fmt.Sprintf("Time range cannot exceed 365 days: %d days", span),
			Type:    "time_range_error",
		})
	} else if span < 1 {
		result.Warnings = append(result.Warnings, "Time range is very short: less than 1 day")
		result.Suggestions = append(result.Suggestions,
			"Consider optimizing at least a few days for meaningful results")
	}

	today := model.Today()
	if r.Start.Before(today.AddDays(-30)) {
		result.Warnings = append(result.Warnings, "Start date is more than 30 days in the past")
		result.Suggestions = append(result.Suggestions, "Consider using a more recent start date")
	}
	if today.AddDays(365).Before(r.End) {
		result.Warnings = append(result.Warnings, "End date is more than 1 year in the future")
		result.Suggestions = append(result.Suggestions,
			"Consider using a nearer end date for more accurate optimization")
	}

	result.Finalize()
	return result
}

func (m *ConstraintManager) validateExistingShifts(req *model.OptimizationRequest) model.ValidationResult {
	result := model.ValidationResult{}

	for _, shift := range req.ExistingShifts {
		if !model.ValidClockTime(shift.StartTime) || !model.ValidClockTime(shift.EndTime) {
			result.Violations = append(result.Violations, model.Violation{
				Message: fmt.Sprintf("Invalid time format in existing shift on %s: %s-%s",
					shift.Date, shift.StartTime, shift.EndTime),
				Type: "existing_shift_error",
			})
			continue
		}
		start, _ := model.MinutesOfDay(shift.StartTime)
		end, _ := model.MinutesOfDay(shift.EndTime)
		if start >= end {
			result.Violations = append(result.Violations, model.Violation{
				Message: fmt.Sprintf("Existing shift on %s must start before it ends: %s-%s",
					shift.Date, shift.StartTime, shift.EndTime),
				Type: "existing_shift_error",
			})
		}
	}

	result.Finalize()
	return result
}

func (m *ConstraintManager) validateJobSources(req *model.OptimizationRequest) model.ValidationResult {
	result := model.ValidationResult{}

	if len(req.JobSources) == 0 {
		result.Violations = append(result.Violations, model.Violation{
			Message: "At least one job source is required",
			Type:    "missing_job_sources",
		})
		result.Finalize()
		return result
	}

	seen := make(map[string]bool, len(req.JobSources))
	duplicate := false
	for _, js := range req.JobSources {
		if seen[js.ID] {
			duplicate = true
		}
		seen[js.ID] = true
	}
	if duplicate {
		result.Violations = append(result.Violations, model.Violation{
			Message: "Duplicate job source IDs are not allowed",
			Type:    "job_source_error",
		})
	}

	for _, js := range req.JobSources {
		if js.HourlyRate <= 0 {
			result.Violations = append(result.Violations, model.Violation{
				Message: fmt.Sprintf("Invalid hourly rate for job source '%s': %g", js.Name, js.HourlyRate),
				Type:    "job_source_error",
			})
			continue
		}
		if js.HourlyRate > 10_000 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Very high hourly rate for job source '%s': %g yen/hour", js.Name, js.HourlyRate))
		}
		if js.HourlyRate < 800 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Low hourly rate for job source '%s': %g yen/hour", js.Name, js.HourlyRate))
			result.Suggestions = append(result.Suggestions,
				"Consider verifying the hourly rate meets minimum wage requirements")
		}
	}

	result.Finalize()
	return result
}
