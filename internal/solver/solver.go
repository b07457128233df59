package solver

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"shiftopt/internal/model"
	"shiftopt/internal/problem"
)

// Result is the raw outcome of one solver run before it becomes a full
// OptimizationSolution.
type Result struct {
	Shifts         []model.SuggestedShift
	ObjectiveValue float64
	Confidence     float64
	Metadata       map[string]interface{}
}

// Strategy is one solver behind the algorithm dispatch. Implementations own
// both their primary path and a deterministic fallback; callers never learn
// which path produced the result.
type Strategy interface {
	Kind() model.AlgorithmKind
	Optimize(ctx context.Context, p *problem.Problem) (*Result, error)
}

// ForAlgorithm returns the strategy for an algorithm kind.
func ForAlgorithm(kind model.AlgorithmKind) (Strategy, error) {
	switch kind {
	case model.AlgorithmLinearProgramming:
		return NewLinearStrategy(), nil
	case model.AlgorithmGenetic, model.AlgorithmSimulatedAnnealing:
		// Simulated annealing shares the evolutionary machinery for now.
		return NewGeneticStrategy(), nil
	case model.AlgorithmNSGA2:
		return NewMultiObjectiveStrategy(), nil
	default:
		return nil, fmt.Errorf("unknown algorithm: %s", kind)
	}
}

// fallbackSchedule is the shared deterministic fallback: one 6-hour shift at
// 10:00 on each of the first seven dates at the highest-paying job, stopping
// once cumulative earnings reach 80% of the fuyou limit.
func fallbackSchedule(p *problem.Problem) []model.SuggestedShift {
	best := p.HighestRateSource()
	ceiling := 0.8 * p.FuyouLimit(1_030_000)

	days := len(p.Dates)
	if days > 7 {
		days = 7
	}

	var shifts []model.SuggestedShift
	var earned float64
	for d := 0; d < days; d++ {
		shift := buildShift(best, p.Dates[d], 10, 6, 0.5, "Fallback schedule: fixed 6h shift at highest-rate job")
		if earned+shift.CalculatedEarnings > ceiling {
			break
		}
		earned += shift.CalculatedEarnings
		shifts = append(shifts, shift)
	}
	return shifts
}

// buildShift assembles a SuggestedShift from an hour-aligned window, applying
// the standard 30-minute unpaid break to shifts longer than six hours.
func buildShift(js model.JobSource, date model.Date, startHour, durationHours int, confidence float64, reasoning string) model.SuggestedShift {
	breakMinutes := 0
	if durationHours > 6 {
		breakMinutes = 30
	}
	working := float64(durationHours) - float64(breakMinutes)/60
	return model.SuggestedShift{
		ID:                 uuid.NewString(),
		JobSourceID:        js.ID,
		JobSourceName:      js.Name,
		Date:               date,
		StartTime:          model.HourToClock(startHour),
		EndTime:            model.HourToClock(startHour + durationHours),
		HourlyRate:         js.HourlyRate,
		BreakMinutes:       breakMinutes,
		WorkingHours:       working,
		CalculatedEarnings: working * js.HourlyRate,
		Confidence:         confidence,
		Priority:           model.PrioritySoft,
		Reasoning:          reasoning,
	}
}

func totalEarnings(shifts []model.SuggestedShift) float64 {
	var total float64
	for _, s := range shifts {
		total += s.CalculatedEarnings
	}
	return total
}
