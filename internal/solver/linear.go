package solver

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"shiftopt/internal/model"
	"shiftopt/internal/problem"
)

// shiftVariable is one candidate shift in the linear program.
type shiftVariable struct {
	dateIdx   int
	sourceIdx int
	startHour int
	duration  int
}

func (v shiftVariable) endHour() int { return v.startHour + v.duration }

// LinearStrategy builds an LP relaxation over candidate shift variables,
// solves it with a dense simplex and lifts fractional results back into
// shifts. On solver failure it degrades to the deterministic fallback.
type LinearStrategy struct{}

// NewLinearStrategy returns the linear-programming solver.
func NewLinearStrategy() *LinearStrategy {
	return &LinearStrategy{}
}

// Kind implements Strategy.
func (s *LinearStrategy) Kind() model.AlgorithmKind {
	return model.AlgorithmLinearProgramming
}

// Optimize implements Strategy.
func (s *LinearStrategy) Optimize(ctx context.Context, p *problem.Problem) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vars := generateVariables(p)
	if len(vars) == 0 {
		log.Warn().Msg("No feasible shift variables, using fallback schedule")
		return s.fallback(p), nil
	}

	c := objectiveCoefficients(p, vars)
	a, b := constraintRows(p, vars)

	maxIter := 1000
	if p.Request.Preferences.MaxIterations != nil && *p.Request.Preferences.MaxIterations > 0 {
		maxIter = *p.Request.Preferences.MaxIterations
	}

	x, value, status := solveSimplex(ctx, c, a, b, maxIter)
	if status != simplexOptimal {
		log.Warn().
			Int("status", int(status)).
			Int("variables", len(vars)).
			Msg("Simplex did not reach optimality, using fallback schedule")
		return s.fallback(p), nil
	}

	shifts := liftSolution(p, vars, x)
	if len(shifts) == 0 {
		return s.fallback(p), nil
	}

	objective := value
	if p.Request.Objective != model.ObjectiveMinimizeHours {
		objective = -value
	}

	log.Debug().
		Int("variables", len(vars)).
		Int("constraints", len(a)).
		Int("shifts", len(shifts)).
		Float64("objective", objective).
		Msg("Linear program solved")

	return &Result{
		Shifts:         shifts,
		ObjectiveValue: objective,
		Confidence:     0.9,
		Metadata: map[string]interface{}{
			"variables":   len(vars),
			"constraints": len(a),
		},
	}, nil
}

func (s *LinearStrategy) fallback(p *problem.Problem) *Result {
	shifts := fallbackSchedule(p)
	return &Result{
		Shifts:         shifts,
		ObjectiveValue: totalEarnings(shifts),
		Confidence:     0.5,
		Metadata:       map[string]interface{}{"fallback": true},
	}
}

// generateVariables enumerates candidate shifts: every combination of date,
// job source, duration in {4,6,8} and start hour in [8,20] that ends by
// 22:00 and fits the availability matrix and existing shifts.
func generateVariables(p *problem.Problem) []shiftVariable {
	durations := []int{4, 6, 8}

	var vars []shiftVariable
	for d := range p.Dates {
		for j := range p.JobSources {
			for _, dur := range durations {
				for start := 8; start <= 20 && start+dur <= 22; start++ {
					if !p.WindowOpen(d, start, start+dur) {
						continue
					}
					vars = append(vars, shiftVariable{dateIdx: d, sourceIdx: j, startHour: start, duration: dur})
				}
			}
		}
	}
	return vars
}

// objectiveCoefficients returns the minimization-form cost vector.
func objectiveCoefficients(p *problem.Problem, vars []shiftVariable) []float64 {
	c := make([]float64, len(vars))
	minimizeHours := p.Request.Objective == model.ObjectiveMinimizeHours
	for i, v := range vars {
		if minimizeHours {
			c[i] = float64(v.duration)
		} else {
			c[i] = -p.JobSources[v.sourceIdx].HourlyRate * float64(v.duration)
		}
	}
	return c
}

// constraintRows assembles the A·x ≤ b system: daily and weekly hour caps,
// the prorated fuyou ceiling, pairwise same-date overlap exclusions and the
// x ≤ 1 relaxation bounds.
func constraintRows(p *problem.Problem, vars []shiftVariable) ([][]float64, []float64) {
	var a [][]float64
	var b []float64

	addRow := func(coeffs []float64, limit float64) {
		a = append(a, coeffs)
		b = append(b, limit)
	}

	if daily, ok := p.ConstraintValue(model.ConstraintDailyHours); ok {
		for d := range p.Dates {
			row := make([]float64, len(vars))
			active := false
			for i, v := range vars {
				if v.dateIdx == d {
					row[i] = float64(v.duration)
					active = true
				}
			}
			if active {
				// Committed shifts consume part of the daily budget.
				limit := daily - p.ExistingHoursOn(p.Dates[d])
				if limit < 0 {
					limit = 0
				}
				addRow(row, limit)
			}
		}
	}

	if weekly, ok := p.ConstraintValue(model.ConstraintWeeklyHours); ok {
		weeks := make(map[int][]int)
		for i, v := range vars {
			key := p.Dates[v.dateIdx].WeekKey()
			weeks[key] = append(weeks[key], i)
		}
		keys := make([]int, 0, len(weeks))
		for key := range weeks {
			keys = append(keys, key)
		}
		sort.Ints(keys)
		for _, key := range keys {
			row := make([]float64, len(vars))
			for _, i := range weeks[key] {
				row[i] = float64(vars[i].duration)
			}
			addRow(row, weekly)
		}
	}

	if _, ok := p.ConstraintValue(model.ConstraintFuyouLimit); ok {
		row := make([]float64, len(vars))
		for i, v := range vars {
			row[i] = p.JobSources[v.sourceIdx].HourlyRate * float64(v.duration)
		}
		addRow(row, p.ProratedFuyouLimit(1_030_000))
	}

	for i := 0; i < len(vars); i++ {
		for j := i + 1; j < len(vars); j++ {
			if vars[i].dateIdx != vars[j].dateIdx {
				continue
			}
			if hourRangesOverlap(vars[i], vars[j]) {
				row := make([]float64, len(vars))
				row[i] = 1
				row[j] = 1
				addRow(row, 1)
			}
		}
	}

	for i := range vars {
		row := make([]float64, len(vars))
		row[i] = 1
		addRow(row, 1)
	}

	return a, b
}

func hourRangesOverlap(a, b shiftVariable) bool {
	return !(a.endHour() <= b.startHour || b.endHour() <= a.startHour)
}

// liftSolution turns the fractional LP point into concrete shifts. Variables
// above the 0.5 threshold are considered selected, then a greedy repair pass
// re-checks overlap and cap feasibility because a fractional vertex can put
// several conflicting variables just past the threshold.
func liftSolution(p *problem.Problem, vars []shiftVariable, x []float64) []model.SuggestedShift {
	type pick struct {
		idx   int
		value float64
	}
	var picks []pick
	for i, value := range x {
		if value > 0.5 {
			picks = append(picks, pick{idx: i, value: value})
		}
	}
	sort.Slice(picks, func(i, j int) bool {
		if picks[i].value != picks[j].value {
			return picks[i].value > picks[j].value
		}
		return picks[i].idx < picks[j].idx
	})

	dailyLimit, hasDaily := p.ConstraintValue(model.ConstraintDailyHours)
	weeklyLimit, hasWeekly := p.ConstraintValue(model.ConstraintWeeklyHours)
	_, hasFuyou := p.ConstraintValue(model.ConstraintFuyouLimit)
	fuyouLimit := p.ProratedFuyouLimit(1_030_000)

	accepted := make(map[int][]shiftVariable)
	dailyUsed := make(map[int]float64)
	for d := range p.Dates {
		if hours := p.ExistingHoursOn(p.Dates[d]); hours > 0 {
			dailyUsed[d] = hours
		}
	}
	weeklyUsed := make(map[int]float64)
	var earned float64

	var shifts []model.SuggestedShift
	for _, pk := range picks {
		v := vars[pk.idx]
		conflict := false
		for _, other := range accepted[v.dateIdx] {
			if hourRangesOverlap(v, other) {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}

		js := p.JobSources[v.sourceIdx]
		dur := float64(v.duration)
		week := p.Dates[v.dateIdx].WeekKey()
		if hasDaily && dailyUsed[v.dateIdx]+dur > dailyLimit {
			continue
		}
		if hasWeekly && weeklyUsed[week]+dur > weeklyLimit {
			continue
		}

		shift := buildShift(js, p.Dates[v.dateIdx], v.startHour, v.duration, 0.9,
			fmt.Sprintf("Optimized %dh shift at %s (LP value %.2f)", v.duration, js.Name, pk.value))
		if hasFuyou && earned+shift.CalculatedEarnings > fuyouLimit {
			continue
		}

		accepted[v.dateIdx] = append(accepted[v.dateIdx], v)
		dailyUsed[v.dateIdx] += dur
		weeklyUsed[week] += dur
		earned += shift.CalculatedEarnings
		shifts = append(shifts, shift)
	}

	sort.Slice(shifts, func(i, j int) bool {
		if !shifts[i].Date.Equal(shifts[j].Date) {
			return shifts[i].Date.Before(shifts[j].Date)
		}
		return shifts[i].StartTime < shifts[j].StartTime
	})
	return shifts
}
