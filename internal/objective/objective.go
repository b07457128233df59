package objective

import (
	"math"
	"sort"
	"time"

	"shiftopt/internal/model"
	"shiftopt/internal/stats"
)

// defaultFuyouLimit is the standard dependent-income ceiling used when the
// risk term has no explicit constraint to read.
const defaultFuyouLimit = 1_030_000

// Breakdown reports the unweighted value of each scoring term.
type Breakdown map[string]float64

// IncomeWeights weight the terms of the income objective.
type IncomeWeights struct {
	Base        float64
	Overtime    float64
	Weekend     float64
	Consistency float64
	Risk        float64
}

// DefaultIncomeWeights returns the standard income weighting.
func DefaultIncomeWeights() IncomeWeights {
	return IncomeWeights{Base: 1.0, Overtime: 0.3, Weekend: 0.2, Consistency: 0.1, Risk: -0.2}
}

// BalanceWeights weight the terms of the work-life-balance objective.
type BalanceWeights struct {
	Hours       float64
	Consistency float64
	SplitShift  float64
	Evening     float64
	Rest        float64
}

// DefaultBalanceWeights returns the standard work-life weighting.
func DefaultBalanceWeights() BalanceWeights {
	return BalanceWeights{Hours: -1.0, Consistency: 0.3, SplitShift: -0.5, Evening: -0.2, Rest: 0.4}
}

// SourceWeights weight the terms of the source-balance objective.
type SourceWeights struct {
	Distribution    float64
	Relationship    float64
	SkillDiversity  float64
	IncomeDiversity float64
}

// DefaultSourceWeights returns the standard source-balance weighting.
func DefaultSourceWeights() SourceWeights {
	return SourceWeights{Distribution: 1.0, Relationship: 0.3, SkillDiversity: 0.2, IncomeDiversity: 0.4}
}

// MultiWeights blend the three objectives in the combined score.
type MultiWeights struct {
	Income        float64
	WorkLife      float64
	SourceBalance float64
}

// DefaultMultiWeights returns the standard blend.
func DefaultMultiWeights() MultiWeights {
	return MultiWeights{Income: 0.5, WorkLife: 0.3, SourceBalance: 0.2}
}

// PenaltyWeights scale constraint violations for penalty-method solvers.
type PenaltyWeights struct {
	Fuyou        float64
	DailyHours   float64
	WeeklyHours  float64
	Availability float64
}

// DefaultPenaltyWeights returns the standard penalty scaling.
func DefaultPenaltyWeights() PenaltyWeights {
	return PenaltyWeights{Fuyou: 1000, DailyHours: 100, WeeklyHours: 50, Availability: 200}
}

// Income scores a schedule for earning potential: base income plus bonuses
// for overtime days, weekend shifts and week-to-week regularity, minus a
// risk term that grows as income approaches the fuyou ceiling.
func Income(shifts []model.SuggestedShift, w IncomeWeights) (float64, Breakdown) {
	if len(shifts) == 0 {
		return 0, Breakdown{}
	}

	var base float64
	for _, s := range shifts {
		base += s.CalculatedEarnings
	}

	breakdown := Breakdown{
		"base_income":       base,
		"overtime_bonus":    overtimeBonus(shifts),
		"weekend_premium":   weekendPremium(shifts),
		"consistency_bonus": consistencyBonus(shifts),
		"risk_penalty":      riskPenalty(base),
	}

	score := base*w.Base +
		breakdown["overtime_bonus"]*w.Overtime +
		breakdown["weekend_premium"]*w.Weekend +
		breakdown["consistency_bonus"]*w.Consistency +
		breakdown["risk_penalty"]*w.Risk
	return score, breakdown
}

// WorkLifeBalance scores a schedule for sustainability: fewer hours, regular
// patterns, no split days, little evening work, real rest in between.
func WorkLifeBalance(shifts []model.SuggestedShift, w BalanceWeights) (float64, Breakdown) {
	if len(shifts) == 0 {
		return 0, Breakdown{}
	}

	var hours float64
	for _, s := range shifts {
		hours += s.WorkingHours
	}

	breakdown := Breakdown{
		"total_hours":         hours,
		"consistency_bonus":   consistencyBonus(shifts),
		"split_shift_penalty": splitShiftPenalty(shifts),
		"evening_penalty":     eveningPenalty(shifts),
		"rest_period_bonus":   restPeriodBonus(shifts),
	}

	score := hours*w.Hours +
		breakdown["consistency_bonus"]*w.Consistency +
		breakdown["split_shift_penalty"]*w.SplitShift +
		breakdown["evening_penalty"]*w.Evening +
		breakdown["rest_period_bonus"]*w.Rest
	return score, breakdown
}

// SourceBalance scores how evenly a schedule spreads work across employers.
func SourceBalance(shifts []model.SuggestedShift, sources []model.JobSource, w SourceWeights) (float64, Breakdown) {
	if len(shifts) == 0 {
		return 0, Breakdown{}
	}

	breakdown := Breakdown{
		"distribution_score": distributionScore(shifts),
		"relationship_bonus": relationshipBonus(shifts, len(sources)),
		"skill_diversity":    skillDiversity(shifts),
		"income_diversity":   incomeDiversity(shifts),
	}

	score := breakdown["distribution_score"]*w.Distribution +
		breakdown["relationship_bonus"]*w.Relationship +
		breakdown["skill_diversity"]*w.SkillDiversity +
		breakdown["income_diversity"]*w.IncomeDiversity
	return score, breakdown
}

// Multi blends the three objectives into a single weighted score.
func Multi(shifts []model.SuggestedShift, sources []model.JobSource, w MultiWeights) (float64, Breakdown) {
	income, _ := Income(shifts, DefaultIncomeWeights())
	workLife, _ := WorkLifeBalance(shifts, DefaultBalanceWeights())
	sourceBalance, _ := SourceBalance(shifts, sources, DefaultSourceWeights())

	breakdown := Breakdown{
		"income":             income,
		"work_life_balance":  workLife,
		"job_source_balance": sourceBalance,
	}
	return income*w.Income + workLife*w.WorkLife + sourceBalance*w.SourceBalance, breakdown
}

// ForObjective evaluates the scoring function matching an objective kind.
func ForObjective(kind model.ObjectiveKind, shifts []model.SuggestedShift, sources []model.JobSource) (float64, Breakdown) {
	switch kind {
	case model.ObjectiveMinimizeHours:
		return WorkLifeBalance(shifts, DefaultBalanceWeights())
	case model.ObjectiveBalanceSources:
		return SourceBalance(shifts, sources, DefaultSourceWeights())
	case model.ObjectiveMulti:
		return Multi(shifts, sources, DefaultMultiWeights())
	default:
		return Income(shifts, DefaultIncomeWeights())
	}
}

// ConstraintPenalty sums weighted violation magnitudes over the schedule.
// A feasible schedule scores zero.
func ConstraintPenalty(shifts []model.SuggestedShift, constraints map[model.ConstraintKind]model.Constraint, w PenaltyWeights) float64 {
	var penalty float64

	if c, ok := constraints[model.ConstraintFuyouLimit]; ok {
		var income float64
		for _, s := range shifts {
			income += s.CalculatedEarnings
		}
		if income > c.Value {
			penalty += (income - c.Value) * w.Fuyou
		}
	}

	if c, ok := constraints[model.ConstraintDailyHours]; ok {
		for _, hours := range dailyHours(shifts) {
			if hours > c.Value {
				penalty += (hours - c.Value) * w.DailyHours
			}
		}
	}

	if c, ok := constraints[model.ConstraintWeeklyHours]; ok {
		for _, hours := range weeklyHours(shifts) {
			if hours > c.Value {
				penalty += (hours - c.Value) * w.WeeklyHours
			}
		}
	}

	return penalty
}

func overtimeBonus(shifts []model.SuggestedShift) float64 {
	var bonus float64
	for _, hours := range dailyHours(shifts) {
		if hours > 8 {
			bonus += (hours - 8) * 500
		}
	}
	return bonus
}

func weekendPremium(shifts []model.SuggestedShift) float64 {
	var premium float64
	for _, s := range shifts {
		switch s.Date.Weekday() {
		case time.Saturday, time.Sunday:
			premium += s.CalculatedEarnings * 0.1
		}
	}
	return premium
}

// consistencyBonus rewards repeated weekly patterns: for every weekday with
// more than one shift, 500 yen when all start times match and another 300
// when all durations match.
func consistencyBonus(shifts []model.SuggestedShift) float64 {
	type pattern struct {
		starts    map[string]bool
		durations map[float64]bool
		count     int
	}
	byWeekday := make(map[time.Weekday]*pattern)
	for _, s := range shifts {
		p := byWeekday[s.Date.Weekday()]
		if p == nil {
			p = &pattern{starts: make(map[string]bool), durations: make(map[float64]bool)}
			byWeekday[s.Date.Weekday()] = p
		}
		p.starts[s.StartTime] = true
		p.durations[s.WorkingHours] = true
		p.count++
	}

	var bonus float64
	for _, p := range byWeekday {
		if p.count < 2 {
			continue
		}
		if len(p.starts) == 1 {
			bonus += 500
		}
		if len(p.durations) == 1 {
			bonus += 300
		}
	}
	return bonus
}

func splitShiftPenalty(shifts []model.SuggestedShift) float64 {
	perDay := make(map[string]int)
	for _, s := range shifts {
		perDay[s.Date.String()]++
	}
	var penalty float64
	for _, n := range perDay {
		if n > 1 {
			penalty += float64(n-1) * 1000
		}
	}
	return penalty
}

func eveningPenalty(shifts []model.SuggestedShift) float64 {
	var penalty float64
	for _, s := range shifts {
		start, err := model.MinutesOfDay(s.StartTime)
		if err != nil {
			continue
		}
		if start >= 18*60 {
			penalty += s.WorkingHours * 100
		}
	}
	return penalty
}

// restPeriodBonus rewards real recovery: 500 yen whenever at least one full
// day off separates two working dates, 200 yen for a same-day gap of two
// hours or more between shifts.
func restPeriodBonus(shifts []model.SuggestedShift) float64 {
	if len(shifts) < 2 {
		return 0
	}

	sorted := make([]model.SuggestedShift, len(shifts))
	copy(sorted, shifts)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].StartTime < sorted[j].StartTime
	})

	var bonus float64
	for i := 1; i < len(sorted); i++ {
		prev, curr := sorted[i-1], sorted[i]
		gap := curr.Date.DaysSince(prev.Date)
		if gap >= 2 {
			bonus += 500
			continue
		}
		if gap == 0 {
			prevEnd, errPrev := model.MinutesOfDay(prev.EndTime)
			currStart, errCurr := model.MinutesOfDay(curr.StartTime)
			if errPrev == nil && errCurr == nil && currStart-prevEnd >= 120 {
				bonus += 200
			}
		}
	}
	return bonus
}

func distributionScore(shifts []model.SuggestedShift) float64 {
	counts := shiftCounts(shifts)
	if len(counts) == 0 {
		return 0
	}
	if len(counts) == 1 {
		return 500
	}
	values := make([]float64, 0, len(counts))
	for _, n := range counts {
		values = append(values, float64(n))
	}
	cv := stats.CoefficientOfVariation(values)
	return math.Max(0, 1000*(1-cv))
}

func relationshipBonus(shifts []model.SuggestedShift, totalSources int) float64 {
	if totalSources == 0 {
		return 0
	}
	used := len(shiftCounts(shifts))
	return float64(used) / float64(totalSources) * 1000
}

func skillDiversity(shifts []model.SuggestedShift) float64 {
	return float64(len(shiftCounts(shifts))) * 200
}

func incomeDiversity(shifts []model.SuggestedShift) float64 {
	perSource := make(map[string]float64)
	for _, s := range shifts {
		if s.JobSourceID == "" {
			continue
		}
		perSource[s.JobSourceID] += s.CalculatedEarnings
	}
	if len(perSource) == 0 {
		return 0
	}
	incomes := make([]float64, 0, len(perSource))
	for _, income := range perSource {
		incomes = append(incomes, income)
	}
	return stats.NormalizedEntropy(incomes) * 1000
}

// riskPenalty grows linearly once income passes 80% of the fuyou ceiling.
func riskPenalty(income float64) float64 {
	threshold := 0.8 * defaultFuyouLimit
	if income <= threshold {
		return 0
	}
	return income - threshold
}

func shiftCounts(shifts []model.SuggestedShift) map[string]int {
	counts := make(map[string]int)
	for _, s := range shifts {
		if s.JobSourceID == "" {
			continue
		}
		counts[s.JobSourceID]++
	}
	return counts
}

func dailyHours(shifts []model.SuggestedShift) map[string]float64 {
	daily := make(map[string]float64)
	for _, s := range shifts {
		daily[s.Date.String()] += s.WorkingHours
	}
	return daily
}

func weeklyHours(shifts []model.SuggestedShift) map[int]float64 {
	weekly := make(map[int]float64)
	for _, s := range shifts {
		weekly[s.Date.WeekKey()] += s.WorkingHours
	}
	return weekly
}
