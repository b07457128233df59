package solver

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"shiftopt/internal/model"
	"shiftopt/internal/problem"
)

const (
	gaPopulationSize = 50
	gaGenerations    = 100
	gaTournamentSize = 3
	gaEliteFraction  = 0.2
	gaCrossoverRate  = 0.8
	gaMutationRate   = 0.1

	// Annual-style thresholds applied regardless of horizon length; flagged
	// in result metadata so callers can tell.
	gaIncomeCeiling    = 1_030_000
	gaIncomeNormalizer = 1_000_000
	gaTaxNormalizer    = 2_000_000
)

// shiftGene is one scheduled block inside a genome: a date in the horizon,
// a job source and a block length in hours.
type shiftGene struct {
	dateIdx   int
	sourceIdx int
	hours     float64
}

type genome []shiftGene

// GeneticStrategy runs a generational GA over candidate schedules with
// tournament selection, elitism, union-sample crossover and two-mode
// mutation.
type GeneticStrategy struct {
	Population  int
	Generations int
}

// NewGeneticStrategy returns the GA solver with standard parameters.
func NewGeneticStrategy() *GeneticStrategy {
	return &GeneticStrategy{Population: gaPopulationSize, Generations: gaGenerations}
}

// Kind implements Strategy.
func (s *GeneticStrategy) Kind() model.AlgorithmKind {
	return model.AlgorithmGenetic
}

// Optimize implements Strategy.
func (s *GeneticStrategy) Optimize(ctx context.Context, p *problem.Problem) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seed := time.Now().UnixNano()
	if p.Request.Preferences.RandomSeed != nil {
		seed = *p.Request.Preferences.RandomSeed
	}
	rng := rand.New(rand.NewSource(seed))

	generations := s.Generations
	if p.Request.Preferences.MaxIterations != nil && *p.Request.Preferences.MaxIterations > 0 {
		generations = *p.Request.Preferences.MaxIterations
	}

	population := make([]genome, s.Population)
	for i := range population {
		population[i] = randomGenome(p, rng)
	}

	objective := p.Request.Objective
	var best genome
	bestFitness := -1.0
	timedOut := false
	ranGenerations := 0

	for gen := 0; gen < generations; gen++ {
		if ctx.Err() != nil {
			timedOut = true
			break
		}
		ranGenerations = gen + 1

		type scored struct {
			g       genome
			fitness float64
		}
		ranked := make([]scored, len(population))
		for i, g := range population {
			ranked[i] = scored{g: g, fitness: s.fitness(p, g, objective)}
		}
		sort.Slice(ranked, func(i, j int) bool { return ranked[i].fitness > ranked[j].fitness })

		if ranked[0].fitness > bestFitness {
			bestFitness = ranked[0].fitness
			best = cloneGenome(ranked[0].g)
		}

		eliteCount := int(float64(len(ranked)) * gaEliteFraction)
		next := make([]genome, 0, len(population))
		for i := 0; i < eliteCount; i++ {
			next = append(next, cloneGenome(ranked[i].g))
		}

		for len(next) < len(population) {
			parentA := s.tournament(p, population, objective, rng)
			parentB := s.tournament(p, population, objective, rng)

			child := cloneGenome(parentA)
			if rng.Float64() < gaCrossoverRate {
				child = crossover(parentA, parentB, rng)
			}
			if rng.Float64() < gaMutationRate {
				mutate(child, p, rng)
			}
			next = append(next, child)
		}
		population = next
	}

	if best == nil {
		log.Warn().Msg("Genetic search produced no candidate, using fallback schedule")
		shifts := fallbackSchedule(p)
		return &Result{
			Shifts:         shifts,
			ObjectiveValue: totalEarnings(shifts),
			Confidence:     0.5,
			Metadata:       map[string]interface{}{"fallback": true},
		}, nil
	}

	shifts := s.lift(p, best, objective)

	log.Debug().
		Int("generations", ranGenerations).
		Float64("fitness", bestFitness).
		Int("shifts", len(shifts)).
		Bool("timed_out", timedOut).
		Msg("Genetic search finished")

	return &Result{
		Shifts:         shifts,
		ObjectiveValue: bestFitness,
		Confidence:     0.8,
		Metadata: map[string]interface{}{
			"generations":       ranGenerations,
			"best_fitness":      bestFitness,
			"timed_out":         timedOut,
			"annual_thresholds": true,
		},
	}, nil
}

// randomGenome draws a schedule with roughly 60% per-day inclusion. A weekly
// workload is drawn uniformly between 10 hours and the weekly cap, then each
// working day gets hours from N(weekly/7, 2) clamped to the valid block range.
func randomGenome(p *problem.Problem, rng *rand.Rand) genome {
	hi := p.WeeklyHoursLimit(40)
	lo := 10.0
	if hi < lo {
		lo = hi
	}
	perDay := (lo + rng.Float64()*(hi-lo)) / 7
	maxHours := maxGeneHours(p)

	var g genome
	for d := range p.Dates {
		if rng.Float64() >= 0.6 {
			continue
		}
		hours := perDay + rng.NormFloat64()*2
		if hours < 2 {
			hours = 2
		}
		if hours > maxHours {
			hours = maxHours
		}
		g = append(g, shiftGene{
			dateIdx:   d,
			sourceIdx: rng.Intn(len(p.JobSources)),
			hours:     hours,
		})
	}
	return g
}

// maxGeneHours caps block length at 8 hours or the daily-hours constraint,
// whichever is smaller.
func maxGeneHours(p *problem.Problem) float64 {
	max := p.DailyHoursLimit(8)
	if max > 8 {
		max = 8
	}
	if max < 2 {
		max = 2
	}
	return max
}

// fitness normalizes the objective to roughly [0,1], then subtracts the
// income-ceiling and weekly-overwork penalties.
func (s *GeneticStrategy) fitness(p *problem.Problem, g genome, objective model.ObjectiveKind) float64 {
	var earnings, hours float64
	for _, gene := range g {
		earnings += gene.hours * p.JobSources[gene.sourceIdx].HourlyRate
		hours += gene.hours
	}

	var raw float64
	switch objective {
	case model.ObjectiveMinimizeHours:
		raw = maxFloat(0, gaTaxNormalizer-earnings) / gaTaxNormalizer
	case model.ObjectiveBalanceSources, model.ObjectiveMulti:
		raw = maxFloat(0, 1-absFloat(hours-100)/100)
	default:
		raw = earnings / gaIncomeNormalizer
	}

	var penalty float64
	if earnings > gaIncomeCeiling {
		penalty += (earnings - gaIncomeCeiling) / 100_000 * 0.5
	}
	weeks := float64(len(p.Dates)) / 7
	if weeks < 1 {
		weeks = 1
	}
	// The overwork baseline tracks the weekly-hours constraint when one is
	// present, falling back to the 40-hour default otherwise.
	weeklyLimit := p.WeeklyHoursLimit(40)
	if avgWeekly := hours / weeks; avgWeekly > weeklyLimit {
		penalty += 0.1 * (avgWeekly - weeklyLimit)
	}

	return maxFloat(0, raw-penalty)
}

func (s *GeneticStrategy) tournament(p *problem.Problem, population []genome, objective model.ObjectiveKind, rng *rand.Rand) genome {
	best := population[rng.Intn(len(population))]
	bestFitness := s.fitness(p, best, objective)
	for i := 1; i < gaTournamentSize; i++ {
		candidate := population[rng.Intn(len(population))]
		if f := s.fitness(p, candidate, objective); f > bestFitness {
			best = candidate
			bestFitness = f
		}
	}
	return best
}

// crossover unions both parents' genes and samples a subset of 5 to 15.
func crossover(a, b genome, rng *rand.Rand) genome {
	union := make(genome, 0, len(a)+len(b))
	union = append(union, a...)
	union = append(union, b...)
	if len(union) == 0 {
		return union
	}

	size := 5 + rng.Intn(11)
	if size > len(union) {
		size = len(union)
	}
	rng.Shuffle(len(union), func(i, j int) { union[i], union[j] = union[j], union[i] })
	return cloneGenome(union[:size])
}

// mutate perturbs one gene: half the time its hours drift by a unit normal
// clamped to the valid block range, otherwise it switches to a random job
// source.
func mutate(g genome, p *problem.Problem, rng *rand.Rand) {
	if len(g) == 0 {
		return
	}
	i := rng.Intn(len(g))
	if rng.Float64() < 0.5 {
		hours := g[i].hours + rng.NormFloat64()
		if hours < 2 {
			hours = 2
		}
		if max := maxGeneHours(p); hours > max {
			hours = max
		}
		g[i].hours = hours
	} else {
		g[i].sourceIdx = rng.Intn(len(p.JobSources))
	}
}

// lift converts the best genome into shifts, deduplicating per date because
// crossover can place two blocks on the same day.
func (s *GeneticStrategy) lift(p *problem.Problem, g genome, objective model.ObjectiveKind) []model.SuggestedShift {
	byDate := make(map[int]shiftGene)
	for _, gene := range g {
		existing, ok := byDate[gene.dateIdx]
		if !ok {
			byDate[gene.dateIdx] = gene
			continue
		}
		if gene.hours*p.JobSources[gene.sourceIdx].HourlyRate >
			existing.hours*p.JobSources[existing.sourceIdx].HourlyRate {
			byDate[gene.dateIdx] = gene
		}
	}

	shifts := make([]model.SuggestedShift, 0, len(byDate))
	for _, gene := range byDate {
		js := p.JobSources[gene.sourceIdx]
		startMin := 9 * 60
		endMin := startMin + int(gene.hours*60+0.5)
		shifts = append(shifts, model.SuggestedShift{
			ID:                 uuid.NewString(),
			JobSourceID:        js.ID,
			JobSourceName:      js.Name,
			Date:               p.Dates[gene.dateIdx],
			StartTime:          clockFromMinutes(startMin),
			EndTime:            clockFromMinutes(endMin),
			HourlyRate:         js.HourlyRate,
			WorkingHours:       gene.hours,
			CalculatedEarnings: gene.hours * js.HourlyRate,
			Confidence:         0.8,
			Priority:           model.PrioritySoft,
			Reasoning:          fmt.Sprintf("Evolved %.1fh shift at %s", gene.hours, js.Name),
		})
	}

	switch objective {
	case model.ObjectiveMinimizeHours:
		// Greedy pack highest earners under the income ceiling.
		sort.Slice(shifts, func(i, j int) bool {
			return shifts[i].CalculatedEarnings > shifts[j].CalculatedEarnings
		})
		var packed []model.SuggestedShift
		var cumulative float64
		for _, shift := range shifts {
			if cumulative+shift.CalculatedEarnings > gaIncomeCeiling {
				continue
			}
			cumulative += shift.CalculatedEarnings
			packed = append(packed, shift)
		}
		shifts = packed
	default:
		sort.Slice(shifts, func(i, j int) bool {
			if shifts[i].HourlyRate != shifts[j].HourlyRate {
				return shifts[i].HourlyRate > shifts[j].HourlyRate
			}
			return shifts[i].Date.Before(shifts[j].Date)
		})
	}

	return shifts
}

func cloneGenome(g genome) genome {
	out := make(genome, len(g))
	copy(out, g)
	return out
}

func clockFromMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
