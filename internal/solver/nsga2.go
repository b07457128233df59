package solver

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"shiftopt/internal/model"
	"shiftopt/internal/problem"
	"shiftopt/internal/stats"
)

const (
	nsgaPopulationSize = 50
	nsgaGenerations    = 50
	nsgaObjectives     = 3
)

// nsgaIndividual carries a genome and its objective vector in minimization
// form: negated income, total hours, negated balance score.
type nsgaIndividual struct {
	g        genome
	objs     [nsgaObjectives]float64
	rank     int
	crowding float64
}

// MultiObjectiveStrategy searches for schedules trading off income, hours
// and source balance using non-dominated sorting and crowding distance.
type MultiObjectiveStrategy struct {
	Population  int
	Generations int
}

// NewMultiObjectiveStrategy returns the NSGA-II solver.
func NewMultiObjectiveStrategy() *MultiObjectiveStrategy {
	return &MultiObjectiveStrategy{Population: nsgaPopulationSize, Generations: nsgaGenerations}
}

// Kind implements Strategy.
func (s *MultiObjectiveStrategy) Kind() model.AlgorithmKind {
	return model.AlgorithmNSGA2
}

// Optimize implements Strategy.
func (s *MultiObjectiveStrategy) Optimize(ctx context.Context, p *problem.Problem) (*Result, error) {
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

	population := make([]*nsgaIndividual, s.Population)
	for i := range population {
		population[i] = s.evaluate(p, randomGenome(p, rng))
	}

	timedOut := false
	for gen := 0; gen < generations; gen++ {
		if ctx.Err() != nil {
			timedOut = true
			break
		}

		rankPopulation(population)

		offspring := make([]*nsgaIndividual, 0, len(population))
		for len(offspring) < len(population) {
			parentA := crowdedTournament(population, rng)
			parentB := crowdedTournament(population, rng)
			child := crossover(parentA.g, parentB.g, rng)
			if rng.Float64() < gaMutationRate {
				mutate(child, p, rng)
			}
			offspring = append(offspring, s.evaluate(p, child))
		}

		population = selectSurvivors(append(population, offspring...), s.Population)
	}
	rankPopulation(population)

	best := pickMostBalanced(population)
	if best == nil || len(best.g) == 0 {
		return s.fallback(p), nil
	}

	gaStrategy := GeneticStrategy{}
	shifts := gaStrategy.lift(p, best.g, model.ObjectiveBalanceSources)
	if len(shifts) == 0 {
		return s.fallback(p), nil
	}

	balance := -best.objs[2]
	frontSize := 0
	for _, ind := range population {
		if ind.rank == 0 {
			frontSize++
		}
	}

	log.Debug().
		Int("pareto_front", frontSize).
		Float64("balance", balance).
		Bool("timed_out", timedOut).
		Msg("Multi-objective search finished")

	return &Result{
		Shifts:         shifts,
		ObjectiveValue: balance,
		Confidence:     0.85,
		Metadata: map[string]interface{}{
			"pareto_front_size": frontSize,
			"balance_score":     balance,
			"total_income":      -best.objs[0],
			"total_hours":       best.objs[1],
			"timed_out":         timedOut,
		},
	}, nil
}

// fallback distributes 6-hour 10:00 shifts round-robin across job sources
// over the first 21 days of the horizon.
func (s *MultiObjectiveStrategy) fallback(p *problem.Problem) *Result {
	days := len(p.Dates)
	if days > 21 {
		days = 21
	}

	var shifts []model.SuggestedShift
	for d := 0; d < days; d++ {
		js := p.JobSources[d%len(p.JobSources)]
		shifts = append(shifts, buildShift(js, p.Dates[d], 10, 6, 0.6,
			"Round-robin baseline shift for source balance"))
	}

	return &Result{
		Shifts:         shifts,
		ObjectiveValue: balanceScore(shifts),
		Confidence:     0.6,
		Metadata: map[string]interface{}{
			"fallback":      true,
			"balance_score": balanceScore(shifts),
		},
	}
}

func (s *MultiObjectiveStrategy) evaluate(p *problem.Problem, g genome) *nsgaIndividual {
	var income, hours float64
	counts := make(map[int]float64)
	for _, gene := range g {
		income += gene.hours * p.JobSources[gene.sourceIdx].HourlyRate
		hours += gene.hours
		counts[gene.sourceIdx]++
	}

	balance := 0.0
	if len(counts) > 0 {
		values := make([]float64, 0, len(counts))
		for _, n := range counts {
			values = append(values, n)
		}
		balance = 1 - stats.CoefficientOfVariation(values)
	}

	return &nsgaIndividual{g: g, objs: [nsgaObjectives]float64{-income, hours, -balance}}
}

// dominates reports Pareto dominance in minimization form.
func dominates(a, b *nsgaIndividual) bool {
	strictly := false
	for i := 0; i < nsgaObjectives; i++ {
		if a.objs[i] > b.objs[i] {
			return false
		}
		if a.objs[i] < b.objs[i] {
			strictly = true
		}
	}
	return strictly
}

// rankPopulation assigns non-domination ranks and crowding distances.
func rankPopulation(population []*nsgaIndividual) {
	n := len(population)
	dominatedBy := make([]int, n)
	dominating := make([][]int, n)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if dominates(population[i], population[j]) {
				dominating[i] = append(dominating[i], j)
				dominatedBy[j]++
			} else if dominates(population[j], population[i]) {
				dominating[j] = append(dominating[j], i)
				dominatedBy[i]++
			}
		}
	}

	var front []int
	for i := 0; i < n; i++ {
		if dominatedBy[i] == 0 {
			population[i].rank = 0
			front = append(front, i)
		}
	}

	rank := 0
	for len(front) > 0 {
		assignCrowding(population, front)
		var next []int
		for _, i := range front {
			for _, j := range dominating[i] {
				dominatedBy[j]--
				if dominatedBy[j] == 0 {
					population[j].rank = rank + 1
					next = append(next, j)
				}
			}
		}
		front = next
		rank++
	}
}

func assignCrowding(population []*nsgaIndividual, front []int) {
	for _, i := range front {
		population[i].crowding = 0
	}
	if len(front) <= 2 {
		for _, i := range front {
			population[i].crowding = math.Inf(1)
		}
		return
	}

	for obj := 0; obj < nsgaObjectives; obj++ {
		sorted := make([]int, len(front))
		copy(sorted, front)
		sort.Slice(sorted, func(a, b int) bool {
			return population[sorted[a]].objs[obj] < population[sorted[b]].objs[obj]
		})

		lo := population[sorted[0]].objs[obj]
		hi := population[sorted[len(sorted)-1]].objs[obj]
		population[sorted[0]].crowding = math.Inf(1)
		population[sorted[len(sorted)-1]].crowding = math.Inf(1)
		if hi == lo {
			continue
		}
		for k := 1; k < len(sorted)-1; k++ {
			gap := population[sorted[k+1]].objs[obj] - population[sorted[k-1]].objs[obj]
			population[sorted[k]].crowding += gap / (hi - lo)
		}
	}
}

func crowdedTournament(population []*nsgaIndividual, rng *rand.Rand) *nsgaIndividual {
	a := population[rng.Intn(len(population))]
	b := population[rng.Intn(len(population))]
	if a.rank != b.rank {
		if a.rank < b.rank {
			return a
		}
		return b
	}
	if a.crowding >= b.crowding {
		return a
	}
	return b
}

func selectSurvivors(combined []*nsgaIndividual, target int) []*nsgaIndividual {
	rankPopulation(combined)
	sort.Slice(combined, func(i, j int) bool {
		if combined[i].rank != combined[j].rank {
			return combined[i].rank < combined[j].rank
		}
		return combined[i].crowding > combined[j].crowding
	})
	return combined[:target]
}

// pickMostBalanced takes the first-front individual with the best balance
// score, which is the externally visible contract of this strategy.
func pickMostBalanced(population []*nsgaIndividual) *nsgaIndividual {
	var best *nsgaIndividual
	for _, ind := range population {
		if ind.rank != 0 || len(ind.g) == 0 {
			continue
		}
		if best == nil || ind.objs[2] < best.objs[2] {
			best = ind
		}
	}
	return best
}

// balanceScore is 1 − cv over the per-source shift counts.
func balanceScore(shifts []model.SuggestedShift) float64 {
	counts := make(map[string]float64)
	for _, s := range shifts {
		counts[s.JobSourceID]++
	}
	if len(counts) == 0 {
		return 0
	}
	values := make([]float64, 0, len(counts))
	for _, n := range counts {
		values = append(values, n)
	}
	return 1 - stats.CoefficientOfVariation(values)
}
