package service

import "shiftopt/internal/model"

// algorithmCatalog is the static /algorithms listing.
func algorithmCatalog() []model.AlgorithmInfo {
	return []model.AlgorithmInfo{
		{
			ID:            model.AlgorithmLinearProgramming,
			Name:          "Linear Programming",
			Description:   "LP relaxation over candidate shift variables with threshold lifting. Fast and predictable for income or hour objectives.",
			Complexity:    "low",
			ExecutionTime: "fast",
			SuitableFor: []model.ObjectiveKind{
				model.ObjectiveMaximizeIncome,
				model.ObjectiveMinimizeHours,
			},
			TierRequirement: model.TierFree,
			Parameters: map[string]interface{}{
				"max_iterations": 1000,
			},
		},
		{
			ID:            model.AlgorithmGenetic,
			Name:          "Genetic Algorithm",
			Description:   "Population-based search with tournament selection, elitism and union-sample crossover. Handles soft constraints via penalties.",
			Complexity:    "medium",
			ExecutionTime: "moderate",
			SuitableFor: []model.ObjectiveKind{
				model.ObjectiveMaximizeIncome,
				model.ObjectiveMinimizeHours,
				model.ObjectiveBalanceSources,
			},
			TierRequirement: model.TierStandard,
			Parameters: map[string]interface{}{
				"population_size": 50,
				"generations":     100,
				"crossover_rate":  0.8,
				"mutation_rate":   0.1,
			},
		},
		{
			ID:            model.AlgorithmSimulatedAnnealing,
			Name:          "Simulated Annealing",
			Description:   "Stochastic local search sharing the evolutionary machinery. Useful for escaping local optima on rugged objectives.",
			Complexity:    "medium",
			ExecutionTime: "moderate",
			SuitableFor: []model.ObjectiveKind{
				model.ObjectiveMaximizeIncome,
				model.ObjectiveBalanceSources,
			},
			TierRequirement: model.TierStandard,
		},
		{
			ID:            model.AlgorithmNSGA2,
			Name:          "Multi-Objective NSGA-II",
			Description:   "Non-dominated sorting search balancing income, hours and source distribution on a Pareto front.",
			Complexity:    "high",
			ExecutionTime: "slow",
			SuitableFor: []model.ObjectiveKind{
				model.ObjectiveMulti,
				model.ObjectiveBalanceSources,
			},
			TierRequirement: model.TierPro,
			Parameters: map[string]interface{}{
				"population_size": 50,
				"generations":     50,
			},
		},
	}
}
