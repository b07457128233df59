package validate

import "shiftopt/internal/model"

// tierLimits is the effectively-immutable tier policy table, initialized
// once at startup and shared by every request.
func defaultTierLimits() map[model.TierLevel]model.TierLimits {
	return map[model.TierLevel]model.TierLimits{
		model.TierFree: {
			MaxOptimizationRuns: 5,
			AvailableAlgorithms: []model.AlgorithmKind{model.AlgorithmLinearProgramming},
			MaxConstraints:      5,
			MaxTimeHorizon:      30,
			AnalyticsAccess:     false,
			APIAccess:           false,
			SupportLevel:        "basic",
		},
		model.TierStandard: {
			MaxOptimizationRuns: 50,
			AvailableAlgorithms: []model.AlgorithmKind{model.AlgorithmLinearProgramming, model.AlgorithmGenetic},
			MaxConstraints:      15,
			MaxTimeHorizon:      90,
			AnalyticsAccess:     true,
			APIAccess:           false,
			SupportLevel:        "standard",
		},
		model.TierPro: {
			MaxOptimizationRuns: -1,
			AvailableAlgorithms: []model.AlgorithmKind{model.AlgorithmLinearProgramming, model.AlgorithmGenetic, model.AlgorithmNSGA2},
			MaxConstraints:      -1,
			MaxTimeHorizon:      365,
			AnalyticsAccess:     true,
			APIAccess:           true,
			SupportLevel:        "premium",
		},
	}
}
