package stats

import "math"

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation of values.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// CoefficientOfVariation returns StdDev/Mean, or 0 when the mean is zero.
// Lower values mean a more even distribution.
func CoefficientOfVariation(values []float64) float64 {
	m := Mean(values)
	if m == 0 {
		return 0
	}
	return StdDev(values) / m
}

// NormalizedEntropy returns the Shannon entropy of the distribution implied
// by the (non-negative) weights, normalized to [0,1] where 1 is a perfectly
// even split. A distribution over a single bucket has entropy 0.
func NormalizedEntropy(weights []float64) float64 {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 || len(weights) < 2 {
		return 0
	}
	entropy := 0.0
	for _, w := range weights {
		if w <= 0 {
			continue
		}
		p := w / total
		entropy -= p * math.Log2(p)
	}
	maxEntropy := math.Log2(float64(len(weights)))
	if maxEntropy == 0 {
		return 0
	}
	return entropy / maxEntropy
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
