package stats

import (
	"math"
	"testing"
)

func TestMeanAndStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	if got := Mean(values); got != 5 {
		t.Errorf("Expected mean 5, got %f", got)
	}
	if got := StdDev(values); got != 2 {
		t.Errorf("Expected std dev 2, got %f", got)
	}
}

func TestMean_Empty(t *testing.T) {
	if got := Mean(nil); got != 0 {
		t.Errorf("Expected 0 for empty input, got %f", got)
	}
	if got := StdDev(nil); got != 0 {
		t.Errorf("Expected 0 for empty input, got %f", got)
	}
}

func TestCoefficientOfVariation(t *testing.T) {
	// Perfectly even counts have zero spread.
	if got := CoefficientOfVariation([]float64{3, 3, 3}); got != 0 {
		t.Errorf("Expected cv 0 for even counts, got %f", got)
	}

	// A zero mean must not divide by zero.
	if got := CoefficientOfVariation([]float64{0, 0}); got != 0 {
		t.Errorf("Expected cv 0 for zero mean, got %f", got)
	}

	got := CoefficientOfVariation([]float64{1, 3})
	want := 0.5 // std 1, mean 2
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Expected cv %f, got %f", want, got)
	}
}

func TestNormalizedEntropy(t *testing.T) {
	// Even split over two buckets is maximal entropy.
	if got := NormalizedEntropy([]float64{500, 500}); math.Abs(got-1) > 1e-9 {
		t.Errorf("Expected entropy 1 for even split, got %f", got)
	}

	// All weight in one bucket of two is zero entropy.
	if got := NormalizedEntropy([]float64{1000, 0}); got != 0 {
		t.Errorf("Expected entropy 0 for single bucket, got %f", got)
	}

	// A single bucket has no diversity by definition.
	if got := NormalizedEntropy([]float64{1000}); got != 0 {
		t.Errorf("Expected entropy 0 for one source, got %f", got)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(12, 2, 8); got != 8 {
		t.Errorf("Expected 8, got %f", got)
	}
	if got := Clamp(-1, 0, 1); got != 0 {
		t.Errorf("Expected 0, got %f", got)
	}
	if got := Clamp(0.5, 0, 1); got != 0.5 {
		t.Errorf("Expected 0.5, got %f", got)
	}
}
