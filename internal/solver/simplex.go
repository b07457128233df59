package solver

import (
	"context"
	"math"
)

// simplexStatus reports how a simplex run terminated.
type simplexStatus int

const (
	simplexOptimal simplexStatus = iota
	simplexUnbounded
	simplexIterLimit
	simplexCancelled
)

const (
	simplexEps = 1e-9

	// ctxCheckInterval is how many pivots run between context checks.
	ctxCheckInterval = 64
)

// solveSimplex minimizes c·x subject to A·x ≤ b, x ≥ 0 with b ≥ 0, using a
// dense tableau with slack variables. The all-slack basis is feasible from
// the start so no phase-one is needed. Bland's rule keeps it from cycling.
func solveSimplex(ctx context.Context, c []float64, a [][]float64, b []float64, maxIter int) ([]float64, float64, simplexStatus) {
	m := len(a)
	n := len(c)

	// Tableau layout: n structural columns, m slack columns, RHS.
	width := n + m + 1
	tab := make([][]float64, m+1)
	for i := 0; i < m; i++ {
		row := make([]float64, width)
		copy(row, a[i])
		row[n+i] = 1
		row[width-1] = b[i]
		tab[i] = row
	}
	cost := make([]float64, width)
	copy(cost, c)
	tab[m] = cost

	basis := make([]int, m)
	for i := range basis {
		basis[i] = n + i
	}

	status := simplexIterLimit
	for iter := 0; iter < maxIter; iter++ {
		if iter%ctxCheckInterval == 0 && ctx.Err() != nil {
			return nil, 0, simplexCancelled
		}

		// Entering column: first with a negative reduced cost.
		pivotCol := -1
		for j := 0; j < n+m; j++ {
			if tab[m][j] < -simplexEps {
				pivotCol = j
				break
			}
		}
		if pivotCol == -1 {
			status = simplexOptimal
			break
		}

		// Leaving row: minimum ratio, ties broken by smallest basis index.
		pivotRow := -1
		bestRatio := math.Inf(1)
		for i := 0; i < m; i++ {
			if tab[i][pivotCol] <= simplexEps {
				continue
			}
			ratio := tab[i][width-1] / tab[i][pivotCol]
			if ratio < bestRatio-simplexEps ||
				(ratio < bestRatio+simplexEps && (pivotRow == -1 || basis[i] < basis[pivotRow])) {
				bestRatio = ratio
				pivotRow = i
			}
		}
		if pivotRow == -1 {
			return nil, 0, simplexUnbounded
		}

		pivot(tab, pivotRow, pivotCol)
		basis[pivotRow] = pivotCol
	}

	if status != simplexOptimal {
		return nil, 0, status
	}

	x := make([]float64, n)
	for i, col := range basis {
		if col < n {
			x[col] = tab[i][width-1]
		}
	}
	return x, -tab[m][width-1], simplexOptimal
}

func pivot(tab [][]float64, row, col int) {
	width := len(tab[0])
	p := tab[row][col]
	for j := 0; j < width; j++ {
		tab[row][j] /= p
	}
	for i := range tab {
		if i == row {
			continue
		}
		factor := tab[i][col]
		if factor == 0 {
			continue
		}
		for j := 0; j < width; j++ {
			tab[i][j] -= factor * tab[row][j]
		}
	}
}
