package scoring

import "math"

// assign solves the minimum-cost assignment problem for a rows x cols cost
// matrix (Kuhn-Munkres with potentials). The matrix is padded to a square
// with zero cost, so any shape is accepted. The result maps each row to its
// column, or -1 when the row was matched to padding.
func assign(cost [][]float64, rows, cols int) []int {
	n := max(rows, cols)
	result := make([]int, rows)
	for i := range result {
		result[i] = -1
	}
	if n == 0 {
		return result
	}

	at := func(i, j int) float64 {
		if i < rows && j < cols {
			return cost[i][j]
		}
		return 0
	}

	// 1-based arrays; index 0 is the virtual start column
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1)
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = math.Inf(1)
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				c := at(i0-1, j-1) - u[i0] - v[j]
				if c < minv[j] {
					minv[j] = c
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
			if j0 == 0 {
				break
			}
		}
	}

	for j := 1; j <= n; j++ {
		i := p[j] - 1
		if i >= 0 && i < rows && j-1 < cols {
			result[i] = j - 1
		}
	}
	return result
}
