// Package feature holds the sparse row representation shared by the corpus,
// the classifiers and the density computation.
package feature

import (
	"fmt"
	"math"
	"sort"
)

// Vector is a sparse float64 row. Indices are strictly increasing.
type Vector struct {
	Indices []int
	Values  []float64
}

// FromMap builds a Vector from an index -> value map, dropping zeros.
func FromMap(m map[int]float64) Vector {
	idx := make([]int, 0, len(m))
	for i, v := range m {
		if v != 0 {
			idx = append(idx, i)
		}
	}
	sort.Ints(idx)
	v := Vector{
		Indices: idx,
		Values:  make([]float64, len(idx)),
	}
	for k, i := range idx {
		v.Values[k] = m[i]
	}
	return v
}

// Nnz returns the number of stored entries.
func (v Vector) Nnz() int {
	return len(v.Indices)
}

// Dot computes the dot product of two sparse vectors by merging indices.
func (v Vector) Dot(o Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.Indices) && j < len(o.Indices) {
		switch {
		case v.Indices[i] == o.Indices[j]:
			sum += v.Values[i] * o.Values[j]
			i++
			j++
		case v.Indices[i] < o.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// DotDense computes the dot product with a dense vector. Indices beyond the
// dense length contribute nothing.
func (v Vector) DotDense(dense []float64) float64 {
	var sum float64
	for k, idx := range v.Indices {
		if idx < len(dense) {
			sum += v.Values[k] * dense[idx]
		}
	}
	return sum
}

// Norm returns the Euclidean norm.
func (v Vector) Norm() float64 {
	var sq float64
	for _, x := range v.Values {
		sq += x * x
	}
	return math.Sqrt(sq)
}

// Scale returns a copy of v multiplied by s.
func (v Vector) Scale(s float64) Vector {
	out := Vector{
		Indices: append([]int(nil), v.Indices...),
		Values:  make([]float64, len(v.Values)),
	}
	for k, x := range v.Values {
		out.Values[k] = x * s
	}
	return out
}

// AddTo accumulates s*v into dense.
func (v Vector) AddTo(dense []float64, s float64) {
	for k, idx := range v.Indices {
		dense[idx] += s * v.Values[k]
	}
}

// Matrix is an immutable collection of sparse rows sharing a column count.
type Matrix struct {
	Rows []Vector
	Dim  int
}

// Len returns the number of rows.
func (m Matrix) Len() int {
	return len(m.Rows)
}

// Select returns a Matrix view holding the given rows in order. Row storage
// is shared with m.
func (m Matrix) Select(idx []int) Matrix {
	rows := make([]Vector, len(idx))
	for k, i := range idx {
		rows[k] = m.Rows[i]
	}
	return Matrix{Rows: rows, Dim: m.Dim}
}

// Check verifies that every row index lies inside [0, Dim).
func (m Matrix) Check() error {
	for r, row := range m.Rows {
		if len(row.Indices) != len(row.Values) {
			return fmt.Errorf("row %d: %d indices but %d values", r, len(row.Indices), len(row.Values))
		}
		for k, idx := range row.Indices {
			if idx < 0 || idx >= m.Dim {
				return fmt.Errorf("row %d: column %d outside [0, %d)", r, idx, m.Dim)
			}
			if k > 0 && idx <= row.Indices[k-1] {
				return fmt.Errorf("row %d: columns not strictly increasing at %d", r, idx)
			}
		}
	}
	return nil
}
