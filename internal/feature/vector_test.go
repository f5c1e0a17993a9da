package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromMapSortsAndDropsZeros(t *testing.T) {
	v := FromMap(map[int]float64{7: 1.5, 2: 3, 4: 0})
	assert.Equal(t, []int{2, 7}, v.Indices)
	assert.Equal(t, []float64{3, 1.5}, v.Values)
	assert.Equal(t, 2, v.Nnz())
}

func TestDot(t *testing.T) {
	a := FromMap(map[int]float64{0: 1, 3: 2, 5: 4})
	b := FromMap(map[int]float64{3: 3, 4: 9, 5: 0.5})
	assert.InDelta(t, 8.0, a.Dot(b), 1e-12)
	assert.InDelta(t, a.Dot(b), b.Dot(a), 1e-12)
	assert.InDelta(t, 8.0, a.DotDense([]float64{0, 0, 0, 3, 9, 0.5}), 1e-12)
	assert.InDelta(t, 1.0, a.DotDense([]float64{1}), 1e-12)
}

func TestNormScaleAddTo(t *testing.T) {
	v := FromMap(map[int]float64{1: 3, 2: 4})
	assert.InDelta(t, 5.0, v.Norm(), 1e-12)

	s := v.Scale(0.2)
	assert.InDelta(t, 1.0, s.Norm(), 1e-12)
	assert.Equal(t, []float64{3, 4}, v.Values, "scale must not mutate the receiver")

	dense := make([]float64, 3)
	v.AddTo(dense, 2)
	assert.Equal(t, []float64{0, 6, 8}, dense)
}

func TestMatrixSelectAndCheck(t *testing.T) {
	m := Matrix{
		Rows: []Vector{
			FromMap(map[int]float64{0: 1}),
			FromMap(map[int]float64{1: 1}),
			FromMap(map[int]float64{2: 1}),
		},
		Dim: 3,
	}
	sel := m.Select([]int{2, 0})
	assert.Equal(t, 2, sel.Len())
	assert.Equal(t, []int{2}, sel.Rows[0].Indices)
	assert.Equal(t, []int{0}, sel.Rows[1].Indices)
	assert.NoError(t, m.Check())

	bad := Matrix{Rows: []Vector{{Indices: []int{4}, Values: []float64{1}}}, Dim: 3}
	assert.Error(t, bad.Check())
	unsorted := Matrix{Rows: []Vector{{Indices: []int{2, 1}, Values: []float64{1, 1}}}, Dim: 3}
	assert.Error(t, unsorted.Check())
}
