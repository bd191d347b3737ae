package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestCSR(t *testing.T) {
	// [ 4 -1  0 ]
	// [-1  4 -1 ]
	// [ 0 -1  4 ]
	var (
		ro   = []int{0, 2, 5, 7}
		cols = []int{0, 1, 1, 0, 2, 2, 1}
		vals = []float64{4, -1, 4, -1, -1, 4, -1}
	)
	A, err := NewCSR(3, 3, ro, cols, vals, "tridiag")
	require.NoError(t, err)
	assert.Equal(t, "tridiag: 3 x 3, nnz = 7", A.String())
	assert.Equal(t, 7, A.NNZ())
	assert.Equal(t, 3, A.RowNNZ(1))
	assert.Equal(t, -1., A.At(1, 0))
	assert.Equal(t, 0., A.At(0, 2))
	assert.True(t, mat.Equal(A, A.T()))

	rc, rv := A.Row(1)
	assert.Equal(t, []int{1, 0, 2}, rc)
	assert.Equal(t, []float64{4, -1, -1}, rv)

	for _, ex := range []Executor{NewExecutor(Serial, 1), NewExecutor(Partition, 2), NewExecutor(Pargo, 8)} {
		assert.Equal(t, []float64{4, 4, 4}, A.Diagonal(ex))
		dst := make([]float64, 3)
		A.MulVec(dst, []float64{1, 2, 3}, ex)
		assert.Equal(t, []float64{2, 4, 10}, dst)
	}
	assert.Panics(t, func() { A.MulVec(make([]float64, 2), []float64{1, 2, 3}, NewExecutor(Serial, 1)) })

	_, err = NewCSR(3, 3, ro[:3], cols, vals, "bad")
	assert.Error(t, err)
	_, err = NewCSR(3, 3, ro, cols[:6], vals, "bad")
	assert.Error(t, err)
	_, err = NewCSR(3, 3, []int{0, 2, 5, 6}, cols, vals, "bad")
	assert.Error(t, err)
}
