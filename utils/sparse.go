package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
	"gonum.org/v1/gonum/mat"
)

// CSR is a named, read-only compressed sparse row matrix. The three raw
// arrays are shared with the underlying sparse.CSR, so callers must not
// mutate what RowOffsets, Cols or Values return.
type CSR struct {
	M    *sparse.CSR
	name string
}

// NewCSR wraps already assembled CSR arrays without copying them.
func NewCSR(nr, nc int, rowOffsets, cols []int, vals []float64, name string) (R CSR, err error) {
	switch {
	case len(rowOffsets) != nr+1:
		err = fmt.Errorf("row offsets length %d, expected %d", len(rowOffsets), nr+1)
	case len(cols) != len(vals):
		err = fmt.Errorf("column and value lengths differ: %d != %d", len(cols), len(vals))
	case rowOffsets[nr] != len(vals):
		err = fmt.Errorf("last row offset %d does not match nnz %d", rowOffsets[nr], len(vals))
	}
	if err != nil {
		return
	}
	R = CSR{
		M:    sparse.NewCSR(nr, nc, rowOffsets, cols, vals),
		name: name,
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m CSR) Dims() (r, c int)              { return m.M.Dims() }
func (m CSR) At(i, j int) float64           { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix                 { return m.M.T() }
func (m CSR) RawMatrix() *blas.SparseMatrix { return m.M.RawMatrix() }

func (m CSR) Name() string       { return m.name }
func (m CSR) NNZ() int           { return len(m.RawMatrix().Data) }
func (m CSR) RowOffsets() []int  { return m.RawMatrix().Indptr }
func (m CSR) Cols() []int        { return m.RawMatrix().Ind }
func (m CSR) Values() []float64  { return m.RawMatrix().Data }
func (m CSR) IsEmpty() bool      { return m.M == nil }
func (m CSR) RowNNZ(row int) int { return m.RowOffsets()[row+1] - m.RowOffsets()[row] }

func (m CSR) String() string {
	nr, nc := m.Dims()
	return fmt.Sprintf("%s: %d x %d, nnz = %d", m.name, nr, nc, m.NNZ())
}

// Row returns views of the column indices and values stored for one row.
func (m CSR) Row(row int) (cols []int, vals []float64) {
	var (
		raw    = m.RawMatrix()
		p0, p1 = raw.Indptr[row], raw.Indptr[row+1]
	)
	return raw.Ind[p0:p1], raw.Data[p0:p1]
}

// Diagonal extracts the main diagonal, zero where a row stores no diagonal
// entry.
func (m CSR) Diagonal(ex Executor) (diag []float64) {
	var (
		raw   = m.RawMatrix()
		nr, _ = m.Dims()
	)
	diag = make([]float64, nr)
	ex.ParallelFor(nr, func(lo, hi int) {
		for row := lo; row < hi; row++ {
			for p := raw.Indptr[row]; p < raw.Indptr[row+1]; p++ {
				if raw.Ind[p] == row {
					diag[row] = raw.Data[p]
					break
				}
			}
		}
	})
	return
}

// MulVec computes dst = M*x, splitting rows over the executor.
func (m CSR) MulVec(dst, x []float64, ex Executor) {
	var (
		raw    = m.RawMatrix()
		nr, nc = m.Dims()
	)
	if len(dst) != nr || len(x) != nc {
		panic(fmt.Sprintf("%s: MulVec dimension mismatch, dst %d, x %d for %d x %d",
			m.name, len(dst), len(x), nr, nc))
	}
	ex.ParallelFor(nr, func(lo, hi int) {
		for row := lo; row < hi; row++ {
			var sum float64
			for p := raw.Indptr[row]; p < raw.Indptr[row+1]; p++ {
				sum += raw.Data[p] * x[raw.Ind[p]]
			}
			dst[row] = sum
		}
	})
}
