package explain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Vector is an ordered sequence of values aligned by position to matrix rows
// (targets, predictions) or to matrix columns (a single instance).
type Vector []float64

// Clone returns an independent copy of the vector
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// FeatureNames labels matrix columns by position
type FeatureNames []string

// DefaultFeatureNames returns feature_0 ... feature_{n-1}
func DefaultFeatureNames(n int) FeatureNames {
	names := make(FeatureNames, n)
	for i := range names {
		names[i] = fmt.Sprintf("feature_%d", i)
	}
	return names
}

// Validate checks that there is exactly one unique, non-empty name per column
func (fn FeatureNames) Validate(cols int) error {
	if len(fn) != cols {
		return invalidArgument("feature_names", "feature name count must match column count",
			map[string]int{"names": len(fn), "columns": cols})
	}
	seen := make(map[string]struct{}, len(fn))
	for i, name := range fn {
		if name == "" {
			return invalidArgument("feature_names", fmt.Sprintf("feature name at position %d is empty", i), i)
		}
		if _, dup := seen[name]; dup {
			return invalidArgument("feature_names", "feature names must be unique", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// IndexOf returns the column index of name, or -1 when absent
func (fn FeatureNames) IndexOf(name string) int {
	for i, n := range fn {
		if n == name {
			return i
		}
	}
	return -1
}

// FeatureMatrix is an immutable rows×cols table of samples by features
// backed by a dense gonum matrix.
type FeatureMatrix struct {
	dense *mat.Dense
}

// NewFeatureMatrix copies a slice of rows into a new matrix.
// Every row must have the same non-zero length and contain only finite values.
func NewFeatureMatrix(rows [][]float64) (*FeatureMatrix, error) {
	if len(rows) == 0 {
		return nil, invalidArgument("matrix", "matrix must have at least one row", 0)
	}
	cols := len(rows[0])
	if cols == 0 {
		return nil, invalidArgument("matrix", "feature count must be positive", 0)
	}

	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, invalidArgument("matrix", fmt.Sprintf("row %d has %d values, expected %d", i, len(row), cols), i)
		}
		data = append(data, row...)
	}
	return newFromFlat(len(rows), cols, data)
}

// NewFeatureMatrixFromFlat copies row-major data into a rows×cols matrix
func NewFeatureMatrixFromFlat(rows, cols int, data []float64) (*FeatureMatrix, error) {
	if rows <= 0 {
		return nil, invalidArgument("rows", "matrix must have at least one row", rows)
	}
	if cols <= 0 {
		return nil, invalidArgument("cols", "feature count must be positive", cols)
	}
	if len(data) != rows*cols {
		return nil, invalidArgument("data", "data length must equal rows*cols",
			map[string]int{"length": len(data), "expected": rows * cols})
	}
	owned := make([]float64, len(data))
	copy(owned, data)
	return newFromFlat(rows, cols, owned)
}

// newFromFlat takes ownership of data
func newFromFlat(rows, cols int, data []float64) (*FeatureMatrix, error) {
	for i, v := range data {
		if !isFinite(v) {
			return nil, invalidArgument("matrix",
				fmt.Sprintf("non-finite value at row %d, column %d", i/cols, i%cols), v)
		}
	}
	return &FeatureMatrix{dense: mat.NewDense(rows, cols, data)}, nil
}

// Rows returns the number of samples
func (m *FeatureMatrix) Rows() int {
	r, _ := m.dense.Dims()
	return r
}

// Cols returns the number of features
func (m *FeatureMatrix) Cols() int {
	_, c := m.dense.Dims()
	return c
}

// At returns the value at (row, col). It panics when either index is out of
// range, like indexing a slice.
func (m *FeatureMatrix) At(row, col int) float64 {
	return m.dense.At(row, col)
}

// Row returns a copy of one sample
func (m *FeatureMatrix) Row(row int) Vector {
	return mat.Row(nil, row, m.dense)
}

// Column returns a copy of one feature across all samples
func (m *FeatureMatrix) Column(col int) Vector {
	return mat.Col(nil, col, m.dense)
}

// Matrix returns a read-only view of the underlying values
func (m *FeatureMatrix) Matrix() mat.Matrix {
	return m.dense
}

// SliceRows returns the contiguous rows [start, end) as a new matrix
func (m *FeatureMatrix) SliceRows(start, end int) (*FeatureMatrix, error) {
	if start < 0 || end > m.Rows() || start >= end {
		return nil, invalidArgument("range", fmt.Sprintf("row range [%d,%d) invalid for %d rows", start, end, m.Rows()),
			[]int{start, end})
	}
	return &FeatureMatrix{dense: mat.DenseCopyOf(m.dense.Slice(start, end, 0, m.Cols()))}, nil
}

// SelectRows returns the listed rows, in the given order, as a new matrix
func (m *FeatureMatrix) SelectRows(indices []int) (*FeatureMatrix, error) {
	if len(indices) == 0 {
		return nil, invalidArgument("indices", "row selection must not be empty", 0)
	}
	out := mat.NewDense(len(indices), m.Cols(), nil)
	for i, idx := range indices {
		if idx < 0 || idx >= m.Rows() {
			return nil, invalidArgument("indices", fmt.Sprintf("row index %d out of range", idx), idx)
		}
		out.SetRow(i, m.dense.RawRowView(idx))
	}
	return &FeatureMatrix{dense: out}, nil
}

// ToRows returns a copy of the matrix as a slice of rows
func (m *FeatureMatrix) ToRows() [][]float64 {
	out := make([][]float64, m.Rows())
	for i := range out {
		out[i] = m.Row(i)
	}
	return out
}

// checkAligned verifies that v has one finite value per matrix row
func checkAligned(field string, m *FeatureMatrix, v Vector) error {
	if m == nil {
		return invalidArgument("matrix", "matrix is nil", nil)
	}
	if len(v) != m.Rows() {
		return invalidArgument(field, fmt.Sprintf("%s length must match matrix row count", field),
			map[string]int{"length": len(v), "rows": m.Rows()})
	}
	return checkFinite(field, v)
}

// checkFinite rejects NaN and ±Inf entries
func checkFinite(field string, v Vector) error {
	for i, x := range v {
		if !isFinite(x) {
			return invalidArgument(field, fmt.Sprintf("non-finite %s value at position %d", field, i), x)
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
