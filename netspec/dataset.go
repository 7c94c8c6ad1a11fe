package netspec

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Dataset pairs input rows with target rows. Row i of X corresponds to row i
// of Y.
type Dataset struct {
	X *mat.Dense
	Y *mat.Dense
}

func NewDataset(inputs [][]float64, targets [][]float64) (*Dataset, error) {
	if len(inputs) != len(targets) {
		return nil, fmt.Errorf("%d input rows but %d target rows", len(inputs), len(targets))
	}
	x, err := FromRows(inputs)
	if err != nil {
		return nil, fmt.Errorf("inputs: %w", err)
	}
	y, err := FromRows(targets)
	if err != nil {
		return nil, fmt.Errorf("targets: %w", err)
	}
	return &Dataset{X: x, Y: y}, nil
}

func (ds *Dataset) Len() int {
	r, _ := ds.X.Dims()
	return r
}

// Split partitions the dataset at int(Len() * ratio): rows before the
// boundary form the training part and the remainder the test part. The test
// part is nil when the boundary covers every row.
func (ds *Dataset) Split(ratio float64) (train *Dataset, test *Dataset, err error) {
	if ratio <= 0 || ratio > 1 {
		return nil, nil, fmt.Errorf("split ratio must be in (0, 1], got %v", ratio)
	}
	n := ds.Len()
	part := int(float64(n) * ratio)
	if part == 0 {
		return nil, nil, fmt.Errorf("split ratio %v leaves no training rows out of %d", ratio, n)
	}
	train = ds.slice(0, part)
	if part < n {
		test = ds.slice(part, n)
	}
	return train, test, nil
}

func (ds *Dataset) slice(i, k int) *Dataset {
	_, xc := ds.X.Dims()
	_, yc := ds.Y.Dims()
	return &Dataset{
		X: mat.DenseCopyOf(ds.X.Slice(i, k, 0, xc)),
		Y: mat.DenseCopyOf(ds.Y.Slice(i, k, 0, yc)),
	}
}

// FromRows converts a non-empty, rectangular slice of rows to a matrix.
func FromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("empty matrix")
	}
	width := len(rows[0])
	data := make([]float64, 0, len(rows)*width)
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), width)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), width, data), nil
}

func Rows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = make([]float64, c)
		for j := range rows[i] {
			rows[i][j] = m.At(i, j)
		}
	}
	return rows
}

// ReshapeRows lays a flat vector out as rows of the given width; the row
// count is inferred from the length.
func ReshapeRows(flat []float64, width int) (*mat.Dense, error) {
	if width <= 0 {
		return nil, fmt.Errorf("invalid row width %d", width)
	}
	if len(flat) == 0 || len(flat)%width != 0 {
		return nil, fmt.Errorf("cannot reshape %d values into rows of %d", len(flat), width)
	}
	data := make([]float64, len(flat))
	copy(data, flat)
	return mat.NewDense(len(flat)/width, width, data), nil
}
