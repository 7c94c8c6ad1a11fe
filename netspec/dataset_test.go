package netspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDataset(t *testing.T, n int) *Dataset {
	var inputs, targets [][]float64
	for i := 0; i < n; i++ {
		inputs = append(inputs, []float64{float64(i), float64(i * 2)})
		targets = append(targets, []float64{float64(i % 2)})
	}
	ds, err := NewDataset(inputs, targets)
	require.NoError(t, err)
	return ds
}

func TestDatasetSplit(t *testing.T) {
	ds := testDataset(t, 10)
	train, test, err := ds.Split(0.8)
	require.NoError(t, err)
	assert.Equal(t, 8, train.Len())
	assert.Equal(t, 2, test.Len())
	assert.Equal(t, []float64{8, 16}, Rows(test.X)[0])
	assert.Equal(t, []float64{1}, Rows(test.Y)[1])

	// the parts are copies
	train.X.Set(0, 0, 42)
	assert.Equal(t, 0.0, ds.X.At(0, 0))

	train, test, err = ds.Split(1)
	require.NoError(t, err)
	assert.Equal(t, 10, train.Len())
	assert.Nil(t, test)

	for _, ratio := range []float64{0, -0.5, 1.5, 0.05} {
		_, _, err = ds.Split(ratio)
		assert.Error(t, err, "ratio %v", ratio)
	}
}

func TestNewDatasetErrors(t *testing.T) {
	_, err := NewDataset([][]float64{{1}}, [][]float64{{1}, {2}})
	assert.Error(t, err)
	_, err = NewDataset(nil, nil)
	assert.Error(t, err)
	_, err = NewDataset([][]float64{{1, 2}, {3}}, [][]float64{{1}, {2}})
	assert.Error(t, err)
}

func TestReshapeRows(t *testing.T) {
	m, err := ReshapeRows([]float64{1, 2, 3, 4, 5, 6}, 3)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2, 3}, {4, 5, 6}}, Rows(m))

	_, err = ReshapeRows([]float64{1, 2, 3}, 2)
	assert.Error(t, err)
	_, err = ReshapeRows(nil, 2)
	assert.Error(t, err)
	_, err = ReshapeRows([]float64{1}, 0)
	assert.Error(t, err)
}
