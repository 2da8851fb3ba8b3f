package model

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFlatten(t *testing.T) {
	labels := mat.NewDense(3, 2, []float64{
		0, 2,
		1, 0,
		1, 1,
	})

	flattened, offsets, err := Flatten(labels)
	require.NoError(t, err)
	require.Equal(t, OffsetTable{0, 1, 4}, offsets)
	require.Equal(t, 4, offsets.Width())
	require.Equal(t, []int{1, 3}, offsets.Blocks())

	rows, cols := flattened.Dims()
	require.Equal(t, 3, rows)
	require.Equal(t, 4, cols)
	require.Equal(t, []float64{0, 0, 0, 1}, flattened.RawRowView(0))
	require.Equal(t, []float64{1, 1, 0, 0}, flattened.RawRowView(1))
	require.Equal(t, []float64{1, 0, 1, 0}, flattened.RawRowView(2))
}

func TestFlatten_DegenerateColumn(t *testing.T) {
	labels := mat.NewDense(2, 3, []float64{
		1, 0, 2,
		0, 0, 1,
	})

	_, _, err := Flatten(labels)
	var degenerate *DegenerateColumnError
	require.ErrorAs(t, err, &degenerate)
	require.Equal(t, 1, degenerate.Column)
}

func TestFlattenWith(t *testing.T) {
	offsets := OffsetTable{0, 1, 4}

	flattened, err := FlattenWith(mat.NewDense(1, 2, []float64{0, 1}), offsets)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 0, 1, 0}, flattened.RawRowView(0))

	_, err = FlattenWith(mat.NewDense(1, 2, []float64{0, 3}), offsets)
	var rangeErr *IndexOutOfRangeError
	require.ErrorAs(t, err, &rangeErr)

	_, err = FlattenWith(mat.NewDense(1, 2, []float64{2, 0}), offsets)
	require.ErrorAs(t, err, &rangeErr)

	_, err = FlattenWith(mat.NewDense(1, 3, []float64{0, 0, 0}), offsets)
	require.ErrorAs(t, err, &rangeErr)
}

func TestOffsetTable_Unflatten(t *testing.T) {
	offsets := OffsetTable{0, 1, 4, 5}

	require.Equal(t, []int{1, 2, 0}, offsets.Unflatten([]float64{0.7, 0.1, 0.2, 0.7, 0.4}))
	require.Equal(t, []int{0, 0, 1}, offsets.Unflatten([]float64{0.2, 0.5, 0.2, 0.3, 0.5}))
}

func TestFlatten_Unflatten_RoundTrip(t *testing.T) {
	labels := mat.NewDense(4, 3, []float64{
		0, 0, 1,
		1, 3, 0,
		0, 1, 1,
		1, 2, 0,
	})

	flattened, offsets, err := Flatten(labels)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		codes := offsets.Unflatten(flattened.RawRowView(i))
		require.Equal(t, []int{int(labels.At(i, 0)), int(labels.At(i, 1)), int(labels.At(i, 2))}, codes)
	}
}
