package utils

import (
	"github.com/okieraised/go-frcnn-targets/processing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
	"testing"
)

func TestBoxesFromTensor(t *testing.T) {
	boxes := []processing.Box{{0, 0, 0.5, 0.5}, {0.6, 0.6, 1, 1}}
	dense := BoxesToTensor(boxes)
	assert.Equal(t, tensor.Shape{2, 4}, dense.Shape())

	got, err := BoxesFromTensor(dense)
	require.NoError(t, err)
	assert.Equal(t, boxes, got)

	got, err = BoxesFromTensor(nil)
	assert.NoError(t, err)
	assert.Empty(t, got)

	_, err = BoxesFromTensor(tensor.New(tensor.Of(tensor.Float32), tensor.WithShape(2, 3)))
	assert.Error(t, err)
}

func TestBoxBatchFromTensor(t *testing.T) {
	dense := tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(2, 2, 4),
		tensor.WithBacking([]float32{
			10, 10, 50, 50,
			0, 0, 0, 0,
			1, 2, 3, 4,
			5, 6, 7, 8,
		}),
	)
	batch, err := BoxBatchFromTensor(dense)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, []processing.Box{{10, 10, 50, 50}, {}}, batch[0])
	assert.Equal(t, []processing.Box{{1, 2, 3, 4}, {5, 6, 7, 8}}, batch[1])

	_, err = BoxBatchFromTensor(tensor.New(tensor.Of(tensor.Float32), tensor.WithShape(2, 4)))
	assert.Error(t, err)
}

func TestIntRowsFromTensor(t *testing.T) {
	for _, dense := range []*tensor.Dense{
		tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]int{3, 0, 1, 2})),
		tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]int32{3, 0, 1, 2})),
		tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]int64{3, 0, 1, 2})),
		tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]float32{3, 0, 1, 2})),
	} {
		rows, err := IntRowsFromTensor(dense)
		require.NoError(t, err)
		assert.Equal(t, [][]int{{3, 0}, {1, 2}}, rows)
	}

	_, err := IntRowsFromTensor(tensor.New(tensor.WithShape(2), tensor.WithBacking([]int{1, 2})))
	assert.Error(t, err)
}

func TestFloat32RowsFromTensor(t *testing.T) {
	dense := tensor.New(tensor.WithShape(2, 3), tensor.WithBacking([]float64{1, 2, 3, 4, 5, 6}))
	rows, err := Float32RowsFromTensor(dense)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2, 3}, {4, 5, 6}}, rows)

	_, err = Float32RowsFromTensor(tensor.New(tensor.WithShape(2), tensor.WithBacking([]bool{true, false})))
	assert.Error(t, err)
}

func TestFloat32Data_View(t *testing.T) {
	dense := tensor.New(tensor.WithShape(3, 4), tensor.WithBacking([]float32{
		0, 1, 2, 3,
		4, 5, 6, 7,
		8, 9, 10, 11,
	}))
	view, err := dense.Slice(tensor.S(1, 3))
	require.NoError(t, err)

	boxes, err := BoxesFromTensor(view.(*tensor.Dense))
	require.NoError(t, err)
	assert.Equal(t, []processing.Box{{4, 5, 6, 7}, {8, 9, 10, 11}}, boxes)
}

func TestIntsToTensor(t *testing.T) {
	dense := IntsToTensor([]int{3, 0})
	assert.Equal(t, tensor.Shape{2}, dense.Shape())
	assert.Equal(t, []int{3, 0}, dense.Ints())

	deltas := DeltasToTensor([][4]float32{{1, 2, 3, 4}})
	assert.Equal(t, tensor.Shape{1, 4}, deltas.Shape())
	assert.Equal(t, []float32{1, 2, 3, 4}, deltas.Float32s())
}

func TestSelectRows(t *testing.T) {
	rows := []string{"a", "b", "c"}

	selected, err := SelectRows(rows, []int{2, 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, selected)

	_, err = SelectRows(rows, []int{3})
	assert.Error(t, err)

	masked, err := SelectMasked(rows, []bool{false, true, true})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, masked)

	_, err = SelectMasked(rows, []bool{true})
	assert.Error(t, err)
}
