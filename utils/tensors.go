package utils

import (
	"github.com/okieraised/go-frcnn-targets/processing"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

func contiguous(t *tensor.Dense) *tensor.Dense {
	if t.IsView() {
		return t.Materialize().(*tensor.Dense)
	}
	return t
}

// Float32Data returns the backing data of t as float32, converting from
// float64 if needed.
func Float32Data(t *tensor.Dense) ([]float32, error) {
	t = contiguous(t)
	switch data := t.Data().(type) {
	case []float32:
		return data, nil
	case []float64:
		out := make([]float32, len(data))
		for i, v := range data {
			out[i] = float32(v)
		}
		return out, nil
	case float32:
		return []float32{data}, nil
	case float64:
		return []float32{float32(data)}, nil
	}
	return nil, errors.Errorf("expected a float tensor, got dtype %v", t.Dtype())
}

// IntData returns the backing data of t as int. Integer and float dtypes are
// accepted since loaders store class IDs either way.
func IntData(t *tensor.Dense) ([]int, error) {
	t = contiguous(t)
	switch data := t.Data().(type) {
	case []int:
		return data, nil
	case []int32:
		return convertInts(data), nil
	case []int64:
		return convertInts(data), nil
	case []float32:
		return convertInts(data), nil
	case []float64:
		return convertInts(data), nil
	}
	return nil, errors.Errorf("expected an integer tensor, got dtype %v", t.Dtype())
}

func convertInts[T int32 | int64 | float32 | float64](data []T) []int {
	out := make([]int, len(data))
	for i, v := range data {
		out[i] = int(v)
	}
	return out
}

// BoxesFromTensor reads a (N, 4) tensor into boxes. A nil tensor is an empty
// set.
func BoxesFromTensor(t *tensor.Dense) ([]processing.Box, error) {
	if t == nil {
		return nil, nil
	}
	shape := t.Shape()
	if len(shape) != 2 || shape[1] != 4 {
		return nil, errors.Errorf("expected a (N, 4) box tensor, got shape %v", shape)
	}
	data, err := Float32Data(t)
	if err != nil {
		return nil, err
	}
	return boxesFromData(data, shape[0]), nil
}

// BoxBatchFromTensor reads a (B, G, 4) tensor into one box slice per batch
// entry.
func BoxBatchFromTensor(t *tensor.Dense) ([][]processing.Box, error) {
	shape := t.Shape()
	if len(shape) != 3 || shape[2] != 4 {
		return nil, errors.Errorf("expected a (B, G, 4) box tensor, got shape %v", shape)
	}
	data, err := Float32Data(t)
	if err != nil {
		return nil, err
	}
	batch, rows := shape[0], shape[1]
	out := make([][]processing.Box, batch)
	for i := range batch {
		out[i] = boxesFromData(data[i*rows*4:(i+1)*rows*4], rows)
	}
	return out, nil
}

func boxesFromData(data []float32, rows int) []processing.Box {
	boxes := make([]processing.Box, rows)
	for i := range rows {
		copy(boxes[i][:], data[i*4:i*4+4])
	}
	return boxes
}

// IntRowsFromTensor reads a (B, G) tensor into one int slice per row.
func IntRowsFromTensor(t *tensor.Dense) ([][]int, error) {
	shape := t.Shape()
	if len(shape) != 2 {
		return nil, errors.Errorf("expected a 2D tensor, got shape %v", shape)
	}
	data, err := IntData(t)
	if err != nil {
		return nil, err
	}
	cols := shape[1]
	out := make([][]int, shape[0])
	for i := range out {
		out[i] = data[i*cols : (i+1)*cols]
	}
	return out, nil
}

// Float32RowsFromTensor reads a (B, K) tensor into one float32 slice per row.
func Float32RowsFromTensor(t *tensor.Dense) ([][]float32, error) {
	shape := t.Shape()
	if len(shape) != 2 {
		return nil, errors.Errorf("expected a 2D tensor, got shape %v", shape)
	}
	data, err := Float32Data(t)
	if err != nil {
		return nil, err
	}
	cols := shape[1]
	out := make([][]float32, shape[0])
	for i := range out {
		out[i] = data[i*cols : (i+1)*cols]
	}
	return out, nil
}

func BoxesToTensor(boxes []processing.Box) *tensor.Dense {
	backing := make([]float32, 0, len(boxes)*4)
	for _, b := range boxes {
		backing = append(backing, b[:]...)
	}
	return tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(len(boxes), 4),
		tensor.WithBacking(backing),
	)
}

func DeltasToTensor(deltas [][4]float32) *tensor.Dense {
	backing := make([]float32, 0, len(deltas)*4)
	for _, d := range deltas {
		backing = append(backing, d[:]...)
	}
	return tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(len(deltas), 4),
		tensor.WithBacking(backing),
	)
}

func IntsToTensor(values []int) *tensor.Dense {
	backing := make([]int, len(values))
	copy(backing, values)
	return tensor.New(
		tensor.Of(tensor.Int),
		tensor.WithShape(len(values)),
		tensor.WithBacking(backing),
	)
}

// SelectRows gathers rows[idx] for every idx in indices.
func SelectRows[T any](rows []T, indices []int) ([]T, error) {
	selected := make([]T, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(rows) {
			return nil, errors.Errorf("index %d is out of bounds for %d rows", idx, len(rows))
		}
		selected = append(selected, rows[idx])
	}
	return selected, nil
}

// SelectMasked keeps rows[i] where mask[i] is true.
func SelectMasked[T any](rows []T, mask []bool) ([]T, error) {
	if len(rows) != len(mask) {
		return nil, errors.Errorf("mask has %d entries, expected %d", len(mask), len(rows))
	}
	selected := make([]T, 0, len(rows))
	for i, keep := range mask {
		if keep {
			selected = append(selected, rows[i])
		}
	}
	return selected, nil
}
