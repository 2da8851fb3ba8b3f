package model

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// OffsetTable maps label matrix columns to blocks of the flattened output
// layer: column i owns flattened columns [t[i], t[i+1]). The first entry is
// always 0 and the last is the flattened width.
type OffsetTable []int

func (t OffsetTable) Width() int {
	if len(t) == 0 {
		return 0
	}
	return t[len(t)-1]
}

// Blocks returns the width of each column's block.
func (t OffsetTable) Blocks() []int {
	if len(t) < 2 {
		return nil
	}
	blocks := make([]int, len(t)-1)
	for i := range blocks {
		blocks[i] = t[i+1] - t[i]
	}
	return blocks
}

// Unflatten maps one row of flattened outputs back to per-column codes. A
// width-1 block is a binary column and yields 1 when its output is at least
// 0.5; a wider block yields the position of its largest output.
func (t OffsetTable) Unflatten(outputs []float64) []int {
	codes := make([]int, 0, len(t)-1)
	for i, width := range t.Blocks() {
		block := outputs[t[i] : t[i]+width]
		if width == 1 {
			if block[0] >= 0.5 {
				codes = append(codes, 1)
			} else {
				codes = append(codes, 0)
			}
			continue
		}
		codes = append(codes, floats.MaxIdx(block))
	}
	return codes
}

// Flatten turns a label matrix with one integer code per task column into a
// single output matrix. A column whose maximum is 1 keeps a single 0/1 slot;
// a column whose maximum m is larger is one-hot encoded into m+1 slots.
func Flatten(labels *mat.Dense) (*mat.Dense, OffsetTable, error) {
	_, cols := labels.Dims()
	offsets := make(OffsetTable, 1, cols+1)
	for j := 0; j < cols; j++ {
		max := floats.Max(mat.Col(nil, j, labels))
		var width int
		switch {
		case max == 1:
			width = 1
		case max > 1:
			width = int(max) + 1
		default:
			return nil, nil, &DegenerateColumnError{Column: j}
		}
		offsets = append(offsets, offsets[j]+width)
	}

	flattened, err := FlattenWith(labels, offsets)
	if err != nil {
		return nil, nil, err
	}
	return flattened, offsets, nil
}

// FlattenWith applies an existing offset table, typically one persisted at
// training time, to a label matrix.
func FlattenWith(labels *mat.Dense, offsets OffsetTable) (*mat.Dense, error) {
	rows, cols := labels.Dims()
	blocks := offsets.Blocks()
	if len(blocks) != cols {
		return nil, &IndexOutOfRangeError{Index: cols, Length: len(blocks)}
	}

	flattened := mat.NewDense(rows, offsets.Width(), nil)
	for i := 0; i < rows; i++ {
		for j, width := range blocks {
			value := int(labels.At(i, j))
			if width == 1 {
				if value > 1 || value < 0 {
					return nil, &IndexOutOfRangeError{Index: value, Length: 2}
				}
				flattened.Set(i, offsets[j], float64(value))
				continue
			}
			if value < 0 || value >= width {
				return nil, &IndexOutOfRangeError{Index: value, Length: width}
			}
			flattened.Set(i, offsets[j]+value, 1)
		}
	}
	return flattened, nil
}
