package decoder

import (
	"github.com/nlpodyssey/spago/ag"
	"github.com/nlpodyssey/spago/losses"
	"github.com/nlpodyssey/spago/mat"
	"gonum.org/v1/gonum/floats"
)

// Heads splits the output layer into consecutive blocks. A block of width 1
// is a binary head activated with a sigmoid, a wider block is a categorical
// head activated with a softmax.
type Heads struct {
	Blocks []int
}

func New(blocks []int) *Heads {
	return &Heads{Blocks: blocks}
}

func (h *Heads) Width() int {
	width := 0
	for _, b := range h.Blocks {
		width += b
	}
	return width
}

// Activate maps the logits of one example to per-head probabilities.
func (h *Heads) Activate(logits mat.Tensor) []float64 {
	values := logits.Value().(mat.Matrix)
	probs := make([]float64, 0, h.Width())
	offset := 0
	for _, width := range h.Blocks {
		block := values.Slice(offset, 0, offset+width, 1)
		if width == 1 {
			block = block.Sigmoid()
		} else {
			block = block.Softmax()
		}
		probs = append(probs, block.Data().F64()...)
		offset += width
	}
	return probs
}

// Loss is the cross-entropy of the logits of one example against its
// flattened targets, summed over heads.
func (h *Heads) Loss(logits mat.Tensor, targets []float64) mat.Tensor {
	var loss mat.Tensor
	offset := 0
	for _, width := range h.Blocks {
		block := ag.Slice(logits, offset, 0, offset+width, 1)
		if width == 1 {
			// binary cross-entropy as a two class softmax over (0, z)
			pair := ag.Concat(mat.Scalar(0.0), block)
			loss = ag.Add(loss, losses.CrossEntropy(pair, int(targets[offset])))
		} else {
			gold := floats.MaxIdx(targets[offset : offset+width])
			loss = ag.Add(loss, losses.CrossEntropy(block, gold))
		}
		offset += width
	}
	return loss
}
