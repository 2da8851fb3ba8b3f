package decoder

import (
	"math"
	"testing"

	"github.com/nlpodyssey/spago/ag"
	"github.com/nlpodyssey/spago/mat"
	"github.com/stretchr/testify/require"
)

func logits(values ...float64) *mat.Dense[float64] {
	return mat.NewDense[float64](mat.WithBacking(values), mat.WithGrad(true))
}

func TestHeads_Activate(t *testing.T) {
	h := New([]int{1, 3})
	require.Equal(t, 4, h.Width())

	require.InDeltaSlice(t, []float64{0.5, 1. / 3, 1. / 3, 1. / 3}, h.Activate(logits(0, 1, 1, 1)), 1e-12)
	require.InDeltaSlice(t, []float64{1, 0.25, 0.25, 0.5}, h.Activate(logits(100, 0, 0, math.Log(2))), 1e-12)
}

func TestHeads_ActivateLargeLogits(t *testing.T) {
	h := New([]int{2})
	probs := h.Activate(logits(1000, 999))
	require.False(t, math.IsNaN(probs[0]))
	require.InDelta(t, 1, probs[0]+probs[1], 1e-12)
}

func TestHeads_Loss(t *testing.T) {
	h := New([]int{1, 3})

	// -ln(0.5) - ln(1/3)
	loss := h.Loss(logits(0, 1, 1, 1), []float64{1, 1, 0, 0})
	require.InDelta(t, math.Log(6), loss.Item().F64(), 1e-9)

	// a negative binary target costs -ln(1 - sigmoid(z))
	loss = h.Loss(logits(2, 0, 0, 0), []float64{0, 0, 0, 1})
	require.InDelta(t, math.Log(1+math.Exp(2))+math.Log(3), loss.Item().F64(), 1e-9)
}

func TestHeads_LossLargeLogits(t *testing.T) {
	h := New([]int{1})
	loss := h.Loss(logits(-1000), []float64{1})
	require.InDelta(t, 1000, loss.Item().F64(), 1e-9)
}

func TestHeads_Gradient(t *testing.T) {
	h := New([]int{1, 3})
	x := logits(0, 1, 1, 1)
	require.NoError(t, ag.Backward(h.Loss(x, []float64{1, 1, 0, 0})))

	// sigmoid and softmax with cross-entropy both reduce to p - y
	require.InDeltaSlice(t, []float64{-0.5, -2. / 3, 1. / 3, 1. / 3}, x.Grad().Data().F64(), 1e-9)
}
