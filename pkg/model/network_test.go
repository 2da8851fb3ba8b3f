package model

import (
	"testing"

	"github.com/nlpodyssey/spago/ag"
	"github.com/nlpodyssey/spago/mat"
	"github.com/nlpodyssey/spago/mat/rand"
	"github.com/nlpodyssey/spago/nn"
	"github.com/nlpodyssey/spago/nn/linear"
	"github.com/stretchr/testify/require"
)

func TestNewNetwork(t *testing.T) {
	tests := []struct {
		hidden []int
		blocks []int
		layers int
	}{
		{hidden: nil, blocks: []int{1}, layers: 1},
		{hidden: []int{8}, blocks: []int{1, 3, 1}, layers: 2},
		{hidden: []int{8, 4}, blocks: []int{5}, layers: 3},
	}

	for _, tt := range tests {
		n, err := NewNetwork(NetworkConfig{InputDimension: 6, HiddenDimensions: tt.hidden, OutputBlocks: tt.blocks})
		require.NoError(t, err)
		require.Len(t, n.Layers, tt.layers)
		require.NoError(t, n.Validate())
		n.Init(rand.NewLockedRand(42))

		out := n.Predict(make([]float64, 6))
		require.Len(t, out, n.OutputDimension())
	}
}

func TestNewNetwork_Errors(t *testing.T) {
	_, err := NewNetwork(NetworkConfig{InputDimension: 0, OutputBlocks: []int{1}})
	require.Error(t, err)
	_, err = NewNetwork(NetworkConfig{InputDimension: 3})
	require.Error(t, err)
	_, err = NewNetwork(NetworkConfig{InputDimension: 3, HiddenDimensions: []int{0}, OutputBlocks: []int{1}})
	require.Error(t, err)
}

func TestNetwork_Validate(t *testing.T) {
	n, err := NewNetwork(NetworkConfig{InputDimension: 6, HiddenDimensions: []int{8}, OutputBlocks: []int{1, 3}})
	require.NoError(t, err)

	n.Layers[0] = linear.New[float64](5, 8)
	require.Error(t, n.Validate())

	n.Layers = n.Layers[1:]
	require.Error(t, n.Validate())
}

func TestNetwork_InitIsSeeded(t *testing.T) {
	config := NetworkConfig{InputDimension: 3, HiddenDimensions: []int{4}, OutputBlocks: []int{1, 3}}
	a, err := NewNetwork(config)
	require.NoError(t, err)
	b, err := NewNetwork(config)
	require.NoError(t, err)

	a.Init(rand.NewLockedRand(7))
	b.Init(rand.NewLockedRand(7))
	for i := range a.Layers {
		require.Equal(t, a.Layers[i].W.Data().F64(), b.Layers[i].W.Data().F64())
		require.NotEqual(t, make([]float64, a.Layers[i].W.Size()), a.Layers[i].W.Data().F64())
	}
}

func TestNetwork_LossReachesEveryParam(t *testing.T) {
	n, err := NewNetwork(NetworkConfig{InputDimension: 3, HiddenDimensions: []int{4}, OutputBlocks: []int{1, 3}})
	require.NoError(t, err)
	n.Init(rand.NewLockedRand(7))

	loss := n.Loss([]float64{0.5, -1.2, 0.3}, []float64{1, 0, 1, 0})
	require.Greater(t, loss.Item().F64(), 0.0)
	require.NoError(t, ag.Backward(loss))

	count := 0
	nn.ForEachParam(n, func(p *nn.Param) {
		require.True(t, p.HasGrad())
		count++
	})
	require.Equal(t, 4, count)
}

func TestModel_Predict(t *testing.T) {
	v := testVocabulary(t)
	n, err := NewNetwork(NetworkConfig{InputDimension: 2, OutputBlocks: []int{1, 3, 1}})
	require.NoError(t, err)

	// no hidden layer: logits = W x + B
	n.Layers[0].B = nn.NewParam(mat.NewDense[float64](mat.WithBacking([]float64{5, -1, 3, -1, -5})))
	m := &Model{
		MetaData: &Metadata{Vocabulary: v, Offsets: OffsetTable{0, 1, 4, 5}, NumFeatures: 2},
		Network:  n,
	}

	label, err := m.Predict([]float64{0, 0})
	require.NoError(t, err)
	require.Equal(t, "polarity=neg#certainty=mid#subject=patient", label)
}
