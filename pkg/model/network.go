package model

import (
	"fmt"

	"github.com/nlpodyssey/spago/ag"
	"github.com/nlpodyssey/spago/initializers"
	"github.com/nlpodyssey/spago/mat"
	"github.com/nlpodyssey/spago/mat/rand"
	"github.com/nlpodyssey/spago/nn"
	"github.com/nlpodyssey/spago/nn/activation"
	"github.com/nlpodyssey/spago/nn/linear"

	"mtlnet/pkg/model/decoder"
)

var _ nn.Model = &Network{}

type NetworkConfig struct {
	InputDimension   int   `json:"input_dimension"`
	HiddenDimensions []int `json:"hidden_dimensions"`
	// OutputBlocks holds the width of each output head, see OffsetTable.Blocks
	OutputBlocks []int `json:"output_blocks"`
}

func (c NetworkConfig) OutputDimension() int {
	return decoder.New(c.OutputBlocks).Width()
}

// Network is a feed-forward classifier: ReLU hidden layers followed by a
// linear output layer whose units are grouped into sigmoid/softmax heads.
type Network struct {
	nn.Module
	NetworkConfig
	Layers []*linear.Model

	heads *decoder.Heads
}

func NewNetwork(config NetworkConfig) (*Network, error) {
	if config.InputDimension <= 0 {
		return nil, fmt.Errorf("invalid input dimension %d", config.InputDimension)
	}
	if config.OutputDimension() <= 0 {
		return nil, fmt.Errorf("invalid output blocks %v", config.OutputBlocks)
	}

	var layers []*linear.Model
	in := config.InputDimension
	for _, hidden := range config.HiddenDimensions {
		if hidden <= 0 {
			return nil, fmt.Errorf("invalid hidden dimension %d", hidden)
		}
		layers = append(layers, linear.New[float64](in, hidden))
		in = hidden
	}
	layers = append(layers, linear.New[float64](in, config.OutputDimension()))

	return &Network{NetworkConfig: config, Layers: layers}, nil
}

// Validate checks that the layers match the configuration, e.g. after loading weights.
func (n *Network) Validate() error {
	if len(n.Layers) != len(n.HiddenDimensions)+1 {
		return fmt.Errorf("network has %d layers, configuration expects %d", len(n.Layers), len(n.HiddenDimensions)+1)
	}
	in := n.InputDimension
	for i, l := range n.Layers {
		out := n.OutputDimension()
		if i < len(n.HiddenDimensions) {
			out = n.HiddenDimensions[i]
		}
		if l.W == nil || l.B == nil {
			return fmt.Errorf("layer %d has no parameters", i)
		}
		// W is out x in
		shape := l.W.Shape()
		if len(shape) != 2 || shape[0] != out || shape[1] != in || l.B.Size() != out {
			return fmt.Errorf("layer %d is %v, configuration expects %dx%d", i, shape, out, in)
		}
		in = out
	}
	return nil
}

// Init draws the weights of every layer from a Xavier uniform distribution,
// biases start at zero.
func (n *Network) Init(generator *rand.LockedRand) {
	last := len(n.Layers) - 1
	for i, l := range n.Layers {
		gain := initializers.Gain(activation.ReLU)
		if i == last {
			gain = initializers.Gain(activation.Identity)
		}
		initializers.XavierUniform(l.W, gain, generator)
	}
}

func (n *Network) Heads() *decoder.Heads {
	if n.heads == nil {
		n.heads = decoder.New(n.OutputBlocks)
	}
	return n.heads
}

// Forward returns the output layer logits for one dense feature vector.
func (n *Network) Forward(features []float64) mat.Tensor {
	var x mat.Tensor = mat.NewDense[float64](mat.WithBacking(features))
	last := len(n.Layers) - 1
	for i, l := range n.Layers {
		x = l.Forward(x)[0]
		if i < last {
			x = ag.ReLU(x)
		}
	}
	return x
}

// Predict returns the head probabilities for one dense feature vector.
func (n *Network) Predict(features []float64) []float64 {
	return n.Heads().Activate(n.Forward(features))
}

// Loss builds the cross-entropy graph of one example against its flattened targets.
func (n *Network) Loss(features, targets []float64) mat.Tensor {
	return n.Heads().Loss(n.Forward(features), targets)
}
