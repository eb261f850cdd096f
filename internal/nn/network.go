package nn

import (
	"errors"
	"fmt"

	"flexevo/internal/genotype"
)

var (
	ErrEmptyNetwork  = errors.New("empty network")
	ErrDanglingLink  = errors.New("link from unknown neuron")
	ErrInputMismatch = errors.New("input size mismatch")
)

// Network is a compiled, strictly layered feed-forward view of a genome.
//
// Layer 1 is a linear input gate: neuron i computes bias + w*x[In-1] for each
// of its non-bias links. Deeper neurons apply the activation to
// bias + sum(w * value(In)). Outputs are the last layer in id order.
type Network struct {
	layers     [][]int
	links      map[int][]genotype.Link
	activation ActivationFunc
	inputs     int
}

func Compile(genome genotype.Genome) (*Network, error) {
	return CompileWithActivation(genome, DefaultActivation)
}

func CompileWithActivation(genome genotype.Genome, activation string) (*Network, error) {
	fn, err := GetActivation(activation)
	if err != nil {
		return nil, err
	}
	topology := genotype.Decode(genome)
	if len(topology.Layers) == 0 {
		return nil, ErrEmptyNetwork
	}

	net := &Network{
		layers:     topology.Layers,
		links:      topology.Links,
		activation: fn,
	}
	for _, id := range topology.Layers[0] {
		for _, link := range topology.Links[id] {
			if link.In > net.inputs {
				net.inputs = link.In
			}
		}
	}

	known := make(map[int]struct{})
	for i, layer := range topology.Layers {
		if i > 0 {
			for _, id := range layer {
				for _, link := range topology.Links[id] {
					if link.In == genotype.BiasInput {
						continue
					}
					if _, ok := known[link.In]; !ok {
						return nil, fmt.Errorf("%w: neuron %d in layer %d reads %d", ErrDanglingLink, id, i+1, link.In)
					}
				}
			}
		}
		for _, id := range layer {
			known[id] = struct{}{}
		}
	}
	return net, nil
}

// Inputs is the number of input channels the gate layer reads.
func (n *Network) Inputs() int {
	return n.inputs
}

func (n *Network) Outputs() int {
	return len(n.layers[len(n.layers)-1])
}

func (n *Network) Depth() int {
	return len(n.layers)
}

func (n *Network) Forward(inputs []float64) ([]float64, error) {
	if len(inputs) < n.inputs {
		return nil, fmt.Errorf("%w: got %d want %d", ErrInputMismatch, len(inputs), n.inputs)
	}

	values := make(map[int]float64, len(n.links))
	for _, id := range n.layers[0] {
		total := 0.0
		for _, link := range n.links[id] {
			if link.In == genotype.BiasInput {
				total += link.Weight
				continue
			}
			total += link.Weight * inputs[link.In-1]
		}
		values[id] = Saturate(total, saturationLimit)
	}

	for _, layer := range n.layers[1:] {
		for _, id := range layer {
			total := 0.0
			for _, link := range n.links[id] {
				if link.In == genotype.BiasInput {
					total += link.Weight
					continue
				}
				total += link.Weight * values[link.In]
			}
			values[id] = n.activation(Saturate(total, saturationLimit))
		}
	}

	last := n.layers[len(n.layers)-1]
	out := make([]float64, len(last))
	for i, id := range last {
		out[i] = values[id]
	}
	return out, nil
}
