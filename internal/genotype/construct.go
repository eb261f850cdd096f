package genotype

import (
	"fmt"

	"flexevo/internal/rng"
)

// NewLayered builds a seed genome. Layer 1 is the input gate: neuron i reads
// input channel i with weight 1 and a zero bias. Every following layer (the
// hidden sizes, then outputs) is fully connected to its predecessor with a
// bias and random weights in [-1, 1]. Neuron ids are assigned sequentially,
// so genomes built with the same shape share ids.
func NewLayered(src rng.Source, inputs int, hidden []int, outputs int) (Genome, error) {
	if src == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if inputs <= 0 {
		return nil, fmt.Errorf("inputs must be > 0")
	}
	if outputs <= 0 {
		return nil, fmt.Errorf("outputs must be > 0")
	}
	for i, size := range hidden {
		if size <= 0 {
			return nil, fmt.Errorf("hidden layer %d size must be > 0", i)
		}
	}

	topology := Topology{Links: make(map[int][]Link)}
	gate := make([]int, inputs)
	for i := range gate {
		id := i + 1
		gate[i] = id
		topology.Links[id] = []Link{{In: BiasInput, Weight: 0}, {In: id, Weight: 1}}
	}
	topology.Layers = append(topology.Layers, gate)

	nextID := inputs + 1
	sizes := append(append([]int(nil), hidden...), outputs)
	for _, size := range sizes {
		prev := topology.Layers[len(topology.Layers)-1]
		layer := make([]int, size)
		for i := range layer {
			id := nextID
			nextID++
			layer[i] = id
			links := make([]Link, 0, len(prev)+1)
			links = append(links, Link{In: BiasInput, Weight: src.Uniform(-1, 1)})
			for _, in := range prev {
				links = append(links, Link{In: in, Weight: src.Uniform(-1, 1)})
			}
			topology.Links[id] = links
		}
		topology.Layers = append(topology.Layers, layer)
	}
	return topology.Encode(), nil
}
