package evo

import (
	"fmt"

	"flexevo/internal/genotype"
	"flexevo/internal/rng"
)

// FlexMutator mutates a whole draft population in one pass so structural
// edits can share canonical neuron ids.
type FlexMutator interface {
	Name() string
	MutatePopulation(src rng.Source, population []Offspring) error
}

const (
	DefaultNeuronChance    = 1.0
	DefaultLayerChance     = 1.0
	DefaultAddNeuronChance = 0.7
	DefaultAddLayerChance  = 0.7
)

// FlexMutation perturbs weights and grows or shrinks layered topologies.
//
// Weights of every individual with MutForce > 0 are perturbed outside layer 1.
// Replaced individuals (Changed) additionally get, by force:
//
//	ForceNeurons: an input toggle (InputChance) and a neuron add/remove on a
//	random internal layer (NeuronChance, AddNeuronChance)
//	ForceLayers:  a layer append or a removal of the smallest internal layer
//	(LayerChance, AddLayerChance)
//
// Operators whose preconditions do not hold are skipped.
type FlexMutation struct {
	Chance   float64
	Coeff    float64
	EyeCells int

	InputChance     float64
	NeuronChance    float64
	LayerChance     float64
	AddNeuronChance float64
	AddLayerChance  float64
}

func NewFlexMutation(chance, coeff float64, eyeCells int) (*FlexMutation, error) {
	if chance < 0 || chance > 1 {
		return nil, fmt.Errorf("mutation chance must be in [0, 1]: %v", chance)
	}
	if eyeCells < 0 {
		return nil, fmt.Errorf("eye cells must be >= 0: %d", eyeCells)
	}
	return &FlexMutation{
		Chance:          chance,
		Coeff:           coeff,
		EyeCells:        eyeCells,
		NeuronChance:    DefaultNeuronChance,
		LayerChance:     DefaultLayerChance,
		AddNeuronChance: DefaultAddNeuronChance,
		AddLayerChance:  DefaultAddLayerChance,
	}, nil
}

func (m *FlexMutation) Name() string {
	return "flex1"
}

func (m *FlexMutation) MutatePopulation(src rng.Source, population []Offspring) error {
	if src == nil {
		return fmt.Errorf("random source is required")
	}
	table := newIDTable(population)

	weights := WeightMutation{Chance: m.Chance, Coeff: m.Coeff}
	for i := range population {
		if population[i].MutForce <= ForceNone {
			continue
		}
		genome := population[i].Genome.Clone()
		for j := range genome {
			if genome[j].Layer <= 1 {
				continue
			}
			genome[j].Weight = weights.perturb(src, genome[j].Weight)
		}
		population[i].Genome = genome
	}

	for i := range population {
		off := &population[i]
		if off.MutForce != ForceNeurons || !off.Changed {
			continue
		}
		if !src.Bool(m.InputChance) {
			continue
		}
		off.Genome = m.toggleInput(src, off.Genome)
	}

	for i := range population {
		off := &population[i]
		if off.MutForce != ForceNeurons || !off.Changed {
			continue
		}
		if !src.Bool(m.NeuronChance) {
			continue
		}
		topology := genotype.Decode(off.Genome)
		if len(topology.Layers) < 3 {
			continue
		}
		layer := src.IntRange(2, len(topology.Layers)-1)
		var err error
		if src.Bool(m.AddNeuronChance) {
			err = addNeuron(src, table, topology, layer)
		} else {
			err = removeNeuron(topology, layer)
		}
		if err != nil {
			return fmt.Errorf("individual %d: %w", i, err)
		}
		topology.SortLayers()
		off.Genome = topology.Encode()
	}

	for i := range population {
		off := &population[i]
		if off.MutForce != ForceLayers || !off.Changed {
			continue
		}
		if !src.Bool(m.LayerChance) {
			continue
		}
		topology := genotype.Decode(off.Genome)
		if len(topology.Layers) == 0 {
			continue
		}
		if src.Bool(m.AddLayerChance) {
			topology = addLayer(src, table, topology)
		} else {
			topology = removeLayer(src, table, topology)
		}
		topology.SortLayers()
		off.Genome = topology.Encode()
	}
	return nil
}

// toggleInput switches one gated input channel fully on or off.
func (m *FlexMutation) toggleInput(src rng.Source, genome genotype.Genome) genotype.Genome {
	if m.EyeCells <= 0 {
		return genome
	}
	input := src.IntRange(1, m.EyeCells*2)
	weight := 0.0
	if src.Bool(0.5) {
		weight = 1.0
	}
	toggled := genome.Clone()
	for i := range toggled {
		if toggled[i].Layer != 1 || toggled[i].Out != input || toggled[i].IsBias() {
			continue
		}
		toggled[i].Weight = weight
	}
	return toggled
}

// addNeuron appends a neuron to layer, copying the inputs of the layer's
// first neuron and wiring it into every neuron of the next layer.
func addNeuron(src rng.Source, table *idTable, t genotype.Topology, layer int) error {
	members := t.Layers[layer-1]
	if len(members) == 0 {
		return nil
	}
	id := table.claim(t, layer, len(members)+1, nil)
	if t.Contains(layer, id) {
		return nil
	}

	sibling, ok := t.Links[members[0]]
	if !ok {
		return fmt.Errorf("%w: neuron %d in layer %d has no inputs", ErrCorruptTopology, members[0], layer)
	}
	t.Layers[layer-1] = append(members, id)
	t.Links[id] = append([]genotype.Link(nil), sibling...)

	for _, next := range t.Layers[layer] {
		links, ok := t.Links[next]
		if !ok {
			return fmt.Errorf("%w: neuron %d in layer %d has no inputs", ErrCorruptTopology, next, layer+1)
		}
		t.Links[next] = append(links, genotype.Link{In: id, Weight: src.Uniform(-1, 1)})
	}
	return nil
}

// removeNeuron drops the highest id of layer and its outgoing links. A layer
// with a single neuron is left alone.
func removeNeuron(t genotype.Topology, layer int) error {
	members := t.Layers[layer-1]
	if len(members) < 2 {
		return nil
	}
	id := members[len(members)-1]
	t.Layers[layer-1] = members[:len(members)-1]
	delete(t.Links, id)

	for _, next := range t.Layers[layer] {
		links, ok := t.Links[next]
		if !ok {
			return fmt.Errorf("%w: neuron %d in layer %d has no inputs", ErrCorruptTopology, next, layer+1)
		}
		kept := links[:0]
		for _, link := range links {
			if link.In != id {
				kept = append(kept, link)
			}
		}
		t.Links[next] = kept
	}
	return nil
}

// addLayer appends a new last layer shaped like the current one and fully
// connected to it with fresh weights.
func addLayer(src rng.Source, table *idTable, t genotype.Topology) genotype.Topology {
	depth := len(t.Layers)
	last := t.Layers[depth-1]
	fresh := make([]int, 0, len(last))
	for pos := range last {
		id := table.claim(t, depth+1, pos+1, fresh)
		fresh = append(fresh, id)
		t.Links[id] = freshLinks(src, last)
	}
	t.Layers = append(t.Layers, fresh)
	return t
}

// removeLayer collapses the internal layer with the fewest neurons (the
// shallowest one on ties). Every layer from there on takes the shape of its
// successor and is rewired to its new predecessor with fresh weights; the old
// last layer disappears. Nets with fewer than 4 layers are left alone.
func removeLayer(src rng.Source, table *idTable, t genotype.Topology) genotype.Topology {
	depth := len(t.Layers)
	if depth < 4 {
		return t
	}
	target := 1
	for i := 2; i < depth-1; i++ {
		if len(t.Layers[i]) < len(t.Layers[target]) {
			target = i
		}
	}

	for d := target; d < depth; d++ {
		if d+1 >= len(t.Layers) {
			t.Layers = t.Layers[:d]
			break
		}
		prev := t.Layers[d-1]
		successor := t.Layers[d+1]
		rebuilt := make([]int, 0, len(successor))
		for pos := range successor {
			id := table.claim(t, d+1, pos+1, rebuilt)
			rebuilt = append(rebuilt, id)
			t.Links[id] = freshLinks(src, prev)
		}
		t.Layers[d] = rebuilt
	}
	return t
}

func freshLinks(src rng.Source, inputs []int) []genotype.Link {
	links := make([]genotype.Link, 0, len(inputs)+1)
	links = append(links, genotype.Link{In: genotype.BiasInput, Weight: src.Uniform(-1, 1)})
	for _, in := range inputs {
		links = append(links, genotype.Link{In: in, Weight: src.Uniform(-1, 1)})
	}
	return links
}
