package genotype

import "sort"

// Link is one input of a neuron: the source id (BiasInput for the bias) and
// its weight.
type Link struct {
	In     int
	Weight float64
}

// Topology is the decoded, layered view of a genome. It is a disposable value:
// decode, edit, encode, drop.
type Topology struct {
	// Links maps a neuron id to its inputs in genome order.
	Links map[int][]Link
	// Layers holds the neuron ids of layer i+1, ascending.
	Layers [][]int
}

// Decode groups genes by destination neuron and collects the per-layer id
// sets. An empty genome yields an empty topology.
func Decode(genome Genome) Topology {
	topology := Topology{Links: make(map[int][]Link)}
	seen := make(map[Key]struct{})
	for _, gene := range genome {
		if gene.Layer < 1 {
			continue
		}
		topology.Links[gene.Out] = append(topology.Links[gene.Out], Link{In: gene.In, Weight: gene.Weight})

		for len(topology.Layers) < gene.Layer {
			topology.Layers = append(topology.Layers, nil)
		}
		member := Key{Layer: gene.Layer, Out: gene.Out}
		if _, ok := seen[member]; ok {
			continue
		}
		seen[member] = struct{}{}
		topology.Layers[gene.Layer-1] = append(topology.Layers[gene.Layer-1], gene.Out)
	}
	topology.SortLayers()
	return topology
}

// Encode emits genes layer by layer and id by id. Neurons listed in Layers
// without a Links entry contribute nothing.
func (t Topology) Encode() Genome {
	genome := make(Genome, 0, t.linkCount())
	for i, layer := range t.Layers {
		for _, out := range layer {
			for _, link := range t.Links[out] {
				genome = append(genome, Gene{Weight: link.Weight, Layer: i + 1, Out: out, In: link.In})
			}
		}
	}
	return genome
}

func (t Topology) SortLayers() {
	for _, layer := range t.Layers {
		sort.Ints(layer)
	}
}

func (t Topology) Clone() Topology {
	out := Topology{
		Links:  make(map[int][]Link, len(t.Links)),
		Layers: make([][]int, len(t.Layers)),
	}
	for id, links := range t.Links {
		out.Links[id] = append([]Link(nil), links...)
	}
	for i, layer := range t.Layers {
		out.Layers[i] = append([]int(nil), layer...)
	}
	return out
}

// LayerOf returns the 1-based layer holding id, or 0.
func (t Topology) LayerOf(id int) int {
	for i, layer := range t.Layers {
		for _, member := range layer {
			if member == id {
				return i + 1
			}
		}
	}
	return 0
}

func (t Topology) Contains(layer, id int) bool {
	if layer < 1 || layer > len(t.Layers) {
		return false
	}
	for _, member := range t.Layers[layer-1] {
		if member == id {
			return true
		}
	}
	return false
}

func (t Topology) linkCount() int {
	total := 0
	for _, links := range t.Links {
		total += len(links)
	}
	return total
}
