package evo

import (
	"slices"

	"flexevo/internal/genotype"
)

type slot struct {
	layer    int
	position int
}

// idTable assigns canonical neuron ids to (layer, position) slots for one
// structural mutation pass, so individuals that grow the same slot agree on
// the new id. It is built from the population at the start of the pass and
// dropped afterwards.
type idTable struct {
	ids   map[slot]int
	maxID int
}

func newIDTable(population []Offspring) *idTable {
	table := &idTable{ids: make(map[slot]int)}
	for _, off := range population {
		table.observe(genotype.Decode(off.Genome))
	}
	return table
}

func (t *idTable) observe(topology genotype.Topology) {
	for i, layer := range topology.Layers {
		for pos, id := range layer {
			if id > t.maxID {
				t.maxID = id
			}
			if i == 0 {
				continue
			}
			t.ids[slot{layer: i + 1, position: pos + 1}] = id
		}
	}
}

// resolve returns the id recorded for the slot, minting a fresh one when the
// slot has never been seen.
func (t *idTable) resolve(layer, position int) int {
	if id, ok := t.ids[slot{layer: layer, position: position}]; ok {
		return id
	}
	return t.mint(layer, position)
}

func (t *idTable) mint(layer, position int) int {
	id := t.next()
	t.ids[slot{layer: layer, position: position}] = id
	return id
}

// next hands out an unused id without binding it to a slot.
func (t *idTable) next() int {
	t.maxID++
	return t.maxID
}

// claim resolves the slot for one individual. If the canonical id is already
// used by that individual in a different layer, or was handed out earlier in
// the same edit (taken), that individual gets a fresh id instead so the genome
// never merges two neurons. The slot keeps its canonical id for everyone else.
func (t *idTable) claim(topology genotype.Topology, layer, position int, taken []int) int {
	id := t.resolve(layer, position)
	if owner := topology.LayerOf(id); owner != 0 && owner != layer {
		return t.next()
	}
	if slices.Contains(taken, id) {
		return t.next()
	}
	return id
}
