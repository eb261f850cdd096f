package genotype

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateKey = errors.New("duplicate gene key")
	ErrInvalidGene  = errors.New("invalid gene")
)

// BiasInput is the In value that marks a gene as the bias of its Out neuron.
const BiasInput = 0

// Gene is one weighted connection (or bias) of a layered network.
type Gene struct {
	Weight float64 `json:"weight"`
	Layer  int     `json:"layer"`
	Out    int     `json:"out"`
	In     int     `json:"in"`
}

// Key identifies a gene for crossover alignment.
type Key struct {
	Layer int
	Out   int
	In    int
}

func (g Gene) Key() Key {
	return Key{Layer: g.Layer, Out: g.Out, In: g.In}
}

func (g Gene) IsBias() bool {
	return g.In == BiasInput
}

// Genome is an ordered gene list. Order carries no meaning on its own.
type Genome []Gene

func (g Genome) Clone() Genome {
	if g == nil {
		return nil
	}
	out := make(Genome, len(g))
	copy(out, g)
	return out
}

func (g Genome) Keys() map[Key]int {
	keys := make(map[Key]int, len(g))
	for i, gene := range g {
		keys[gene.Key()] = i
	}
	return keys
}

// Validate checks gene coordinates and key uniqueness.
func (g Genome) Validate() error {
	seen := make(map[Key]struct{}, len(g))
	for i, gene := range g {
		if gene.Layer < 1 || gene.Out < 1 || gene.In < 0 {
			return fmt.Errorf("%w at index %d: layer=%d out=%d in=%d", ErrInvalidGene, i, gene.Layer, gene.Out, gene.In)
		}
		key := gene.Key()
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%w at index %d: %+v", ErrDuplicateKey, i, key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// MaxNeuronID returns the largest Out id in the genome, or 0 when empty.
func (g Genome) MaxNeuronID() int {
	maxID := 0
	for _, gene := range g {
		if gene.Out > maxID {
			maxID = gene.Out
		}
	}
	return maxID
}

func (g Genome) Layers() int {
	layers := 0
	for _, gene := range g {
		if gene.Layer > layers {
			layers = gene.Layer
		}
	}
	return layers
}
