package genotype

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type TopologySummary struct {
	Layers       int   `json:"layers"`
	TotalNeurons int   `json:"total_neurons"`
	TotalLinks   int   `json:"total_links"`
	TotalBiases  int   `json:"total_biases"`
	ActiveInputs int   `json:"active_inputs"`
	Shape        []int `json:"shape"`
}

type GenomeSignature struct {
	Fingerprint string          `json:"fingerprint"`
	Shape       string          `json:"shape"`
	Summary     TopologySummary `json:"summary"`
}

// Shape counts neurons per layer. Layer 1 counts only inputs that are
// switched on, i.e. carry a positive non-bias weight.
func (g Genome) Shape() []int {
	members := make([]map[int]struct{}, g.Layers())
	for i := range members {
		members[i] = make(map[int]struct{})
	}
	for _, gene := range g {
		if gene.Layer < 1 {
			continue
		}
		if gene.Layer == 1 && (gene.IsBias() || gene.Weight <= 0) {
			continue
		}
		members[gene.Layer-1][gene.Out] = struct{}{}
	}
	shape := make([]int, len(members))
	for i, set := range members {
		shape[i] = len(set)
	}
	return shape
}

// ShapeSignature renders Shape as "n1.n2.n3.".
func (g Genome) ShapeSignature() string {
	var b strings.Builder
	for _, count := range g.Shape() {
		b.WriteString(strconv.Itoa(count))
		b.WriteByte('.')
	}
	return b.String()
}

func ComputeGenomeSignature(genome Genome) GenomeSignature {
	topology := Decode(genome)
	shape := genome.Shape()

	summary := TopologySummary{
		Layers: len(topology.Layers),
		Shape:  shape,
	}
	for _, layer := range topology.Layers {
		summary.TotalNeurons += len(layer)
	}
	if len(shape) > 0 {
		summary.ActiveInputs = shape[0]
	}
	for _, gene := range genome {
		if gene.IsBias() {
			summary.TotalBiases++
		} else {
			summary.TotalLinks++
		}
	}

	keys := make([]string, 0, len(genome))
	for _, gene := range genome {
		keys = append(keys, fmt.Sprintf("%d/%d/%d", gene.Layer, gene.Out, gene.In))
	}
	sort.Strings(keys)
	digest := sha1.Sum([]byte(strings.Join(keys, "|")))
	return GenomeSignature{
		Fingerprint: hex.EncodeToString(digest[:8]),
		Shape:       genome.ShapeSignature(),
		Summary:     summary,
	}
}
