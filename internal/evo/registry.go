package evo

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrUnknownStrategy = errors.New("unknown strategy")

const (
	AlgorithmGenerational = "generational"
	AlgorithmFlex         = "flex"
)

var selectors = map[string]func(floor float64) Selector{
	"roulette_wheel": func(floor float64) Selector { return RouletteWheelSelection{Floor: floor} },
}

var crossovers = map[string]func() Crossover{
	"uniform": func() Crossover { return UniformCrossover{} },
}

// SelectorFromName builds a selector; an empty name picks roulette wheel.
func SelectorFromName(name string, floor float64) (Selector, error) {
	name = normalizeName(name)
	if name == "" {
		name = "roulette_wheel"
	}
	build, ok := selectors[name]
	if !ok {
		return nil, fmt.Errorf("%w: selection %q (known: %s)", ErrUnknownStrategy, name, strings.Join(SelectorNames(), ", "))
	}
	return build(floor), nil
}

// CrossoverFromName builds a crossover; an empty name picks uniform.
func CrossoverFromName(name string) (Crossover, error) {
	name = normalizeName(name)
	if name == "" {
		name = "uniform"
	}
	build, ok := crossovers[name]
	if !ok {
		return nil, fmt.Errorf("%w: crossover %q (known: %s)", ErrUnknownStrategy, name, strings.Join(CrossoverNames(), ", "))
	}
	return build(), nil
}

// ValidateAlgorithm checks an evolution loop name.
func ValidateAlgorithm(name string) (string, error) {
	switch normalizeName(name) {
	case "", AlgorithmFlex:
		return AlgorithmFlex, nil
	case AlgorithmGenerational:
		return AlgorithmGenerational, nil
	default:
		return "", fmt.Errorf("%w: algorithm %q", ErrUnknownStrategy, name)
	}
}

func SelectorNames() []string {
	return sortedKeys(selectors)
}

func CrossoverNames() []string {
	return sortedKeys(crossovers)
}

func normalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
