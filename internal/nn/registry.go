package nn

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
)

// DefaultActivation is applied by every neuron outside the input gate layer.
const DefaultActivation = "tanh"

var (
	ErrActivationExists   = errors.New("activation already registered")
	ErrActivationNotFound = errors.New("activation not found")
)

type ActivationFunc func(x float64) float64

var builtinActivations = map[string]ActivationFunc{
	"identity": identity,
	"relu":     relu,
	"sigmoid":  sigmoid,
	"tanh":     math.Tanh,
}

// activations holds the built-ins plus anything registered at runtime. Names
// are case-insensitive.
var activations = struct {
	sync.RWMutex
	byName map[string]ActivationFunc
}{byName: cloneBuiltins()}

func cloneBuiltins() map[string]ActivationFunc {
	m := make(map[string]ActivationFunc, len(builtinActivations))
	for name, fn := range builtinActivations {
		m[name] = fn
	}
	return m
}

func activationKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func RegisterActivation(name string, fn ActivationFunc) error {
	key := activationKey(name)
	if key == "" {
		return errors.New("activation name is required")
	}
	if fn == nil {
		return fmt.Errorf("activation %q has no function", name)
	}

	activations.Lock()
	defer activations.Unlock()
	if _, taken := activations.byName[key]; taken {
		return fmt.Errorf("%w: %s", ErrActivationExists, key)
	}
	activations.byName[key] = fn
	return nil
}

func GetActivation(name string) (ActivationFunc, error) {
	activations.RLock()
	defer activations.RUnlock()
	fn, ok := activations.byName[activationKey(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrActivationNotFound, name)
	}
	return fn, nil
}

// ListActivations returns the registered names, sorted.
func ListActivations() []string {
	activations.RLock()
	defer activations.RUnlock()
	names := make([]string, 0, len(activations.byName))
	for name := range activations.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func resetActivationsForTests() {
	activations.Lock()
	activations.byName = cloneBuiltins()
	activations.Unlock()
}
