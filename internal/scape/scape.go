package scape

import (
	"context"
	"errors"
)

var ErrOutputSize = errors.New("unexpected output size")

type Fitness float64

type Trace map[string]any

type Agent interface {
	ID() string
}

// StepAgent maps one input vector to one output vector.
type StepAgent interface {
	Agent
	RunStep(ctx context.Context, input []float64) ([]float64, error)
}

// Scape scores an agent on a fixed task. Inputs and Outputs give the vector
// sizes a network must have to be evaluated.
type Scape interface {
	Name() string
	Inputs() int
	Outputs() int
	Evaluate(ctx context.Context, agent StepAgent) (Fitness, Trace, error)
}
