package scape

import (
	"context"
	"fmt"
	"math"
)

// SineRegressionScape fits y = sin(pi*x) on evenly spaced samples of [-1, 1].
// Fitness is 1/(1+MSE).
type SineRegressionScape struct {
	Samples int
}

const defaultSineSamples = 21

func (SineRegressionScape) Name() string {
	return "sine"
}

func (SineRegressionScape) Inputs() int {
	return 1
}

func (SineRegressionScape) Outputs() int {
	return 1
}

func (s SineRegressionScape) Evaluate(ctx context.Context, agent StepAgent) (Fitness, Trace, error) {
	samples := s.Samples
	if samples < 2 {
		samples = defaultSineSamples
	}

	var squaredErr float64
	predictions := make([]float64, 0, samples)
	for i := 0; i < samples; i++ {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		x := -1 + 2*float64(i)/float64(samples-1)
		out, err := agent.RunStep(ctx, []float64{x})
		if err != nil {
			return 0, nil, fmt.Errorf("agent %s: %w", agent.ID(), err)
		}
		if len(out) != s.Outputs() {
			return 0, nil, fmt.Errorf("%w: sine requires one output, got %d", ErrOutputSize, len(out))
		}
		predictions = append(predictions, out[0])
		delta := out[0] - math.Sin(math.Pi*x)
		squaredErr += delta * delta
	}

	mse := squaredErr / float64(samples)
	return Fitness(1 / (1 + mse)), Trace{"mse": mse, "predictions": predictions}, nil
}
