package scape

import (
	"context"
	"fmt"
	"math"
)

// XORScape scores the four XOR cases. Fitness is 4 minus the summed absolute
// error, floored at 0, so a perfect network scores 4.
type XORScape struct{}

func (XORScape) Name() string {
	return "xor"
}

func (XORScape) Inputs() int {
	return 2
}

func (XORScape) Outputs() int {
	return 1
}

type xorCase struct {
	in   []float64
	want float64
}

var xorCases = []xorCase{
	{in: []float64{0, 0}, want: 0},
	{in: []float64{0, 1}, want: 1},
	{in: []float64{1, 0}, want: 1},
	{in: []float64{1, 1}, want: 0},
}

func (s XORScape) Evaluate(ctx context.Context, agent StepAgent) (Fitness, Trace, error) {
	var absErr, squaredErr float64
	predictions := make([]float64, 0, len(xorCases))
	for _, c := range xorCases {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		out, err := agent.RunStep(ctx, c.in)
		if err != nil {
			return 0, nil, fmt.Errorf("agent %s: %w", agent.ID(), err)
		}
		if len(out) != s.Outputs() {
			return 0, nil, fmt.Errorf("%w: xor requires one output, got %d", ErrOutputSize, len(out))
		}
		predictions = append(predictions, out[0])
		delta := out[0] - c.want
		absErr += math.Abs(delta)
		squaredErr += delta * delta
	}

	fitness := Fitness(math.Max(0, float64(len(xorCases))-absErr))
	return fitness, Trace{
		"mse":         squaredErr / float64(len(xorCases)),
		"abs_error":   absErr,
		"predictions": predictions,
	}, nil
}
