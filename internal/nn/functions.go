package nn

import "math"

// saturationLimit bounds every neuron sum before activation so that large
// weights cannot push values to Inf.
const saturationLimit = 1000.0

// Saturate clamps value to [-limit, limit]; a negative limit is mirrored.
func Saturate(value, limit float64) float64 {
	limit = math.Abs(limit)
	return math.Max(-limit, math.Min(limit, value))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func relu(x float64) float64 {
	return math.Max(0, x)
}

func identity(x float64) float64 {
	return x
}
