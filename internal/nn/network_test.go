package nn

import (
	"errors"
	"math"
	"testing"

	"flexevo/internal/genotype"
)

func gatedGenome() genotype.Genome {
	return genotype.Genome{
		{Weight: 0, Layer: 1, Out: 1, In: 0}, {Weight: 1, Layer: 1, Out: 1, In: 1},
		{Weight: 0, Layer: 1, Out: 2, In: 0}, {Weight: 1, Layer: 1, Out: 2, In: 2},
		{Weight: 0.5, Layer: 2, Out: 3, In: 0}, {Weight: 2, Layer: 2, Out: 3, In: 1}, {Weight: -1, Layer: 2, Out: 3, In: 2},
	}
}

func TestForwardGatedLayer(t *testing.T) {
	net, err := CompileWithActivation(gatedGenome(), "identity")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if net.Inputs() != 2 || net.Outputs() != 1 || net.Depth() != 2 {
		t.Fatalf("unexpected network shape: in=%d out=%d depth=%d", net.Inputs(), net.Outputs(), net.Depth())
	}

	out, err := net.Forward([]float64{1.0, 0.25})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if len(out) != 1 || math.Abs(out[0]-2.25) > 1e-9 {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestForwardDisabledInputIsIgnored(t *testing.T) {
	genome := gatedGenome()
	genome[3].Weight = 0
	net, err := CompileWithActivation(genome, "identity")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	a, err := net.Forward([]float64{1, 5})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	b, err := net.Forward([]float64{1, -5})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if a[0] != b[0] {
		t.Fatalf("switched-off input still affects output: %v vs %v", a, b)
	}
}

func TestForwardDefaultActivationIsTanh(t *testing.T) {
	net, err := Compile(gatedGenome())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	out, err := net.Forward([]float64{1.0, 0.25})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if math.Abs(out[0]-math.Tanh(2.25)) > 1e-9 {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestForwardInputMismatch(t *testing.T) {
	net, err := Compile(gatedGenome())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if _, err := net.Forward([]float64{1}); !errors.Is(err, ErrInputMismatch) {
		t.Fatalf("expected ErrInputMismatch, got %v", err)
	}
}

func TestCompileRejectsBrokenGenomes(t *testing.T) {
	if _, err := Compile(nil); !errors.Is(err, ErrEmptyNetwork) {
		t.Fatalf("expected ErrEmptyNetwork, got %v", err)
	}

	dangling := append(gatedGenome(), genotype.Gene{Weight: 1, Layer: 3, Out: 4, In: 9})
	if _, err := Compile(dangling); !errors.Is(err, ErrDanglingLink) {
		t.Fatalf("expected ErrDanglingLink, got %v", err)
	}

	if _, err := CompileWithActivation(gatedGenome(), "unknown"); !errors.Is(err, ErrActivationNotFound) {
		t.Fatalf("expected ErrActivationNotFound, got %v", err)
	}
}
