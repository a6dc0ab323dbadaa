package optim

import (
	"errors"
	"math"
	"testing"

	"epochkit/internal/nn"

	"gonum.org/v1/gonum/mat"
)

func quadratic() *nn.Param {
	return &nn.Param{
		Name:  "w",
		Value: mat.NewDense(1, 2, []float64{3, -2}),
		Grad:  mat.NewDense(1, 2, nil),
	}
}

// fillGrad sets the gradient of f(w) = 0.5*|w|^2.
func fillGrad(p *nn.Param) {
	p.Grad.CloneFrom(p.Value)
}

func norm(p *nn.Param) float64 {
	return mat.Norm(p.Value, 2)
}

func TestOptimizersDescend(t *testing.T) {
	cases := []struct {
		name string
		opts Options
	}{
		{"sgd", Options{LearningRate: 0.1}},
		{"sgd", Options{LearningRate: 0.1, Momentum: 0.9}},
		{"sgd", Options{LearningRate: 0.1, WeightDecay: 0.01}},
		{"adam", Options{LearningRate: 0.1}},
	}
	for _, tc := range cases {
		p := quadratic()
		opt, err := New(tc.name, []*nn.Param{p}, tc.opts)
		if err != nil {
			t.Fatalf("New(%s): %v", tc.name, err)
		}
		start := norm(p)
		for i := 0; i < 50; i++ {
			opt.ZeroGrad()
			fillGrad(p)
			opt.Step()
		}
		if end := norm(p); end >= start {
			t.Fatalf("%s %+v did not descend: %f -> %f", tc.name, tc.opts, start, end)
		}
	}
}

func TestSGDStep(t *testing.T) {
	p := quadratic()
	opt := NewSGD([]*nn.Param{p}, 0.5, 0, 0)
	fillGrad(p)
	opt.Step()
	if p.Value.At(0, 0) != 1.5 || p.Value.At(0, 1) != -1 {
		t.Fatalf("unexpected values after step: %v", mat.Formatted(p.Value))
	}
	opt.ZeroGrad()
	if mat.Norm(p.Grad, 1) != 0 {
		t.Fatalf("ZeroGrad left %v", mat.Formatted(p.Grad))
	}
}

func TestAdamFirstStepIsLearningRate(t *testing.T) {
	p := quadratic()
	opt := NewAdam([]*nn.Param{p}, Options{LearningRate: 0.01})
	fillGrad(p)
	opt.Step()
	if math.Abs(p.Value.At(0, 0)-2.99) > 1e-6 {
		t.Fatalf("expected 2.99, got %f", p.Value.At(0, 0))
	}
	if math.Abs(p.Value.At(0, 1)+1.99) > 1e-6 {
		t.Fatalf("expected -1.99, got %f", p.Value.At(0, 1))
	}
}

func TestNewUnknown(t *testing.T) {
	if _, err := New("lbfgs", nil, Options{}); !errors.Is(err, ErrUnknownOptimizer) {
		t.Fatalf("expected ErrUnknownOptimizer, got %v", err)
	}
}
