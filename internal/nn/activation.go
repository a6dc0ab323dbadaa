package nn

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// ReLU clamps negative activations to zero.
type ReLU struct {
	mask *mat.Dense
}

func (r *ReLU) Forward(x *mat.Dense) (*mat.Dense, error) {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		if v > 0 {
			return v
		}
		return 0
	}, x)
	var mask mat.Dense
	mask.Apply(func(_, _ int, v float64) float64 {
		if v > 0 {
			return 1
		}
		return 0
	}, x)
	r.mask = &mask
	return &out, nil
}

func (r *ReLU) Backward(grad *mat.Dense) *mat.Dense {
	var dx mat.Dense
	dx.MulElem(grad, r.mask)
	return &dx
}

func (r *ReLU) Params() []*Param { return nil }

func (r *ReLU) SetTraining(bool) {}

func (r *ReLU) Name() string { return "ReLU" }

// Dropout zeroes activations with probability p while training and rescales
// the survivors by 1/(1-p). In evaluation mode it is the identity.
type Dropout struct {
	p        float64
	rng      *rand.Rand
	training bool
	mask     *mat.Dense
}

// NewDropout panics unless 0 <= p < 1.
func NewDropout(p float64, rng *rand.Rand) *Dropout {
	if p < 0 || p >= 1 {
		panic(fmt.Sprintf("nn: dropout probability %v not in [0, 1)", p))
	}
	return &Dropout{p: p, rng: rng, training: true}
}

func (d *Dropout) Forward(x *mat.Dense) (*mat.Dense, error) {
	if !d.training || d.p == 0 {
		d.mask = nil
		return x, nil
	}
	keep := 1 / (1 - d.p)
	var mask mat.Dense
	mask.Apply(func(_, _ int, _ float64) float64 {
		if d.rng.Float64() < d.p {
			return 0
		}
		return keep
	}, x)
	d.mask = &mask
	var out mat.Dense
	out.MulElem(x, &mask)
	return &out, nil
}

func (d *Dropout) Backward(grad *mat.Dense) *mat.Dense {
	if d.mask == nil {
		return grad
	}
	var dx mat.Dense
	dx.MulElem(grad, d.mask)
	return &dx
}

func (d *Dropout) Params() []*Param { return nil }

func (d *Dropout) SetTraining(training bool) { d.training = training }

func (d *Dropout) Name() string { return fmt.Sprintf("Dropout(p=%.2f)", d.p) }
