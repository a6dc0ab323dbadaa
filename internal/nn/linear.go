package nn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Linear is a fully connected layer computing x*W + b.
type Linear struct {
	in, out int
	weight  *Param
	bias    *Param
	input   *mat.Dense
}

// NewLinear initialises weights and bias uniformly in ±1/sqrt(in).
func NewLinear(name string, in, out int, rng *rand.Rand) *Linear {
	l := &Linear{
		in:     in,
		out:    out,
		weight: newParam(name+".weight", in, out),
		bias:   newParam(name+".bias", 1, out),
	}
	bound := 1 / math.Sqrt(float64(in))
	uniform := func(_, _ int, _ float64) float64 {
		return (rng.Float64()*2 - 1) * bound
	}
	l.weight.Value.Apply(uniform, l.weight.Value)
	l.bias.Value.Apply(uniform, l.bias.Value)
	return l
}

func (l *Linear) Forward(x *mat.Dense) (*mat.Dense, error) {
	n, c := x.Dims()
	if c != l.in {
		return nil, fmt.Errorf("%w: %s expects %d features, got %d", ErrShape, l.Name(), l.in, c)
	}
	l.input = x
	out := mat.NewDense(n, l.out, nil)
	out.Mul(x, l.weight.Value)
	b := l.bias.Value.RawRowView(0)
	for i := 0; i < n; i++ {
		row := out.RawRowView(i)
		for j := range row {
			row[j] += b[j]
		}
	}
	return out, nil
}

func (l *Linear) Backward(grad *mat.Dense) *mat.Dense {
	var dw mat.Dense
	dw.Mul(l.input.T(), grad)
	l.weight.Grad.Add(l.weight.Grad, &dw)

	db := l.bias.Grad.RawRowView(0)
	n, _ := grad.Dims()
	for i := 0; i < n; i++ {
		for j, v := range grad.RawRowView(i) {
			db[j] += v
		}
	}

	var dx mat.Dense
	dx.Mul(grad, l.weight.Value.T())
	return &dx
}

func (l *Linear) Params() []*Param { return []*Param{l.weight, l.bias} }

func (l *Linear) SetTraining(bool) {}

func (l *Linear) Name() string { return fmt.Sprintf("Linear(%d, %d)", l.in, l.out) }
