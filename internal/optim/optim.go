// Package optim updates module parameters from their accumulated gradients.
package optim

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"epochkit/internal/nn"

	"gonum.org/v1/gonum/mat"
)

// ErrUnknownOptimizer is returned by New for unrecognised names.
var ErrUnknownOptimizer = errors.New("optim: unknown optimizer")

// Optimizer applies one update per Step. ZeroGrad clears gradients before
// the next backward pass.
type Optimizer interface {
	ZeroGrad()
	Step()
}

// Options carries the hyperparameters shared by the constructors.
type Options struct {
	LearningRate float64
	Momentum     float64
	WeightDecay  float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
}

// New builds the optimizer called name ("sgd" or "adam").
func New(name string, params []*nn.Param, o Options) (Optimizer, error) {
	switch strings.ToLower(name) {
	case "", "sgd":
		return NewSGD(params, o.LearningRate, o.Momentum, o.WeightDecay), nil
	case "adam":
		return NewAdam(params, o), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOptimizer, name)
	}
}

func zeroGrad(params []*nn.Param) {
	for _, p := range params {
		p.Grad.Zero()
	}
}

// SGD is stochastic gradient descent with optional momentum and L2 decay.
type SGD struct {
	params      []*nn.Param
	lr          float64
	momentum    float64
	weightDecay float64
	velocity    []*mat.Dense
}

func NewSGD(params []*nn.Param, lr, momentum, weightDecay float64) *SGD {
	s := &SGD{params: params, lr: lr, momentum: momentum, weightDecay: weightDecay}
	if momentum > 0 {
		s.velocity = make([]*mat.Dense, len(params))
		for i, p := range params {
			r, c := p.Value.Dims()
			s.velocity[i] = mat.NewDense(r, c, nil)
		}
	}
	return s
}

func (s *SGD) ZeroGrad() { zeroGrad(s.params) }

func (s *SGD) Step() {
	for i, p := range s.params {
		var g mat.Dense
		g.CloneFrom(p.Grad)
		if s.weightDecay > 0 {
			var decay mat.Dense
			decay.Scale(s.weightDecay, p.Value)
			g.Add(&g, &decay)
		}
		if s.velocity != nil {
			v := s.velocity[i]
			v.Scale(s.momentum, v)
			v.Add(v, &g)
			g.CloneFrom(v)
		}
		g.Scale(s.lr, &g)
		p.Value.Sub(p.Value, &g)
	}
}

// Adam keeps bias-corrected first and second gradient moments.
type Adam struct {
	params       []*nn.Param
	lr           float64
	beta1, beta2 float64
	eps          float64
	weightDecay  float64
	m, v         []*mat.Dense
	t            int
}

// NewAdam fills unset betas and epsilon with 0.9, 0.999 and 1e-8.
func NewAdam(params []*nn.Param, o Options) *Adam {
	a := &Adam{
		params:      params,
		lr:          o.LearningRate,
		beta1:       o.Beta1,
		beta2:       o.Beta2,
		eps:         o.Epsilon,
		weightDecay: o.WeightDecay,
	}
	if a.beta1 == 0 {
		a.beta1 = 0.9
	}
	if a.beta2 == 0 {
		a.beta2 = 0.999
	}
	if a.eps == 0 {
		a.eps = 1e-8
	}
	a.m = make([]*mat.Dense, len(params))
	a.v = make([]*mat.Dense, len(params))
	for i, p := range params {
		r, c := p.Value.Dims()
		a.m[i] = mat.NewDense(r, c, nil)
		a.v[i] = mat.NewDense(r, c, nil)
	}
	return a
}

func (a *Adam) ZeroGrad() { zeroGrad(a.params) }

func (a *Adam) Step() {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	for i, p := range a.params {
		m, v := a.m[i], a.v[i]
		p.Value.Apply(func(r, c int, w float64) float64 {
			g := p.Grad.At(r, c) + a.weightDecay*w
			mi := a.beta1*m.At(r, c) + (1-a.beta1)*g
			vi := a.beta2*v.At(r, c) + (1-a.beta2)*g*g
			m.Set(r, c, mi)
			v.Set(r, c, vi)
			return w - a.lr*(mi/c1)/(math.Sqrt(vi/c2)+a.eps)
		}, p.Value)
	}
}
