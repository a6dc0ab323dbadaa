// Package nn provides the layers, containers and loss functions that the
// training loops drive. Tensors are gonum dense matrices with one row per
// sample.
package nn

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrShape is returned when an input does not match a layer's width.
	ErrShape = errors.New("nn: shape mismatch")
	// ErrLabel is returned for class labels outside the logit range.
	ErrLabel = errors.New("nn: label out of range")
)

// Param is a trainable tensor together with its accumulated gradient.
type Param struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

func newParam(name string, r, c int) *Param {
	return &Param{
		Name:  name,
		Value: mat.NewDense(r, c, nil),
		Grad:  mat.NewDense(r, c, nil),
	}
}

// Module is a differentiable computation. Backward must follow the Forward
// whose activations it differentiates, and adds into the Grad of Params.
type Module interface {
	Forward(x *mat.Dense) (*mat.Dense, error)
	Backward(grad *mat.Dense) *mat.Dense
	Params() []*Param
	SetTraining(training bool)
	Name() string
}

// Loss scores logits against integer class labels.
type Loss interface {
	Forward(logits *mat.Dense, labels []int) (float64, error)
	Backward() *mat.Dense
}
