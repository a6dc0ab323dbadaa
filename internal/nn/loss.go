package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// CrossEntropy is softmax cross-entropy averaged over the batch.
type CrossEntropy struct {
	probs  *mat.Dense
	labels []int
}

func (c *CrossEntropy) Forward(logits *mat.Dense, labels []int) (float64, error) {
	n, classes := logits.Dims()
	if len(labels) != n {
		return 0, fmt.Errorf("%w: %d logit rows for %d labels", ErrShape, n, len(labels))
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: empty batch", ErrShape)
	}
	probs := mat.NewDense(n, classes, nil)
	total := 0.0
	for i := 0; i < n; i++ {
		label := labels[i]
		if label < 0 || label >= classes {
			return 0, fmt.Errorf("%w: label %d with %d classes", ErrLabel, label, classes)
		}
		row := probs.RawRowView(i)
		mat.Row(row, i, logits)
		softmax(row)
		total += -math.Log(math.Max(row[label], 1e-9))
	}
	c.probs = probs
	c.labels = labels
	return total / float64(n), nil
}

// Backward returns the gradient of the mean loss with respect to the logits.
func (c *CrossEntropy) Backward() *mat.Dense {
	n, _ := c.probs.Dims()
	grad := mat.DenseCopyOf(c.probs)
	for i, label := range c.labels {
		grad.Set(i, label, grad.At(i, label)-1)
	}
	grad.Scale(1/float64(n), grad)
	return grad
}

func softmax(row []float64) {
	floats.AddConst(-floats.Max(row), row)
	for i, v := range row {
		row[i] = math.Exp(v)
	}
	floats.Scale(1/floats.Sum(row), row)
}
