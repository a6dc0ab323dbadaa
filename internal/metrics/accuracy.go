// Package metrics scores predictions and collects per-epoch results.
package metrics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Argmax returns the highest-scoring class of every logit row. Ties go to
// the lowest index.
func Argmax(logits mat.Matrix) []int {
	r, c := logits.Dims()
	out := make([]int, r)
	row := make([]float64, c)
	for i := range out {
		mat.Row(row, i, logits)
		out[i] = floats.MaxIdx(row)
	}
	return out
}

// Accuracy is the fraction of rows whose argmax equals the label. It is zero
// for an empty batch.
func Accuracy(logits mat.Matrix, labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	return matchRate(Argmax(logits), labels)
}

func matchRate(pred, labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	correct := 0
	for i, p := range pred {
		if p == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(labels))
}
