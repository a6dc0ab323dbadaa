package metrics

import "gonum.org/v1/gonum/mat"

// PredictionBatch holds the raw logits of one batch and its true labels.
type PredictionBatch struct {
	Logits *mat.Dense
	Labels []int
}

// Predictions collects the batches of one pass over a split.
type Predictions struct {
	Batches []PredictionBatch
}

// Add records a batch. The logits are copied.
func (p *Predictions) Add(logits mat.Matrix, labels []int) {
	p.Batches = append(p.Batches, PredictionBatch{
		Logits: mat.DenseCopyOf(logits),
		Labels: append([]int(nil), labels...),
	})
}

// Len is the number of recorded samples.
func (p *Predictions) Len() int {
	n := 0
	for _, b := range p.Batches {
		n += len(b.Labels)
	}
	return n
}

// Classes returns the predicted class of every sample in record order.
func (p *Predictions) Classes() []int {
	out := make([]int, 0, p.Len())
	for _, b := range p.Batches {
		out = append(out, Argmax(b.Logits)...)
	}
	return out
}

// Labels returns the true class of every sample in record order.
func (p *Predictions) Labels() []int {
	out := make([]int, 0, p.Len())
	for _, b := range p.Batches {
		out = append(out, b.Labels...)
	}
	return out
}

// Accuracy is computed over all samples rather than averaged per batch.
func (p *Predictions) Accuracy() float64 {
	return matchRate(p.Classes(), p.Labels())
}
