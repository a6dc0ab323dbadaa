package dataset

import (
	"errors"
	"fmt"
	"math/rand"

	"epochkit/internal/seed"

	"gonum.org/v1/gonum/mat"
)

// ErrRagged indicates samples of differing feature width.
var ErrRagged = errors.New("dataset: ragged samples")

// Batch is a minibatch with one feature row per label.
type Batch struct {
	X *mat.Dense
	Y []int
}

// Size is the number of samples in the batch.
func (b Batch) Size() int { return len(b.Y) }

// Loader cuts a dataset into minibatches, optionally reshuffling each epoch.
type Loader struct {
	data    Dataset
	size    int
	shuffle bool
	rng     *rand.Rand
}

// NewLoader draws its shuffle order from the global seed. A non-positive
// batch size yields a single full batch.
func NewLoader(data Dataset, batchSize int, shuffle bool) *Loader {
	if batchSize <= 0 {
		batchSize = data.Len()
	}
	return &Loader{
		data:    data,
		size:    batchSize,
		shuffle: shuffle,
		rng:     seed.Stream(seed.StreamShuffle),
	}
}

// Len is the number of batches per epoch.
func (l *Loader) Len() int {
	n := l.data.Len()
	if n == 0 {
		return 0
	}
	return (n + l.size - 1) / l.size
}

// Samples is the number of samples per epoch.
func (l *Loader) Samples() int { return l.data.Len() }

// Batches returns one epoch of batches. The last batch may be short. Every
// sample must have the width of the first one.
func (l *Loader) Batches() ([]Batch, error) {
	n := l.data.Len()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if l.shuffle {
		l.rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	batches := make([]Batch, 0, l.Len())
	width := 0
	if n > 0 {
		first, _ := l.data.Sample(order[0])
		width = len(first)
	}
	for start := 0; start < n; start += l.size {
		end := start + l.size
		if end > n {
			end = n
		}
		x := mat.NewDense(end-start, width, nil)
		y := make([]int, 0, end-start)
		for r, idx := range order[start:end] {
			features, label := l.data.Sample(idx)
			if len(features) != width {
				return nil, fmt.Errorf("%w: sample %d has %d features, want %d", ErrRagged, idx, len(features), width)
			}
			x.SetRow(r, features)
			y = append(y, label)
		}
		batches = append(batches, Batch{X: x, Y: y})
	}
	return batches, nil
}
