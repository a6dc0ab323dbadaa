package dataset

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"k8s.io/klog/v2"
)

// Dataset is an indexable collection of labelled feature vectors.
type Dataset interface {
	Len() int
	Sample(i int) ([]float64, int)
}

// InMemory holds every sample in memory.
type InMemory struct {
	X [][]float64
	Y []int
}

func (d *InMemory) Len() int { return len(d.Y) }

func (d *InMemory) Sample(i int) ([]float64, int) { return d.X[i], d.Y[i] }

// Features is the width of the first sample, or zero when empty.
func (d *InMemory) Features() int {
	if len(d.X) == 0 {
		return 0
	}
	return len(d.X[0])
}

// Classes is one past the largest label.
func (d *InMemory) Classes() int {
	top := -1
	for _, y := range d.Y {
		if y > top {
			top = y
		}
	}
	return top + 1
}

// Split moves a random valFraction of the samples into a second dataset.
func (d *InMemory) Split(valFraction float64, rng *rand.Rand) (train, val *InMemory) {
	perm := rng.Perm(d.Len())
	nVal := int(float64(d.Len()) * valFraction)
	train, val = &InMemory{}, &InMemory{}
	for i, idx := range perm {
		dst := train
		if i < nVal {
			dst = val
		}
		dst.X = append(dst.X, d.X[idx])
		dst.Y = append(dst.Y, d.Y[idx])
	}
	return train, val
}

// Blobs draws n points around one random centre per class with the given
// standard deviation. Centres lie in [-10, 10) on every axis.
func Blobs(n, features, classes int, spread float64, rng *rand.Rand) *InMemory {
	centres := make([][]float64, classes)
	for c := range centres {
		centres[c] = make([]float64, features)
		for j := range centres[c] {
			centres[c][j] = rng.Float64()*20 - 10
		}
	}
	d := &InMemory{X: make([][]float64, n), Y: make([]int, n)}
	for i := 0; i < n; i++ {
		c := i % classes
		x := make([]float64, features)
		for j := range x {
			x[j] = centres[c][j] + spread*rng.NormFloat64()
		}
		d.X[i] = x
		d.Y[i] = c
	}
	return d
}

// LoadShards reads every shard into memory, reducing images to feature
// vectors. Images that fail to decode are skipped.
func LoadShards(ctx context.Context, paths []string, pendingCap int) (*InMemory, error) {
	d := &InMemory{}
	skipped := 0
	for _, path := range paths {
		n, err := loadShard(ctx, d, path, pendingCap)
		skipped += n
		if err != nil {
			return nil, fmt.Errorf("load shards: %w", err)
		}
	}
	if skipped > 0 {
		klog.Warningf("load shards: skipped %d undecodable images", skipped)
	}
	if d.Len() == 0 {
		return nil, errors.New("load shards: no usable samples")
	}
	return d, nil
}

// loadShard appends the shard at path to d and reports how many records were
// skipped. The reader goroutine is cancelled on every return path.
func loadShard(ctx context.Context, d *InMemory, path string, pendingCap int) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	skipped := 0
	records, errCh := StreamShard(ctx, path, pendingCap)
	for rec := range records {
		features, err := ExtractFeatures(rec.Image)
		if err != nil {
			skipped++
			klog.V(2).InfoS("skipping record", "shard", path, "key", rec.Key, "err", err)
			continue
		}
		if rec.Label < 0 {
			return skipped, fmt.Errorf("%s: negative label %d for %s", path, rec.Label, rec.Key)
		}
		d.X = append(d.X, features)
		d.Y = append(d.Y, rec.Label)
	}
	return skipped, <-errCh
}
