package dataset

import (
	"errors"
	"math/rand"
	"reflect"
	"sort"
	"testing"

	"epochkit/internal/seed"
)

func labelled(n int) *InMemory {
	d := &InMemory{}
	for i := 0; i < n; i++ {
		d.X = append(d.X, []float64{float64(i), float64(-i)})
		d.Y = append(d.Y, i)
	}
	return d
}

func TestLoaderLen(t *testing.T) {
	cases := []struct {
		n, size, want int
	}{
		{10, 3, 4},
		{9, 3, 3},
		{1, 8, 1},
		{0, 4, 0},
		{5, 0, 1},
	}
	for _, tc := range cases {
		l := NewLoader(labelled(tc.n), tc.size, false)
		if l.Len() != tc.want {
			t.Fatalf("n=%d size=%d: Len()=%d want %d", tc.n, tc.size, l.Len(), tc.want)
		}
		batches, err := l.Batches()
		if err != nil {
			t.Fatalf("n=%d size=%d: Batches: %v", tc.n, tc.size, err)
		}
		if got := len(batches); got != tc.want {
			t.Fatalf("n=%d size=%d: %d batches want %d", tc.n, tc.size, got, tc.want)
		}
	}
}

func TestLoaderBatchesCoverDataset(t *testing.T) {
	batches, err := NewLoader(labelled(10), 4, true).Batches()
	if err != nil {
		t.Fatalf("Batches: %v", err)
	}
	var seen []int
	for _, b := range batches {
		rows, cols := b.X.Dims()
		if rows != b.Size() || cols != 2 {
			t.Fatalf("batch shape %dx%d for %d labels", rows, cols, b.Size())
		}
		for r, y := range b.Y {
			if b.X.At(r, 0) != float64(y) {
				t.Fatalf("row %d does not belong to label %d", r, y)
			}
		}
		seen = append(seen, b.Y...)
	}
	sort.Ints(seen)
	for i, y := range seen {
		if y != i {
			t.Fatalf("sample %d missing or duplicated: %v", i, seen)
		}
	}
}

func TestLoaderShuffleFollowsSeed(t *testing.T) {
	t.Cleanup(func() { seed.Set(seed.DefaultSeed) })
	order := func() []int {
		batches, err := NewLoader(labelled(20), 5, true).Batches()
		if err != nil {
			t.Fatalf("Batches: %v", err)
		}
		var ys []int
		for _, b := range batches {
			ys = append(ys, b.Y...)
		}
		return ys
	}
	seed.Set(11)
	first := order()
	seed.Set(11)
	second := order()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("shuffle not reproducible: %v vs %v", first, second)
	}
	if sort.IntsAreSorted(first) {
		t.Fatalf("shuffled loader returned sorted order")
	}
}

func TestLoaderRejectsRaggedSamples(t *testing.T) {
	d := labelled(6)
	d.X[4] = []float64{4}
	if _, err := NewLoader(d, 4, false).Batches(); !errors.Is(err, ErrRagged) {
		t.Fatalf("expected ErrRagged, got %v", err)
	}
}

func TestBlobsAndSplit(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	d := Blobs(100, 3, 4, 0.5, rng)
	if d.Len() != 100 || d.Features() != 3 || d.Classes() != 4 {
		t.Fatalf("unexpected blobs: len=%d features=%d classes=%d", d.Len(), d.Features(), d.Classes())
	}
	train, val := d.Split(0.2, rng)
	if train.Len() != 80 || val.Len() != 20 {
		t.Fatalf("unexpected split %d/%d", train.Len(), val.Len())
	}
}
