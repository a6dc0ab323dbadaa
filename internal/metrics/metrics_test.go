package metrics

import (
	"bytes"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestAccuracy(t *testing.T) {
	logits := mat.NewDense(4, 3, []float64{
		0.1, 0.8, 0.1,
		0.9, 0.0, 0.1,
		0.2, 0.2, 0.6,
		0.5, 0.5, 0.0,
	})
	cases := []struct {
		labels []int
		want   float64
	}{
		{[]int{1, 0, 2, 0}, 1},
		{[]int{1, 0, 2, 1}, 0.75},
		{[]int{0, 1, 0, 2}, 0},
	}
	for _, tc := range cases {
		if got := Accuracy(logits, tc.labels); got != tc.want {
			t.Fatalf("Accuracy(%v) = %f want %f", tc.labels, got, tc.want)
		}
	}
	if got := Accuracy(logits, nil); got != 0 {
		t.Fatalf("empty accuracy = %f", got)
	}
}

func TestPredictions(t *testing.T) {
	var p Predictions
	logits := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	p.Add(logits, []int{0, 0})
	logits.Set(0, 0, -5)
	p.Add(mat.NewDense(1, 2, []float64{0, 3}), []int{1})

	if p.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", p.Len())
	}
	if got := p.Classes(); got[0] != 0 || got[1] != 1 || got[2] != 1 {
		t.Fatalf("unexpected classes %v; logits must be copied on Add", got)
	}
	if math.Abs(p.Accuracy()-2.0/3.0) > 1e-12 {
		t.Fatalf("unexpected accuracy %f", p.Accuracy())
	}
}

func TestTable(t *testing.T) {
	table := Table{
		{Epoch: 0, TrainLoss: 1.5, ValLoss: 1.25, TrainAccuracy: 0.5, ValAccuracy: 0.25},
		{Epoch: 1, TrainLoss: 0.5, ValLoss: 0.75, TrainAccuracy: 0.75, ValAccuracy: 1},
	}
	if !table.Finite() {
		t.Fatal("expected finite table")
	}
	last, ok := table.Last()
	if !ok || last.Epoch != 1 {
		t.Fatalf("unexpected last row %+v", last)
	}

	buf := &bytes.Buffer{}
	if err := table.WriteCSV(buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "Epoch,Train Loss,Validation Loss,Train Accuracy,Validation Accuracy\n" +
		"0,1.5,1.25,0.5,0.25\n" +
		"1,0.5,0.75,0.75,1\n"
	if buf.String() != want {
		t.Fatalf("unexpected csv:\n%s", buf.String())
	}

	table[1].ValLoss = math.NaN()
	if table.Finite() {
		t.Fatal("NaN must make the table non-finite")
	}
	if _, ok := (Table{}).Last(); ok {
		t.Fatal("empty table has no last row")
	}
}
