package metrics

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// EpochScore is one row of the training history.
type EpochScore struct {
	Epoch         int
	TrainLoss     float64
	ValLoss       float64
	TrainAccuracy float64
	ValAccuracy   float64
}

// Table is the per-epoch history of a run, one row per epoch in order.
type Table []EpochScore

var tableHeader = []string{"Epoch", "Train Loss", "Validation Loss", "Train Accuracy", "Validation Accuracy"}

// Finite reports whether every recorded value is a finite number.
func (t Table) Finite() bool {
	for _, s := range t {
		for _, v := range []float64{s.TrainLoss, s.ValLoss, s.TrainAccuracy, s.ValAccuracy} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// Last returns the final row, or false for an empty table.
func (t Table) Last() (EpochScore, bool) {
	if len(t) == 0 {
		return EpochScore{}, false
	}
	return t[len(t)-1], true
}

// WriteCSV writes the table with a header row.
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tableHeader); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, s := range t {
		rec := []string{strconv.Itoa(s.Epoch), f(s.TrainLoss), f(s.ValLoss), f(s.TrainAccuracy), f(s.ValAccuracy)}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write epoch %d: %w", s.Epoch, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
