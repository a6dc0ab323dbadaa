package trainer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"epochkit/internal/dataset"
	"epochkit/internal/device"
	"epochkit/internal/metrics"
	"epochkit/internal/nn"
	"epochkit/internal/optim"

	"gonum.org/v1/gonum/graph"
	"k8s.io/klog/v2"
)

var (
	// ErrEmptyLoader is returned when a split has no batches to average over.
	ErrEmptyLoader = errors.New("trainer: loader has no batches")
	// ErrNonFinite is returned when a batch loss is NaN or infinite.
	ErrNonFinite = errors.New("trainer: non-finite loss")
)

// RunConfig captures the knobs of the epoch loop.
type RunConfig struct {
	Epochs     int
	PrintEvery int
	Device     device.Device
}

// Job bundles what one run trains and how.
type Job struct {
	Model     nn.Module
	Train     *dataset.Loader
	Val       *dataset.Loader
	Loss      nn.Loss
	Optimizer optim.Optimizer
}

// Result is returned by Train.
type Result struct {
	Scores           metrics.Table
	TrainPredictions metrics.Predictions
	ValPredictions   metrics.Predictions
}

// Grapher is implemented by models that can describe their dataflow.
type Grapher interface {
	Graph() graph.Directed
}

// Train runs cfg.Epochs epochs of training and validation and returns the
// per-epoch scores along with the raw predictions of the final epoch.
func Train(ctx context.Context, cfg RunConfig, job Job) (Result, error) {
	var res Result
	l := &loop{cfg: cfg, job: job, trainPred: &res.TrainPredictions, valPred: &res.ValPredictions}
	scores, err := l.run(ctx)
	if err != nil {
		return Result{}, err
	}
	res.Scores = scores
	return res, nil
}

// TrainTracked runs the same loop as Train and reports the model graph and
// every epoch's losses and accuracies to w.
func TrainTracked(ctx context.Context, cfg RunConfig, job Job, w Recorder) (metrics.Table, error) {
	if w == nil {
		return nil, errors.New("trainer: tracking writer is nil")
	}
	if g, ok := job.Model.(Grapher); ok {
		if err := w.AddGraph(g.Graph()); err != nil {
			return nil, err
		}
	} else {
		klog.V(1).Infof("model %s has no graph, skipping", job.Model.Name())
	}
	l := &loop{cfg: cfg, job: job, afterEpoch: func(s metrics.EpochScore) error {
		for _, sc := range []struct {
			tag   string
			value float64
		}{
			{"Loss/train", s.TrainLoss},
			{"Loss/validation", s.ValLoss},
			{"Accuracy/train", s.TrainAccuracy},
			{"Accuracy/validation", s.ValAccuracy},
		} {
			if err := w.AddScalar(sc.tag, sc.value, s.Epoch); err != nil {
				return err
			}
		}
		return w.Flush()
	}}
	return l.run(ctx)
}

// Recorder is the part of an experiment-tracking writer the loop uses.
type Recorder interface {
	AddScalar(tag string, value float64, step int) error
	AddGraph(g graph.Directed) error
	Flush() error
}

type loop struct {
	cfg        RunConfig
	job        Job
	window     metrics.Window
	trainPred  *metrics.Predictions
	valPred    *metrics.Predictions
	afterEpoch func(metrics.EpochScore) error
}

func (l *loop) validate() error {
	if l.cfg.Epochs <= 0 {
		return fmt.Errorf("trainer: epochs must be > 0 (got %d)", l.cfg.Epochs)
	}
	if l.cfg.PrintEvery <= 0 {
		l.cfg.PrintEvery = 1
	}
	switch {
	case l.job.Model == nil:
		return errors.New("trainer: model is nil")
	case l.job.Loss == nil:
		return errors.New("trainer: loss is nil")
	case l.job.Optimizer == nil:
		return errors.New("trainer: optimizer is nil")
	case l.job.Train == nil || l.job.Train.Len() == 0:
		return fmt.Errorf("%w: train", ErrEmptyLoader)
	case l.job.Val == nil || l.job.Val.Len() == 0:
		return fmt.Errorf("%w: validation", ErrEmptyLoader)
	}
	return nil
}

func (l *loop) run(ctx context.Context) (metrics.Table, error) {
	if err := l.validate(); err != nil {
		return nil, err
	}

	klog.Infof("Starting training. device=%s epochs=%d train_batches=%d val_batches=%d",
		l.cfg.Device, l.cfg.Epochs, l.job.Train.Len(), l.job.Val.Len())

	scores := make(metrics.Table, 0, l.cfg.Epochs)
	for epoch := 0; epoch < l.cfg.Epochs; epoch++ {
		last := epoch == l.cfg.Epochs-1

		trainLoss, trainAcc, err := l.pass(ctx, l.job.Train, true, last)
		if err != nil {
			return nil, fmt.Errorf("trainer: epoch %d train: %w", epoch, err)
		}
		valLoss, valAcc, err := l.pass(ctx, l.job.Val, false, last)
		if err != nil {
			return nil, fmt.Errorf("trainer: epoch %d validation: %w", epoch, err)
		}

		score := metrics.EpochScore{
			Epoch:         epoch,
			TrainLoss:     trainLoss,
			ValLoss:       valLoss,
			TrainAccuracy: trainAcc,
			ValAccuracy:   valAcc,
		}
		scores = append(scores, score)

		if epoch%l.cfg.PrintEvery == 0 {
			klog.Infof("epoch=%d train_loss=%.5f train_acc=%.5f val_loss=%.5f val_acc=%.5f",
				epoch, trainLoss, trainAcc, valLoss, valAcc)
			snap := l.window.Snapshot()
			klog.V(1).Infof("epoch=%d steps=%d samples_per_sec=%.1f data_ms=%.3f compute_ms=%.3f loss=%.4f",
				epoch, snap.Steps, snap.SamplesPerSec, snap.AvgDataMS, snap.AvgComputeMS, snap.LastLoss)
		}
		if l.afterEpoch != nil {
			if err := l.afterEpoch(score); err != nil {
				return nil, fmt.Errorf("trainer: epoch %d: %w", epoch, err)
			}
		}
	}

	klog.Info("Finished training.")
	return scores, nil
}

// pass runs one epoch over loader and returns the loss and accuracy averaged
// over its batches. Gradients are only computed and applied when training.
func (l *loop) pass(ctx context.Context, loader *dataset.Loader, training, capture bool) (float64, float64, error) {
	model := l.job.Model
	model.SetTraining(training)

	var record *metrics.Predictions
	if capture {
		record = l.valPred
		if training {
			record = l.trainPred
		}
	}

	startData := time.Now()
	batches, err := loader.Batches()
	if err != nil {
		return 0, 0, err
	}
	dataTime := time.Since(startData)

	var lossSum, accSum float64
	for i, b := range batches {
		if err := ctx.Err(); err != nil {
			return 0, 0, err
		}
		startCompute := time.Now()

		logits, err := model.Forward(b.X)
		if err != nil {
			return 0, 0, fmt.Errorf("batch %d: %w", i, err)
		}
		loss, err := l.job.Loss.Forward(logits, b.Y)
		if err != nil {
			return 0, 0, fmt.Errorf("batch %d: %w", i, err)
		}
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return 0, 0, fmt.Errorf("batch %d: %w", i, ErrNonFinite)
		}
		lossSum += loss
		accSum += metrics.Accuracy(logits, b.Y)
		if record != nil {
			record.Add(logits, b.Y)
		}

		if training {
			l.job.Optimizer.ZeroGrad()
			model.Backward(l.job.Loss.Backward())
			l.job.Optimizer.Step()
			l.window.Record(b.Size(), dataTime, time.Since(startCompute), loss)
			dataTime = 0
		}
	}

	n := float64(len(batches))
	return lossSum / n, accSum / n, nil
}
