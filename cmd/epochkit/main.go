package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"epochkit/internal/config"
	"epochkit/internal/dataset"
	"epochkit/internal/device"
	"epochkit/internal/metrics"
	"epochkit/internal/nn"
	"epochkit/internal/optim"
	"epochkit/internal/seed"
	"epochkit/internal/timing"
	"epochkit/internal/tracking"
	"epochkit/internal/trainer"

	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

func main() {
	klog.InitFlags(nil)
	cfgPath := flag.String("config", "configs/demo.yaml", "Path to YAML config")
	epochs := flag.Int("epochs", 0, "Number of epochs")
	batchSize := flag.Int("batch-size", 0, "Batch size")
	printEvery := flag.Int("print-every", 0, "Log every N epochs")
	seedFlag := flag.Int64("seed", 0, "Global seed (0 keeps the configured seed; a configured 0 means 42)")
	deviceName := flag.String("device", "", "Device to train on")
	optimizer := flag.String("optimizer", "", "Optimizer: sgd or adam")
	lr := flag.Float64("lr", 0, "Learning rate")
	dataRoots := flag.String("data-roots", "", "Comma separated WebDataset shard roots")
	logDir := flag.String("log-dir", "", "Experiment tracking directory")
	scoresOut := flag.String("scores-out", "", "Write the per-epoch scores CSV here")

	flag.Parse()
	defer klog.Flush()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		klog.Fatalf("failed to load config: %v", err)
	}

	var roots []string
	if *dataRoots != "" {
		roots = strings.Split(*dataRoots, ",")
	}
	cfg.ApplyOverrides(config.Overrides{
		Epochs:       *epochs,
		BatchSize:    *batchSize,
		PrintEvery:   *printEvery,
		Seed:         *seedFlag,
		Device:       *deviceName,
		Optimizer:    *optimizer,
		LearningRate: *lr,
		DataRoots:    roots,
		LogDir:       *logDir,
		ScoresOut:    *scoresOut,
	})

	if err := cfg.Validate(); err != nil {
		klog.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		klog.Errorf("training failed: %v", err)
		klog.Flush()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	seed.Set(cfg.Seed)

	dev, err := device.Parse(cfg.Device)
	if err != nil {
		return err
	}
	klog.Infof("device=%s seed=%d", dev.Describe(), cfg.Seed)

	data, err := loadData(ctx, cfg)
	if err != nil {
		return err
	}
	classes := data.Classes()
	train, val := data.Split(cfg.ValFraction, seed.Stream(seed.StreamSplit))
	klog.Infof("samples=%d train=%d val=%d features=%d classes=%d",
		data.Len(), train.Len(), val.Len(), data.Features(), classes)

	model := nn.NewMLP(data.Features(), cfg.Hidden, classes, cfg.Dropout)
	opt := must.M1(optim.New(cfg.Optimizer, model.Params(), optim.Options{
		LearningRate: cfg.LearningRate,
		Momentum:     cfg.Momentum,
		WeightDecay:  cfg.WeightDecay,
	}))
	job := trainer.Job{
		Model:     model,
		Train:     dataset.NewLoader(train, cfg.BatchSize, true),
		Val:       dataset.NewLoader(val, cfg.BatchSize, false),
		Loss:      &nn.CrossEntropy{},
		Optimizer: opt,
	}
	runCfg := trainer.RunConfig{Epochs: cfg.Epochs, PrintEvery: cfg.PrintEvery, Device: dev}

	start := time.Now()
	var scores metrics.Table
	if cfg.LogDir != "" {
		scores, err = trainTracked(ctx, runCfg, job, cfg.LogDir)
	} else {
		var res trainer.Result
		res, err = trainer.Train(ctx, runCfg, job)
		scores = res.Scores
		if err == nil {
			klog.Infof("last epoch predictions: train_acc=%.4f (%d samples) val_acc=%.4f (%d samples)",
				res.TrainPredictions.Accuracy(), res.TrainPredictions.Len(),
				res.ValPredictions.Accuracy(), res.ValPredictions.Len())
		}
	}
	if err != nil {
		return err
	}
	timing.PrintTrainTime(os.Stdout, start, time.Now(), dev.String())

	if cfg.ScoresOut != "" {
		if err := writeScores(cfg.ScoresOut, scores); err != nil {
			return err
		}
		klog.Infof("scores written to %s", cfg.ScoresOut)
	}
	return nil
}

func loadData(ctx context.Context, cfg *config.Config) (*dataset.InMemory, error) {
	if len(cfg.DataRoots) == 0 {
		return dataset.Blobs(cfg.Samples, cfg.Features, cfg.Classes, cfg.Spread, seed.Stream(seed.StreamData)), nil
	}
	shards, err := dataset.DiscoverAll(cfg.DataRoots)
	if err != nil {
		return nil, err
	}
	klog.Infof("roots=%d shards=%d", len(cfg.DataRoots), len(shards))
	return dataset.LoadShards(ctx, shards, 0)
}

func trainTracked(ctx context.Context, cfg trainer.RunConfig, job trainer.Job, dir string) (metrics.Table, error) {
	w, err := tracking.NewFileWriter(dir)
	if err != nil {
		return nil, err
	}
	scores, err := trainer.TrainTracked(ctx, cfg, job, w)
	if cerr := w.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err == nil {
		klog.Infof("tracking written to %s", w.Dir())
	}
	return scores, err
}

func writeScores(path string, scores metrics.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create scores: %w", err)
	}
	if err := scores.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write scores: %w", err)
	}
	return f.Close()
}
