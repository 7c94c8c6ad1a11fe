// Package model wraps a compiled network and the data it is trained on.
//
// A Model is built once from a ModelConfiguration: the spec is derived with
// netspec.Build, compiled on the injected backend and the dataset is split
// into a training and a test part. Train, Test and Decision then delegate to
// the backend's fit, evaluate and predict.
package model

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/skyhookml/netbuilder/netspec"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNoDataset       = errors.New("no dataset given and none was split at construction")
	ErrInputWidth      = errors.New("input width is unknown")
	ErrDegenerateModel = errors.New("model predicts the same value for every input")
)

const DefaultBatchSize = 128
const DefaultSplitRatio = 0.8

type Options struct {
	BatchSize  int
	SplitRatio float64
	// Forwarded to the backend when evaluating.
	Verbose bool
}

type Option func(*Options)

func WithBatchSize(batchSize int) Option {
	return func(opts *Options) {
		opts.BatchSize = batchSize
	}
}

// WithSplitRatio sets the fraction of the dataset used for training.
func WithSplitRatio(ratio float64) Option {
	return func(opts *Options) {
		opts.SplitRatio = ratio
	}
}

func WithVerbose(verbose bool) Option {
	return func(opts *Options) {
		opts.Verbose = verbose
	}
}

type Model struct {
	Config netspec.ModelConfiguration
	Spec   *netspec.CompiledModelSpec

	opts      Options
	trainable netspec.Trainable
	trainSet  *netspec.Dataset
	testSet   *netspec.Dataset
}

// New builds and compiles the model described by cfg. If data is not nil it
// is split by the configured ratio and used as the default for Train and
// Test.
func New(ctx context.Context, backend netspec.Backend, cfg netspec.ModelConfiguration, data *netspec.Dataset, options ...Option) (*Model, error) {
	opts := Options{
		BatchSize:  DefaultBatchSize,
		SplitRatio: DefaultSplitRatio,
	}
	for _, f := range options {
		f(&opts)
	}
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("invalid batch size %d", opts.BatchSize)
	}

	spec, err := netspec.Build(cfg)
	if err != nil {
		return nil, err
	}

	m := &Model{
		Config: cfg,
		Spec:   spec,
		opts:   opts,
	}
	if data != nil {
		m.trainSet, m.testSet, err = data.Split(opts.SplitRatio)
		if err != nil {
			return nil, err
		}
	}

	m.trainable, err = backend.Compile(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("error compiling model: %w", err)
	}
	log.Printf("[model] compiled %s/%s model with %d layers", cfg.Architecture, cfg.Objective, len(spec.Layers))
	return m, nil
}

// TrainSet returns the training part of the construction-time dataset, or nil.
func (m *Model) TrainSet() *netspec.Dataset {
	return m.trainSet
}

// TestSet returns the held-out part of the construction-time dataset, or nil.
func (m *Model) TestSet() *netspec.Dataset {
	return m.testSet
}

// Train fits the model for the given number of epochs. A nil data trains on
// the split made at construction.
func (m *Model) Train(ctx context.Context, epochs int, data *netspec.Dataset, progress func(epoch int, loss float64, metric float64)) (*netspec.History, error) {
	if epochs <= 0 {
		return nil, fmt.Errorf("invalid epoch count %d", epochs)
	}
	if data == nil {
		data = m.trainSet
	}
	if data == nil {
		return nil, ErrNoDataset
	}
	return m.trainable.Fit(ctx, data.X, data.Y, netspec.FitOptions{
		Epochs:    epochs,
		BatchSize: m.opts.BatchSize,
		Progress:  progress,
	})
}

// Test evaluates the model. A nil data evaluates on the held-out split.
func (m *Model) Test(ctx context.Context, data *netspec.Dataset) (*netspec.Evaluation, error) {
	if data == nil {
		data = m.testSet
	}
	if data == nil {
		return nil, ErrNoDataset
	}
	eval, err := m.trainable.Evaluate(ctx, data.X, data.Y)
	if err != nil {
		return nil, err
	}
	if m.opts.Verbose {
		log.Printf("[model] evaluated on %d rows: loss=%v %s=%v", data.Len(), eval.Loss, m.Spec.Metrics[0], eval.Metric)
	}
	return eval, nil
}

// InputWidth is the number of values that make up one sample.
func (m *Model) InputWidth() int {
	if m.Spec.InputDim > 0 {
		return m.Spec.InputDim
	}
	if m.trainSet != nil {
		_, c := m.trainSet.X.Dims()
		return c
	}
	return 0
}

// Decision predicts outputs for a flat input holding one or more samples
// back to back.
func (m *Model) Decision(ctx context.Context, input []float64) (*mat.Dense, error) {
	width := m.InputWidth()
	if width == 0 {
		return nil, ErrInputWidth
	}
	x, err := netspec.ReshapeRows(input, width)
	if err != nil {
		return nil, err
	}
	return m.trainable.Predict(ctx, x)
}

// SanityCheck predicts the held-out inputs (or the training inputs if there
// is no held-out part) and fails with ErrDegenerateModel if every output
// column is constant.
func (m *Model) SanityCheck(ctx context.Context) error {
	data := m.testSet
	if data == nil || data.Len() < 2 {
		data = m.trainSet
	}
	if data == nil {
		return ErrNoDataset
	}
	if data.Len() < 2 {
		return fmt.Errorf("sanity check needs at least two samples, have %d", data.Len())
	}
	pred, err := m.trainable.Predict(ctx, data.X)
	if err != nil {
		return err
	}
	_, cols := pred.Dims()
	for j := 0; j < cols; j++ {
		col := mat.Col(nil, j, pred)
		if stat.Variance(col, nil) > 0 {
			return nil
		}
	}
	return ErrDegenerateModel
}

func (m *Model) Close() error {
	return m.trainable.Close()
}
