// Package dryrun provides an in-process backend that checks tensor shapes
// against the compiled spec without training anything. Predictions are all
// zero. It is meant for exercising the surrounding plumbing.
package dryrun

import (
	"context"
	"fmt"
	"sync"

	"github.com/skyhookml/netbuilder/netspec"

	"gonum.org/v1/gonum/mat"
)

type Backend struct{}

func (Backend) Compile(ctx context.Context, spec *netspec.CompiledModelSpec) (netspec.Trainable, error) {
	if len(spec.Layers) == 0 {
		return nil, fmt.Errorf("spec has no layers")
	}
	return &Model{spec: spec}, nil
}

type Model struct {
	spec *netspec.CompiledModelSpec

	mu     sync.Mutex
	epochs int
	closed bool
}

// Epochs returns the total number of epochs fit so far.
func (m *Model) Epochs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epochs
}

func (m *Model) checkInputs(x *mat.Dense) error {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return fmt.Errorf("model is closed")
	}
	_, c := x.Dims()
	width := m.spec.InputDim
	if first := m.spec.Layers[0]; first.Kind == netspec.ReshapeLayer {
		width = 1
		for _, d := range first.Shape {
			width *= d
		}
	}
	if width > 0 && c != width {
		return fmt.Errorf("expected inputs of width %d, got %d", width, c)
	}
	return nil
}

func (m *Model) checkTargets(x, y *mat.Dense) error {
	xr, _ := x.Dims()
	yr, yc := y.Dims()
	if xr != yr {
		return fmt.Errorf("%d input rows but %d target rows", xr, yr)
	}
	if yc != m.spec.OutputDim {
		return fmt.Errorf("expected targets of width %d, got %d", m.spec.OutputDim, yc)
	}
	return nil
}

func (m *Model) Fit(ctx context.Context, x, y *mat.Dense, opts netspec.FitOptions) (*netspec.History, error) {
	if err := m.checkInputs(x); err != nil {
		return nil, err
	}
	if err := m.checkTargets(x, y); err != nil {
		return nil, err
	}
	loss := m.zeroLoss(y)
	history := &netspec.History{}
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		history.Loss = append(history.Loss, loss)
		history.Metric = append(history.Metric, 0)
		if opts.Progress != nil {
			opts.Progress(epoch, loss, 0)
		}
	}
	m.mu.Lock()
	m.epochs += opts.Epochs
	m.mu.Unlock()
	return history, nil
}

// zeroLoss is the mean squared error of an all-zero prediction.
func (m *Model) zeroLoss(y *mat.Dense) float64 {
	r, c := y.Dims()
	var sq mat.Dense
	sq.MulElem(y, y)
	return mat.Sum(&sq) / float64(r*c)
}

func (m *Model) Evaluate(ctx context.Context, x, y *mat.Dense) (*netspec.Evaluation, error) {
	if err := m.checkInputs(x); err != nil {
		return nil, err
	}
	if err := m.checkTargets(x, y); err != nil {
		return nil, err
	}
	return &netspec.Evaluation{Loss: m.zeroLoss(y)}, nil
}

func (m *Model) Predict(ctx context.Context, x *mat.Dense) (*mat.Dense, error) {
	if err := m.checkInputs(x); err != nil {
		return nil, err
	}
	r, _ := x.Dims()
	return mat.NewDense(r, m.spec.OutputDim, nil), nil
}

func (m *Model) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func init() {
	netspec.Backends["dryrun"] = Backend{}
}
