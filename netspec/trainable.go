package netspec

import (
	"context"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

type FitOptions struct {
	Epochs    int
	BatchSize int
	// Called after every epoch with that epoch's loss and metric values.
	// May be nil.
	Progress func(epoch int, loss float64, metric float64)
}

// History holds per-epoch training values, as returned by fit.
type History struct {
	Loss   []float64
	Metric []float64
}

// Evaluation is the result of evaluating a model on held-out data.
type Evaluation struct {
	Loss   float64
	Metric float64
}

// Trainable is a compiled model owned by the external training framework.
type Trainable interface {
	Fit(ctx context.Context, x, y *mat.Dense, opts FitOptions) (*History, error)
	Evaluate(ctx context.Context, x, y *mat.Dense) (*Evaluation, error)
	Predict(ctx context.Context, x *mat.Dense) (*mat.Dense, error)
	// Release any resources (processes, sessions) held by the model.
	Close() error
}

// Backend compiles a spec into a Trainable on some framework.
type Backend interface {
	Compile(ctx context.Context, spec *CompiledModelSpec) (Trainable, error)
}

var Backends = make(map[string]Backend)

func GetBackend(name string) (Backend, error) {
	backend, ok := Backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (have %v)", name, BackendNames())
	}
	return backend, nil
}

func BackendNames() []string {
	var names []string
	for name := range Backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
