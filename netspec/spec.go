package netspec

import (
	"fmt"
	"strings"
)

type Loss string

const (
	MeanSquaredError        Loss = "mean_squared_error"
	CategoricalCrossentropy Loss = "categorical_crossentropy"
	BinaryCrossentropy      Loss = "binary_crossentropy"
)

type Metric string

const (
	MeanAbsoluteError Metric = "mean_absolute_error"
	Accuracy          Metric = "accuracy"
)

type OptimizerSpec struct {
	Name         string
	LearningRate float64
}

// Adam with learning rate 0.001 is attached to every compiled model.
var DefaultOptimizer = OptimizerSpec{
	Name:         "adam",
	LearningRate: 0.001,
}

// CompiledModelSpec is the framework-independent description of a compiled
// sequential network. It is produced once by Build and is not modified after.
type CompiledModelSpec struct {
	Layers    []LayerSpec
	Loss      Loss
	Metrics   []Metric
	Optimizer OptimizerSpec

	// Flat input width (0 if the framework should infer it at fit time).
	InputDim int
	// Width of the final dense layer.
	OutputDim int
}

// OutputLayer returns the last layer of the stack.
func (spec CompiledModelSpec) OutputLayer() LayerSpec {
	if len(spec.Layers) == 0 {
		return LayerSpec{}
	}
	return spec.Layers[len(spec.Layers)-1]
}

// Summary renders the stack one layer per line, for logs and the build CLI.
func (spec CompiledModelSpec) Summary() string {
	var sb strings.Builder
	for i, layer := range spec.Layers {
		fmt.Fprintf(&sb, "%2d  %-8s", i, layer.Kind)
		switch layer.Kind {
		case DenseLayer:
			act := string(layer.Activation)
			if act == "" {
				act = "linear"
			}
			fmt.Fprintf(&sb, " units=%d activation=%s", layer.Units, act)
		case DropoutLayer:
			fmt.Fprintf(&sb, " rate=%g", layer.Rate)
		case ReshapeLayer:
			fmt.Fprintf(&sb, " shape=%v", layer.Shape)
		case LSTMLayer:
			fmt.Fprintf(&sb, " units=%d return_sequences=%v", layer.Units, layer.ReturnSequences)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "loss=%s metrics=%v optimizer=%s(lr=%g)\n", spec.Loss, spec.Metrics, spec.Optimizer.Name, spec.Optimizer.LearningRate)
	return sb.String()
}
