package netspec

// Hidden-stack templates keyed by architecture.
var hiddenStacks = map[Architecture]func(cfg ModelConfiguration) []LayerSpec{
	MLP: func(cfg ModelConfiguration) []LayerSpec {
		return []LayerSpec{
			Dense(cfg.HiddenUnits, ReLU),
			Dropout(DefaultDropoutRate),
		}
	},
	LSTM: func(cfg ModelConfiguration) []LayerSpec {
		return []LayerSpec{
			Reshape(cfg.Timesteps, cfg.Features()),
			Recurrent(cfg.HiddenUnits, true),
			Dropout(DefaultDropoutRate),
			Recurrent(cfg.HiddenUnits, true),
			Dropout(DefaultDropoutRate),
			Recurrent(cfg.HiddenUnits, false),
			Dropout(DefaultDropoutRate),
			Dense(cfg.HiddenUnits, ReLU),
		}
	},
}

type outputStage struct {
	Activation Activation
	Loss       Loss
	Metric     Metric
	// Units of the output layer; 0 means cfg.NumOutputs.
	Units int
}

var outputStages = map[Objective]outputStage{
	Continuous: {
		Activation: NoActivation,
		Loss:       MeanSquaredError,
		Metric:     MeanAbsoluteError,
	},
	Categorical: {
		Activation: Softmax,
		Loss:       CategoricalCrossentropy,
		Metric:     Accuracy,
	},
	Binary: {
		Activation: Sigmoid,
		Loss:       BinaryCrossentropy,
		Metric:     Accuracy,
		Units:      1,
	},
}

// Build maps a configuration to its compiled network description.
// It fails with ErrInvalidArchitecture or ErrInvalidObjective on unknown enum
// values and with ErrInvalidConfiguration when a parameter required by the
// selected templates is missing. No layer is produced on failure.
func Build(cfg ModelConfiguration) (*CompiledModelSpec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	layers := hiddenStacks[cfg.Architecture](cfg)

	stage := outputStages[cfg.Objective]
	units := stage.Units
	if units == 0 {
		units = cfg.NumOutputs
	}
	layers = append(layers, Dense(units, stage.Activation))

	return &CompiledModelSpec{
		Layers:    layers,
		Loss:      stage.Loss,
		Metrics:   []Metric{stage.Metric},
		Optimizer: DefaultOptimizer,
		InputDim:  cfg.NumInputs,
		OutputDim: units,
	}, nil
}
