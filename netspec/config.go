package netspec

import (
	"fmt"
)

// Architecture selects the shape of the hidden layer stack.
type Architecture string

const (
	MLP  Architecture = "MLP"
	LSTM Architecture = "LSTM"
)

var Architectures = []Architecture{MLP, LSTM}

func (a Architecture) Valid() bool {
	for _, x := range Architectures {
		if a == x {
			return true
		}
	}
	return false
}

func ParseArchitecture(s string) (Architecture, error) {
	a := Architecture(s)
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidArchitecture, s)
	}
	return a, nil
}

// Objective selects the output layer and the training loss.
type Objective string

const (
	Continuous  Objective = "continuous"
	Categorical Objective = "categorical"
	Binary      Objective = "binary"
)

var Objectives = []Objective{Continuous, Categorical, Binary}

func (o Objective) Valid() bool {
	for _, x := range Objectives {
		if o == x {
			return true
		}
	}
	return false
}

func ParseObjective(s string) (Objective, error) {
	o := Objective(s)
	if !o.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidObjective, s)
	}
	return o, nil
}

// ModelConfiguration is the caller-supplied description of a network.
type ModelConfiguration struct {
	Architecture Architecture
	Objective    Objective
	// Neurons in each hidden layer.
	HiddenUnits int

	// Flat input width of one sample. Required for LSTM (it is split into
	// Timesteps x features) and used to reshape Decision inputs.
	NumInputs int
	// Output dimensionality for continuous and categorical objectives.
	// Binary models always have a single output.
	NumOutputs int
	// Number of timesteps the LSTM input is reshaped into.
	Timesteps int
}

// ParseConfiguration builds a ModelConfiguration from the string parameters
// accepted by the command line and the HTTP API.
func ParseConfiguration(architecture string, objective string, hiddenUnits int) (ModelConfiguration, error) {
	arch, err := ParseArchitecture(architecture)
	if err != nil {
		return ModelConfiguration{}, err
	}
	obj, err := ParseObjective(objective)
	if err != nil {
		return ModelConfiguration{}, err
	}
	return ModelConfiguration{
		Architecture: arch,
		Objective:    obj,
		HiddenUnits:  hiddenUnits,
	}, nil
}

// Validate checks the configuration in the same order Build does: the
// architecture first, then the objective, then the numeric parameters that
// the selected templates depend on.
func (cfg ModelConfiguration) Validate() error {
	if !cfg.Architecture.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidArchitecture, cfg.Architecture)
	}
	if !cfg.Objective.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidObjective, cfg.Objective)
	}
	if cfg.HiddenUnits <= 0 {
		return fmt.Errorf("%w: hidden units must be positive, got %d", ErrInvalidConfiguration, cfg.HiddenUnits)
	}
	if cfg.Architecture == LSTM {
		if cfg.Timesteps <= 0 {
			return fmt.Errorf("%w: LSTM requires a positive timestep count", ErrInvalidConfiguration)
		}
		if cfg.NumInputs <= 0 {
			return fmt.Errorf("%w: LSTM requires the input width", ErrInvalidConfiguration)
		}
		// the reshape stage must consume the whole input row
		if cfg.NumInputs < cfg.Timesteps || cfg.NumInputs%cfg.Timesteps != 0 {
			return fmt.Errorf("%w: input width %d does not split into %d timesteps", ErrInvalidConfiguration, cfg.NumInputs, cfg.Timesteps)
		}
	}
	if cfg.Objective != Binary && cfg.NumOutputs <= 0 {
		return fmt.Errorf("%w: %s objective requires the output dimensionality", ErrInvalidConfiguration, cfg.Objective)
	}
	return nil
}

// Features is the per-timestep feature count of the LSTM reshape stage.
// Validate guarantees NumInputs is a multiple of Timesteps for LSTM.
func (cfg ModelConfiguration) Features() int {
	if cfg.Timesteps <= 0 {
		return 0
	}
	return cfg.NumInputs / cfg.Timesteps
}
