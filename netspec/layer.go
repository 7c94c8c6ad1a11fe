package netspec

type LayerKind string

const (
	DenseLayer   LayerKind = "dense"
	DropoutLayer LayerKind = "dropout"
	ReshapeLayer LayerKind = "reshape"
	LSTMLayer    LayerKind = "lstm"
)

type Activation string

const (
	NoActivation Activation = ""
	ReLU         Activation = "relu"
	Softmax      Activation = "softmax"
	Sigmoid      Activation = "sigmoid"
)

// LayerSpec describes one layer of a sequential stack.
// Only the fields relevant to Kind are set.
type LayerSpec struct {
	Kind       LayerKind
	Units      int        `json:",omitempty"`
	Activation Activation `json:",omitempty"`
	// Dropout rate.
	Rate float64 `json:",omitempty"`
	// For LSTM: whether the full output sequence is returned instead of only
	// the final state.
	ReturnSequences bool `json:",omitempty"`
	// Target shape of a reshape stage, excluding the batch dimension.
	Shape []int `json:",omitempty"`
}

const DefaultDropoutRate = 0.2

func Dense(units int, activation Activation) LayerSpec {
	return LayerSpec{Kind: DenseLayer, Units: units, Activation: activation}
}

func Dropout(rate float64) LayerSpec {
	return LayerSpec{Kind: DropoutLayer, Rate: rate}
}

func Reshape(shape ...int) LayerSpec {
	return LayerSpec{Kind: ReshapeLayer, Shape: shape}
}

func Recurrent(units int, returnSequences bool) LayerSpec {
	return LayerSpec{Kind: LSTMLayer, Units: units, ReturnSequences: returnSequences}
}
