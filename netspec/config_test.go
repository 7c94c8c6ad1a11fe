package netspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfiguration(t *testing.T) {
	cfg, err := ParseConfiguration("LSTM", "categorical", 64)
	require.NoError(t, err)
	assert.Equal(t, ModelConfiguration{Architecture: LSTM, Objective: Categorical, HiddenUnits: 64}, cfg)

	_, err = ParseConfiguration("mlp", "binary", 4)
	assert.ErrorIs(t, err, ErrInvalidArchitecture)

	_, err = ParseConfiguration("MLP", "Binary", 4)
	assert.ErrorIs(t, err, ErrInvalidObjective)
}

func TestFeatures(t *testing.T) {
	check := func(inputs, timesteps, expected int) {
		cfg := ModelConfiguration{NumInputs: inputs, Timesteps: timesteps}
		if got := cfg.Features(); got != expected {
			t.Errorf("Features(%d, %d) = %d; want %d", inputs, timesteps, got, expected)
		}
	}
	check(40, 10, 4)
	check(12, 12, 1)
	check(10, 0, 0)
}
