package netspec

import (
	"errors"
)

var (
	ErrInvalidArchitecture  = errors.New("invalid architecture")
	ErrInvalidObjective     = errors.New("invalid objective")
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
