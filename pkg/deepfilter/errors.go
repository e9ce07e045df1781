package deepfilter

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyConfigured = errors.New("cannot configure the filter because it is already configured")
	ErrInvalidModel      = errors.New("the engine was unable to create a state from the model data")
	ErrNotConfigured     = errors.New("the filter is not configured")
	ErrReleased          = errors.New("the filter is already released")
)

type ConfigurationError struct {
	Err error
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e ConfigurationError) Unwrap() error {
	return e.Err
}

// ArgumentError is a value that cannot be passed to the engine.
type ArgumentError struct {
	Argument string
	Reason   string
}

func (e ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument '%s': %s", e.Argument, e.Reason)
}
