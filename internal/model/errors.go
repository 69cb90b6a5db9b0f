package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means an unknown control or family id
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput means malformed input such as a NaN threshold or a zero date
	ErrInvalidInput = errors.New("invalid input")
)

// ControlError ties a failure to the control it aborted
type ControlError struct {
	ControlID string
	Err       error
}

func (e *ControlError) Error() string {
	return fmt.Sprintf("control %s: %v", e.ControlID, e.Err)
}

func (e *ControlError) Unwrap() error {
	return e.Err
}

// NotFoundf builds an ErrNotFound with context
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// InvalidInputf builds an ErrInvalidInput with context
func InvalidInputf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
