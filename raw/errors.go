package raw

import (
	"errors"
	"fmt"
)

var (
	ErrInitialization = errors.New("raw: native module failed to load")
	ErrNullHandle     = errors.New("raw: null handle")
)

// InitializationError reports a module that failed to load or is missing
// declared names.
type InitializationError struct {
	Err error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("%v: %v", ErrInitialization, e.Err)
}

func (e *InitializationError) Unwrap() []error { return []error{ErrInitialization, e.Err} }

// NullHandleError reports a construction that produced a null handle.
type NullHandleError struct {
	Name string
}

func (e *NullHandleError) Error() string {
	return fmt.Sprintf("%v: %s", ErrNullHandle, e.Name)
}

func (e *NullHandleError) Unwrap() error { return ErrNullHandle }
