package reconcile

import (
	"errors"
	"fmt"
)

var ErrUnknownVariant = errors.New("reconcile: unknown variant")

// UnknownVariantError reports a value outside a closed set of variants.
type UnknownVariantError struct {
	Value any
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("%v %T", ErrUnknownVariant, e.Value)
}

func (e *UnknownVariantError) Unwrap() error { return ErrUnknownVariant }
