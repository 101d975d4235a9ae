// SPDX-License-Identifier: MPL-2.0

// Package modeltype defines the identifier tooling clients use to request a model.
package modeltype

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidModelType is the sentinel error wrapped by InvalidModelTypeError.
var ErrInvalidModelType = errors.New("invalid model type")

type (
	// ModelType names a requestable model shape (e.g., "kotlin-dsl.base-script-model").
	// It is unique per distinct shape and stays stable across builder versions that
	// produce a compatible shape.
	ModelType string

	// InvalidModelTypeError is returned when a ModelType is empty or contains whitespace.
	// It wraps ErrInvalidModelType for errors.Is() compatibility.
	InvalidModelTypeError struct {
		Value  ModelType
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidModelTypeError) Error() string {
	return fmt.Sprintf("invalid model type %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidModelType so callers can use errors.Is for programmatic detection.
func (e *InvalidModelTypeError) Unwrap() error { return ErrInvalidModelType }

// String returns the string representation of the ModelType.
func (t ModelType) String() string { return string(t) }

// Validate returns nil if the ModelType is non-empty and free of whitespace.
func (t ModelType) Validate() error {
	if strings.TrimSpace(string(t)) == "" {
		return &InvalidModelTypeError{Value: t, Reason: "must not be empty"}
	}
	if strings.IndexFunc(string(t), unicode.IsSpace) >= 0 {
		return &InvalidModelTypeError{Value: t, Reason: "must not contain whitespace"}
	}
	return nil
}
