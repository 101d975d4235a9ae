// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"errors"
	"fmt"
)

const (
	// DuplicateAllow keeps repeated builder names silently; order decides.
	DuplicateAllow DuplicatePolicy = "allow"
	// DuplicateWarn keeps repeated builder names and logs a warning.
	DuplicateWarn DuplicatePolicy = "warn"
	// DuplicateReject refuses a builder whose name is already registered.
	DuplicateReject DuplicatePolicy = "reject"
)

// ErrInvalidDuplicatePolicy is the sentinel error wrapped by InvalidDuplicatePolicyError.
var ErrInvalidDuplicatePolicy = errors.New("invalid duplicate policy")

type (
	// DuplicatePolicy decides what happens when two builders share a name.
	// Builders with different names are never duplicates, which is how a
	// deprecated builder coexists with its canonical replacement.
	DuplicatePolicy string

	// InvalidDuplicatePolicyError is returned when a DuplicatePolicy value is not recognized.
	InvalidDuplicatePolicyError struct {
		Value DuplicatePolicy
	}
)

// Error implements the error interface.
func (e *InvalidDuplicatePolicyError) Error() string {
	return fmt.Sprintf("invalid duplicate policy %q (valid: allow, warn, reject)", e.Value)
}

// Unwrap returns ErrInvalidDuplicatePolicy for errors.Is() compatibility.
func (e *InvalidDuplicatePolicyError) Unwrap() error { return ErrInvalidDuplicatePolicy }

// String returns the string representation of the DuplicatePolicy.
func (p DuplicatePolicy) String() string { return string(p) }

// Validate returns nil if the DuplicatePolicy is one of the defined policies.
func (p DuplicatePolicy) Validate() error {
	switch p {
	case DuplicateAllow, DuplicateWarn, DuplicateReject:
		return nil
	default:
		return &InvalidDuplicatePolicyError{Value: p}
	}
}
