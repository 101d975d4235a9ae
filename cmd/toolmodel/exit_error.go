// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/toolmodel/toolmodel/internal/toolmodel"
)

// Process exit codes. Model failures get distinct codes so scripts can tell
// "not supported" from "not yet available" without parsing stderr.
const (
	ExitOK          = 0
	ExitGeneric     = 1
	ExitUnknown     = 2
	ExitUnavailable = 3
	ExitComputation = 4
	ExitTornDown    = 5
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCodeFor maps a model failure to its exit code.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, toolmodel.ErrUnknownModelType):
		return ExitUnknown
	case errors.Is(err, toolmodel.ErrModelUnavailable):
		return ExitUnavailable
	case errors.Is(err, toolmodel.ErrModelComputation):
		return ExitComputation
	case errors.Is(err, toolmodel.ErrScopeTornDown):
		return ExitTornDown
	default:
		return ExitGeneric
	}
}
