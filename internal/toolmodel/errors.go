// SPDX-License-Identifier: MPL-2.0

package toolmodel

import (
	"errors"
	"fmt"

	"github.com/toolmodel/toolmodel/pkg/modeltype"
)

var (
	// ErrUnknownModelType is returned when no registered builder can build the requested type.
	ErrUnknownModelType = errors.New("unknown model type")
	// ErrModelUnavailable is returned when a builder matched but its preconditions are unmet.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrModelComputation is returned when the delegated model computation failed.
	ErrModelComputation = errors.New("model computation failed")
	// ErrScopeTornDown is returned when a request reaches a scope after its lifecycle ended.
	ErrScopeTornDown = errors.New("scope torn down")
	// ErrScopeNotReady is returned when a request arrives before registration completed.
	ErrScopeNotReady = errors.New("scope not ready")
	// ErrRegistrySealed is returned when a builder is registered after the registry was sealed.
	ErrRegistrySealed = errors.New("registry sealed")
	// ErrRegistrationFailed is the sentinel error wrapped by RegistrationError.
	ErrRegistrationFailed = errors.New("registration failed")
	// ErrDuplicateBuilder is the sentinel error wrapped by DuplicateBuilderError.
	ErrDuplicateBuilder = errors.New("duplicate builder")
)

type (
	// UnknownModelTypeError reports a model type no builder in the scope can build.
	// Clients should surface it as "model not supported".
	UnknownModelTypeError struct {
		ModelType modeltype.ModelType
		Scope     string
	}

	// ModelUnavailableError reports a matched builder whose preconditions are unmet.
	// The request may succeed if retried after further build progress.
	ModelUnavailableError struct {
		ModelType modeltype.ModelType
		Reason    string
	}

	// ModelComputationError wraps a failure of the delegated computation.
	// It is never retried automatically; the cause chain is preserved.
	ModelComputationError struct {
		ModelType modeltype.ModelType
		Builder   string
		Cause     error
	}

	// ScopeTornDownError reports a request that reached a scope after teardown.
	// It is fatal for that request only.
	ScopeTornDownError struct {
		ScopeID ScopeID
	}

	// RegistrationError reports a registration action that failed during scope
	// initialization. The scope never becomes ready.
	RegistrationError struct {
		Action string
		Cause  error
	}

	// DuplicateBuilderError is returned under the reject duplicate policy when a
	// builder with an already registered name is registered again.
	DuplicateBuilderError struct {
		Name string
	}
)

// Unavailable returns a ModelUnavailableError for modelType.
func Unavailable(modelType modeltype.ModelType, reason string) error {
	return &ModelUnavailableError{ModelType: modelType, Reason: reason}
}

// ComputationFailed wraps cause in a ModelComputationError. It returns nil for a nil cause.
func ComputationFailed(modelType modeltype.ModelType, builder string, cause error) error {
	if cause == nil {
		return nil
	}
	return &ModelComputationError{ModelType: modelType, Builder: builder, Cause: cause}
}

// Error implements the error interface.
func (e *UnknownModelTypeError) Error() string {
	if e.Scope != "" {
		return fmt.Sprintf("no builder for model type %q in %s", e.ModelType, e.Scope)
	}
	return fmt.Sprintf("no builder for model type %q", e.ModelType)
}

// Unwrap returns ErrUnknownModelType for errors.Is() compatibility.
func (e *UnknownModelTypeError) Unwrap() error { return ErrUnknownModelType }

// Error implements the error interface.
func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model %q unavailable: %s", e.ModelType, e.Reason)
}

// Unwrap returns ErrModelUnavailable for errors.Is() compatibility.
func (e *ModelUnavailableError) Unwrap() error { return ErrModelUnavailable }

// Error implements the error interface.
func (e *ModelComputationError) Error() string {
	return fmt.Sprintf("building model %q with %s: %v", e.ModelType, e.Builder, e.Cause)
}

// Unwrap returns both ErrModelComputation and the cause so errors.Is matches either.
func (e *ModelComputationError) Unwrap() []error { return []error{ErrModelComputation, e.Cause} }

// Error implements the error interface.
func (e *ScopeTornDownError) Error() string {
	return fmt.Sprintf("scope %s was torn down", e.ScopeID)
}

// Unwrap returns ErrScopeTornDown for errors.Is() compatibility.
func (e *ScopeTornDownError) Unwrap() error { return ErrScopeTornDown }

// Error implements the error interface.
func (e *RegistrationError) Error() string {
	return fmt.Sprintf("registration action %q failed: %v", e.Action, e.Cause)
}

// Unwrap returns both ErrRegistrationFailed and the cause.
func (e *RegistrationError) Unwrap() []error { return []error{ErrRegistrationFailed, e.Cause} }

// Error implements the error interface.
func (e *DuplicateBuilderError) Error() string {
	return fmt.Sprintf("builder %q is already registered", e.Name)
}

// Unwrap returns ErrDuplicateBuilder for errors.Is() compatibility.
func (e *DuplicateBuilderError) Unwrap() error { return ErrDuplicateBuilder }
