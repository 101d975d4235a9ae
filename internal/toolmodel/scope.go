// SPDX-License-Identifier: MPL-2.0

package toolmodel

import (
	"context"
	"errors"
	"fmt"
)

const (
	// ScopeKindBuild is the scope of one whole build.
	ScopeKindBuild ScopeKind = "build"
	// ScopeKindProject is the narrower scope of one project within a build.
	ScopeKindProject ScopeKind = "project"

	// RootProjectPath is the path of a build's root project.
	RootProjectPath ProjectPath = ":"
)

// ErrInvalidScopeKind is the sentinel error wrapped by InvalidScopeKindError.
var ErrInvalidScopeKind = errors.New("invalid scope kind")

type (
	// ScopeKind identifies the lifecycle unit a set of registrations belongs to.
	ScopeKind string

	// InvalidScopeKindError is returned when a ScopeKind value is not recognized.
	// It wraps ErrInvalidScopeKind for errors.Is() compatibility.
	InvalidScopeKindError struct {
		Value ScopeKind
	}

	// ScopeID uniquely identifies one scope instance.
	ScopeID string

	// ProjectPath is a colon-separated project path such as ":" or ":app:core".
	ProjectPath string

	// ConfigurationSource is the build-configuration subsystem builders delegate to.
	// Concrete sources expose their evaluated state through richer interfaces
	// that builders assert on; the core never inspects configuration itself.
	ConfigurationSource interface {
		// Evaluate evaluates the configuration if it has not been evaluated yet.
		// It must be idempotent and safe for concurrent callers.
		Evaluate(ctx context.Context) error
		// Close releases resources held by the source.
		Close() error
	}

	// ScopeContext is what a builder sees of the scope it is building in.
	ScopeContext struct {
		// ScopeID identifies the scope instance serving the request.
		ScopeID ScopeID
		// Kind is the scope kind.
		Kind ScopeKind
		// ProjectPath is set for project scopes and empty for build scopes.
		ProjectPath ProjectPath
		// Configuration is the outbound delegation point for model computation.
		Configuration ConfigurationSource
	}
)

// Error implements the error interface for InvalidScopeKindError.
func (e *InvalidScopeKindError) Error() string {
	return fmt.Sprintf("invalid scope kind %q (valid: build, project)", e.Value)
}

// Unwrap returns ErrInvalidScopeKind for errors.Is() compatibility.
func (e *InvalidScopeKindError) Unwrap() error { return ErrInvalidScopeKind }

// String returns the string representation of the ScopeKind.
func (k ScopeKind) String() string { return string(k) }

// Validate returns nil if the ScopeKind is build or project.
func (k ScopeKind) Validate() error {
	switch k {
	case ScopeKindBuild, ScopeKindProject:
		return nil
	default:
		return &InvalidScopeKindError{Value: k}
	}
}

// String returns the string representation of the ScopeID.
func (id ScopeID) String() string { return string(id) }

// String returns the string representation of the ProjectPath.
func (p ProjectPath) String() string { return string(p) }

// String describes the scope for logs and error messages.
func (c ScopeContext) String() string {
	if c.ProjectPath != "" {
		return fmt.Sprintf("%s scope %s (%s)", c.Kind, c.ProjectPath, c.ScopeID)
	}
	return fmt.Sprintf("%s scope (%s)", c.Kind, c.ScopeID)
}
