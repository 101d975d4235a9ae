// SPDX-License-Identifier: MPL-2.0

package toolmodel

import (
	"context"
	"fmt"

	"github.com/toolmodel/toolmodel/pkg/modeltype"
)

type (
	// Model is a structured description of some aspect of a build.
	Model any

	// Builder produces models for the model types it declares support for.
	Builder interface {
		// CanBuild reports whether this builder can produce the given model type.
		// It is called on every resolution attempt and must be cheap, free of
		// side effects, and return the same answer for the same input.
		CanBuild(modelType modeltype.ModelType) bool
		// BuildModel produces the model. It fails with a ModelUnavailableError when
		// preconditions are unmet and with a ModelComputationError wrapping any
		// failure of the delegated computation.
		BuildModel(ctx context.Context, scope ScopeContext, modelType modeltype.ModelType) (Model, error)
	}

	// Named is implemented by builders and registration actions that carry a
	// stable display name.
	Named interface {
		Name() string
	}

	// Deprecated is implemented by legacy builders kept alongside a canonical
	// replacement. It only affects listings and warnings, never resolution.
	Deprecated interface {
		DeprecatedBy() modeltype.ModelType
	}

	// BuildFunc is the compute half of a builder created with NewBuilder.
	BuildFunc func(ctx context.Context, scope ScopeContext, modelType modeltype.ModelType) (Model, error)

	// funcBuilder answers for a fixed set of model types.
	funcBuilder struct {
		name  string
		types map[modeltype.ModelType]struct{}
		fn    BuildFunc
	}
)

// NewBuilder returns a named Builder that can build exactly the given model types.
func NewBuilder(name string, fn BuildFunc, types ...modeltype.ModelType) Builder {
	set := make(map[modeltype.ModelType]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return &funcBuilder{name: name, types: set, fn: fn}
}

// Name returns the builder name.
func (b *funcBuilder) Name() string { return b.name }

// CanBuild reports whether modelType is one of the builder's declared types.
func (b *funcBuilder) CanBuild(modelType modeltype.ModelType) bool {
	_, ok := b.types[modelType]
	return ok
}

// BuildModel delegates to the builder's BuildFunc.
func (b *funcBuilder) BuildModel(ctx context.Context, scope ScopeContext, modelType modeltype.ModelType) (Model, error) {
	if b.fn == nil {
		return nil, Unavailable(modelType, fmt.Sprintf("builder %s has no compute function", b.name))
	}
	return b.fn(ctx, scope, modelType)
}

// BuilderName returns the display name of b, falling back to its dynamic type.
func BuilderName(b Builder) string {
	if n, ok := b.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	return fmt.Sprintf("%T", b)
}

// DeprecatedBy returns the replacement model type of a deprecated builder and
// whether b is deprecated at all.
func DeprecatedBy(b Builder) (modeltype.ModelType, bool) {
	d, ok := b.(Deprecated)
	if !ok {
		return "", false
	}
	return d.DeprecatedBy(), true
}
