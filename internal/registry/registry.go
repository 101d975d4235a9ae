// SPDX-License-Identifier: MPL-2.0

// Package registry resolves a requested model type to the builder that serves it.
//
// A Registry is an ordered list of builders. Resolution walks the list in
// registration order and returns the first builder whose CanBuild answers
// true: first-registered-wins. Duplicates are allowed, so a deprecated builder
// can coexist with its canonical replacement; the canonical one must be
// registered first to take precedence.
//
// A registry has two phases. While registering, a single coordinating goroutine
// appends builders. Seal publishes the list as an immutable snapshot through an
// atomic pointer; after that, Builder is lock-free and safe for concurrent
// callers, and Register is rejected with toolmodel.ErrRegistrySealed.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/toolmodel/toolmodel/internal/logging"
	"github.com/toolmodel/toolmodel/internal/toolmodel"
	"github.com/toolmodel/toolmodel/pkg/modeltype"
)

type (
	// Options configures a Registry.
	Options struct {
		// Scope labels the registry in logs and errors (e.g., "build scope").
		Scope string
		// Parent is consulted after this registry's own builders miss.
		Parent *Registry
		// Duplicates selects how repeated builder names are handled.
		Duplicates DuplicatePolicy
		// Logger receives registration diagnostics. Nil discards them.
		Logger *log.Logger
	}

	// Registry holds the builders registered for one scope.
	Registry struct {
		scope      string
		parent     *Registry
		duplicates DuplicatePolicy
		logger     *log.Logger

		// pending is only touched by the coordinating goroutine before Seal.
		pending []toolmodel.Builder
		names   map[string]int
		// sealed is nil until Seal publishes the final candidate list.
		sealed atomic.Pointer[[]toolmodel.Builder]
	}
)

// New creates an empty, unsealed registry.
// An empty or unrecognized duplicate policy falls back to DuplicateWarn.
func New(opts Options) *Registry {
	logger := logging.Component(opts.Logger, "registry")
	if opts.Duplicates == "" {
		opts.Duplicates = DuplicateWarn
	}
	if err := opts.Duplicates.Validate(); err != nil {
		logger.Warn("unrecognized duplicate policy, using warn", "scope", opts.Scope, "error", err)
		opts.Duplicates = DuplicateWarn
	}
	return &Registry{
		scope:      opts.Scope,
		parent:     opts.Parent,
		duplicates: opts.Duplicates,
		logger:     logger,
		names:      make(map[string]int),
	}
}

// Register appends b to the candidate list.
// It fails with toolmodel.ErrRegistrySealed once the registry is sealed and,
// under DuplicateReject, with a DuplicateBuilderError for a repeated name.
func (r *Registry) Register(b toolmodel.Builder) error {
	if b == nil {
		return fmt.Errorf("register builder in %s: nil builder", r.scope)
	}
	name := toolmodel.BuilderName(b)
	if r.IsSealed() {
		return fmt.Errorf("register builder %s in %s: %w", name, r.scope, toolmodel.ErrRegistrySealed)
	}

	if count := r.names[name]; count > 0 {
		switch r.duplicates {
		case DuplicateReject:
			return &toolmodel.DuplicateBuilderError{Name: name}
		case DuplicateWarn:
			r.logger.Warn("builder registered more than once; the earlier registration wins",
				"builder", name, "scope", r.scope, "registrations", count+1)
		case DuplicateAllow:
		}
	}

	r.names[name]++
	r.pending = append(r.pending, b)
	r.logger.Debug("registered builder", "builder", name, "scope", r.scope, "position", len(r.pending))
	return nil
}

// Seal publishes the candidate list. It is idempotent.
func (r *Registry) Seal() {
	if r.IsSealed() {
		return
	}
	snapshot := slices.Clip(r.pending)
	r.sealed.Store(&snapshot)
	r.logger.Debug("registry sealed", "scope", r.scope, "builders", len(snapshot))
}

// IsSealed reports whether Seal has been called.
func (r *Registry) IsSealed() bool {
	return r.sealed.Load() != nil
}

// Builder returns the first registered builder that can build modelType,
// searching this registry before its parent.
func (r *Registry) Builder(modelType modeltype.ModelType) (toolmodel.Builder, error) {
	b, _, err := r.Resolve(modelType)
	return b, err
}

// Resolve is Builder, also returning the registry the builder was registered
// in: r itself or one of its ancestors.
func (r *Registry) Resolve(modelType modeltype.ModelType) (toolmodel.Builder, *Registry, error) {
	candidates := r.sealed.Load()
	if candidates == nil {
		return nil, nil, fmt.Errorf("resolve %q in %s: %w", modelType, r.scope, toolmodel.ErrScopeNotReady)
	}

	for _, b := range *candidates {
		if b.CanBuild(modelType) {
			return b, r, nil
		}
	}

	if r.parent != nil {
		b, owner, err := r.parent.Resolve(modelType)
		if err == nil {
			return b, owner, nil
		}
		var unknown *toolmodel.UnknownModelTypeError
		if !errors.As(err, &unknown) {
			return nil, nil, err
		}
	}

	return nil, nil, &toolmodel.UnknownModelTypeError{ModelType: modelType, Scope: r.scope}
}

// Builders returns the sealed candidates in resolution order, own builders
// first and then the parent's. It returns nil before Seal.
func (r *Registry) Builders() []toolmodel.Builder {
	candidates := r.sealed.Load()
	if candidates == nil {
		return nil
	}
	out := slices.Clone(*candidates)
	if r.parent != nil {
		out = append(out, r.parent.Builders()...)
	}
	return out
}

// Len returns the number of builders registered directly in this registry.
func (r *Registry) Len() int {
	if candidates := r.sealed.Load(); candidates != nil {
		return len(*candidates)
	}
	return len(r.pending)
}

// Scope returns the registry's scope label.
func (r *Registry) Scope() string { return r.scope }
