// SPDX-License-Identifier: MPL-2.0

package scope

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/toolmodel/toolmodel/internal/logging"
	"github.com/toolmodel/toolmodel/internal/registry"
	"github.com/toolmodel/toolmodel/internal/services"
	"github.com/toolmodel/toolmodel/internal/toolmodel"
	"github.com/toolmodel/toolmodel/pkg/modeltype"
)

type (
	// Options configures a Scope.
	Options struct {
		// Kind is the scope kind. Empty means build.
		Kind toolmodel.ScopeKind
		// ProjectPath identifies the project of a project scope.
		ProjectPath toolmodel.ProjectPath
		// Configuration is handed to builders through the ScopeContext.
		Configuration toolmodel.ConfigurationSource
		// Duplicates is the registry's duplicate policy.
		Duplicates registry.DuplicatePolicy
		// Logger receives lifecycle diagnostics. Nil discards them.
		Logger *log.Logger
	}

	// Scope owns one registry for the lifetime of one build or project.
	// A Scope is single-use: once torn down or failed, create a new one.
	Scope struct {
		// Immutable after New.
		id            toolmodel.ScopeID
		kind          toolmodel.ScopeKind
		projectPath   toolmodel.ProjectPath
		configuration toolmodel.ConfigurationSource
		duplicates    registry.DuplicatePolicy
		logger        *log.Logger
		parent        *Scope

		// State management (atomic for lock-free reads).
		state atomic.Int32
		// registry is dropped at teardown.
		registry atomic.Pointer[registry.Registry]

		// ctx is cancelled at teardown or failure; in-flight builds observe it.
		ctx     context.Context
		cancel  context.CancelFunc
		readyCh chan struct{}

		// mu guards the fields below.
		mu       sync.Mutex
		lastErr  error
		children []*Scope
		cleanups []func() error
	}
)

// New creates a scope in the Unregistered state with an empty registry.
func New(opts Options) (*Scope, error) {
	return newScope(opts, nil)
}

func newScope(opts Options, parent *Scope) (*Scope, error) {
	if opts.Kind == "" {
		opts.Kind = toolmodel.ScopeKindBuild
	}
	if err := opts.Kind.Validate(); err != nil {
		return nil, err
	}
	if opts.Kind == toolmodel.ScopeKindProject && opts.ProjectPath == "" {
		return nil, errors.New("project scope requires a project path")
	}

	s := &Scope{
		id:            toolmodel.ScopeID(uuid.NewString()),
		kind:          opts.Kind,
		projectPath:   opts.ProjectPath,
		configuration: opts.Configuration,
		duplicates:    opts.Duplicates,
		logger:        logging.Component(opts.Logger, "scope"),
		parent:        parent,
		readyCh:       make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.state.Store(int32(StateUnregistered))

	var parentRegistry *registry.Registry
	if parent != nil {
		parentRegistry = parent.registry.Load()
	}
	s.registry.Store(registry.New(registry.Options{
		Scope:      s.label(),
		Parent:     parentRegistry,
		Duplicates: opts.Duplicates,
		Logger:     opts.Logger,
	}))

	return s, nil
}

// ID returns the scope's unique identifier.
func (s *Scope) ID() toolmodel.ScopeID { return s.id }

// Kind returns the scope kind.
func (s *Scope) Kind() toolmodel.ScopeKind { return s.kind }

// ProjectPath returns the project path of a project scope, or "" for a build scope.
func (s *Scope) ProjectPath() toolmodel.ProjectPath { return s.projectPath }

// Parent returns the scope this scope was created from, or nil for a root scope.
func (s *Scope) Parent() *Scope { return s.parent }

// State returns the current lifecycle state (atomic, lock-free read).
func (s *Scope) State() State { return State(s.state.Load()) }

// IsReady returns true if the scope is in the Ready state.
func (s *Scope) IsReady() bool { return s.State() == StateReady }

// Registry returns the scope's registry, or nil after teardown.
func (s *Scope) Registry() *registry.Registry { return s.registry.Load() }

// Done returns a channel closed when the scope is torn down or fails.
func (s *Scope) Done() <-chan struct{} { return s.ctx.Done() }

// LastError returns the error that caused the Failed state, or nil.
func (s *Scope) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Context describes the scope to builders.
func (s *Scope) Context() toolmodel.ScopeContext {
	return toolmodel.ScopeContext{
		ScopeID:       s.id,
		Kind:          s.kind,
		ProjectPath:   s.projectPath,
		Configuration: s.configuration,
	}
}

// Initialize runs actions against the scope's registry, in order, on the
// calling goroutine, then seals the registry and transitions to Ready.
// The first failing action moves the scope to Failed and its error is
// returned as a *toolmodel.RegistrationError; Ready is never reached.
func (s *Scope) Initialize(ctx context.Context, actions []services.ScopedAction) error {
	if !s.state.CompareAndSwap(int32(StateUnregistered), int32(StateRegistering)) {
		if s.State() == StateTornDown {
			return s.tornDown()
		}
		return fmt.Errorf("cannot initialize %s in state %s", s.label(), s.State())
	}

	// Check for an already-cancelled context before any registration runs.
	if err := ctx.Err(); err != nil {
		err = fmt.Errorf("context cancelled before initialization: %w", err)
		s.transitionToFailed(err)
		return err
	}

	reg := s.registry.Load()
	for _, a := range actions {
		if s.State() == StateTornDown {
			return s.tornDown()
		}
		if err := ctx.Err(); err != nil {
			err = fmt.Errorf("initialization of %s cancelled: %w", s.label(), err)
			s.transitionToFailed(err)
			return err
		}

		name := a.Action.Name()
		if a.Module != "" {
			name = a.Module + "/" + name
		}
		if err := a.Action.Execute(reg); err != nil {
			regErr := &toolmodel.RegistrationError{Action: name, Cause: err}
			s.transitionToFailed(regErr)
			return regErr
		}
		s.logger.Debug("registration action completed", "scope", s.label(), "action", name)
	}

	// Seal before publishing Ready: readers that observe Ready also observe
	// the sealed snapshot.
	reg.Seal()
	if !s.state.CompareAndSwap(int32(StateRegistering), int32(StateReady)) {
		return s.tornDown()
	}
	close(s.readyCh)
	s.logger.Debug("scope ready", "scope", s.label(), "builders", reg.Len())
	return nil
}

// WaitForReady blocks until the scope is Ready, fails, is torn down, or ctx is done.
func (s *Scope) WaitForReady(ctx context.Context) error {
	select {
	case <-s.readyCh:
		return nil
	case <-s.ctx.Done():
		return s.notServing()
	case <-ctx.Done():
		return fmt.Errorf("waiting for %s: %w: %w", s.label(), toolmodel.ErrScopeNotReady, ctx.Err())
	}
}

// RequestModel resolves modelType in this scope and builds the model.
//
// Requests are rejected with toolmodel.ErrScopeNotReady until the scope is
// Ready. Builder errors are returned unmodified. If the scope is torn down
// while the builder runs, the result is discarded and a ScopeTornDownError is
// returned instead.
func (s *Scope) RequestModel(ctx context.Context, modelType modeltype.ModelType) (toolmodel.Model, error) {
	if st := s.State(); st != StateReady {
		return nil, s.notServing()
	}
	reg := s.registry.Load()
	if reg == nil {
		return nil, s.tornDown()
	}

	b, owner, err := reg.Resolve(modelType)
	if err != nil {
		return nil, err
	}
	if replacement, ok := toolmodel.DeprecatedBy(b); ok {
		s.logger.Warn("serving model with a deprecated builder",
			"model_type", modelType, "builder", toolmodel.BuilderName(b), "use_instead", replacement)
	}

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	model, err := b.BuildModel(callCtx, s.owner(owner).Context(), modelType)
	if s.ctx.Err() != nil {
		return nil, s.tornDown()
	}
	return model, err
}

// NewChild creates a project scope whose registry falls back to this scope's
// registry. The child shares this scope's configuration source and is torn
// down with it. This scope must be Ready.
func (s *Scope) NewChild(projectPath toolmodel.ProjectPath) (*Scope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.State(); st != StateReady {
		return nil, s.notServingLocked()
	}

	child, err := newScope(Options{
		Kind:          toolmodel.ScopeKindProject,
		ProjectPath:   projectPath,
		Configuration: s.configuration,
		Duplicates:    s.duplicates,
		Logger:        s.logger.WithPrefix(""),
	}, s)
	if err != nil {
		return nil, err
	}
	s.children = append(s.children, child)
	return child, nil
}

// OnTearDown registers fn to run when the scope is torn down. Hooks run in
// reverse registration order. If the scope is already torn down, fn runs now.
func (s *Scope) OnTearDown(fn func() error) error {
	s.mu.Lock()
	if s.State() != StateTornDown {
		s.cleanups = append(s.cleanups, fn)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return fn()
}

// TearDown ends the scope: in-flight requests fail with ScopeTornDown, child
// scopes are torn down first, cleanup hooks run, and the registry is dropped.
// It is idempotent; only the first call returns hook errors.
func (s *Scope) TearDown() error {
	for {
		cur := s.State()
		if cur == StateTornDown {
			return nil
		}
		if s.state.CompareAndSwap(int32(cur), int32(StateTornDown)) {
			break
		}
	}
	s.cancel()

	s.mu.Lock()
	children := slices.Clone(s.children)
	cleanups := slices.Clone(s.cleanups)
	s.children, s.cleanups = nil, nil
	s.mu.Unlock()

	var errs []error
	for _, child := range slices.Backward(children) {
		if err := child.TearDown(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, fn := range slices.Backward(cleanups) {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}

	s.registry.Store(nil)
	s.logger.Debug("scope torn down", "scope", s.label())
	return errors.Join(errs...)
}

// transitionToFailed marks the scope as failed with the given error.
func (s *Scope) transitionToFailed(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()

	for {
		cur := s.State()
		if cur.IsTerminal() {
			return
		}
		if s.state.CompareAndSwap(int32(cur), int32(StateFailed)) {
			break
		}
	}
	s.cancel()
	s.logger.Error("scope initialization failed", "scope", s.label(), "error", err)
}

// owner returns the scope, this one or an ancestor, whose registry is reg.
// Builders run with the context of the scope they were registered in.
func (s *Scope) owner(reg *registry.Registry) *Scope {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.registry.Load() == reg {
			return sc
		}
	}
	return s
}

// notServing explains why the scope cannot serve a request right now.
func (s *Scope) notServing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notServingLocked()
}

// notServingLocked is notServing for callers holding s.mu.
func (s *Scope) notServingLocked() error {
	switch st := s.State(); st {
	case StateTornDown:
		return s.tornDown()
	case StateFailed:
		return fmt.Errorf("%s failed to initialize: %w: %w", s.label(), toolmodel.ErrScopeNotReady, s.lastErr)
	default:
		return fmt.Errorf("%s is %s: %w", s.label(), st, toolmodel.ErrScopeNotReady)
	}
}

func (s *Scope) tornDown() error {
	return &toolmodel.ScopeTornDownError{ScopeID: s.id}
}

// label names the scope in logs and errors.
func (s *Scope) label() string {
	if s.projectPath != "" {
		return fmt.Sprintf("%s scope %s", s.kind, s.projectPath)
	}
	return fmt.Sprintf("%s scope", s.kind)
}
