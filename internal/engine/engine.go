// SPDX-License-Identifier: MPL-2.0

// Package engine is the host side of model serving. It opens one build scope
// per build, lazily opens project scopes beneath it, and routes inbound model
// requests to the narrowest scope that applies.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/toolmodel/toolmodel/internal/logging"
	"github.com/toolmodel/toolmodel/internal/registry"
	"github.com/toolmodel/toolmodel/internal/scope"
	"github.com/toolmodel/toolmodel/internal/services"
	"github.com/toolmodel/toolmodel/internal/toolmodel"
	"github.com/toolmodel/toolmodel/pkg/modeltype"
)

// DefaultReadyTimeout bounds how long a request waits for a scope that is
// still registering when waiting is enabled.
const DefaultReadyTimeout = 10 * time.Second

type (
	// SourceFactory opens the configuration source of one build.
	SourceFactory func(ctx context.Context) (toolmodel.ConfigurationSource, error)

	// Options configures an Engine.
	Options struct {
		// Composer supplies the registration actions. Nil means no modules.
		Composer *services.Composer
		// Configuration opens the per-build configuration source. Nil means
		// builders see no configuration.
		Configuration SourceFactory
		// Logger receives engine and scope diagnostics. Nil discards them.
		Logger *log.Logger
		// Duplicates is the duplicate-builder policy of every registry.
		Duplicates registry.DuplicatePolicy
		// WaitForReady makes requests wait for a registering scope instead of
		// failing with toolmodel.ErrScopeNotReady.
		WaitForReady bool
		// ReadyTimeout bounds the wait. Zero means DefaultReadyTimeout.
		ReadyTimeout time.Duration
	}

	// Engine opens builds. It is safe for concurrent use.
	Engine struct {
		composer      *services.Composer
		configuration SourceFactory
		logger        *log.Logger
		rootLogger    *log.Logger
		duplicates    registry.DuplicatePolicy
		waitForReady  bool
		readyTimeout  time.Duration
	}

	// Request is one inbound model request.
	Request struct {
		// ModelType is the requested model type.
		ModelType modeltype.ModelType
		// ProjectPath selects a project scope. Empty resolves in the build scope.
		ProjectPath toolmodel.ProjectPath
	}

	// Build is one open build: a build scope plus the project scopes opened
	// beneath it so far.
	Build struct {
		engine *Engine
		scope  *scope.Scope

		// mu serializes project scope creation.
		mu       sync.Mutex
		projects map[toolmodel.ProjectPath]*scope.Scope
	}
)

// New creates an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Duplicates != "" {
		if err := opts.Duplicates.Validate(); err != nil {
			return nil, err
		}
	}
	if opts.ReadyTimeout < 0 {
		return nil, fmt.Errorf("ready timeout must not be negative, got %s", opts.ReadyTimeout)
	}
	if opts.ReadyTimeout == 0 {
		opts.ReadyTimeout = DefaultReadyTimeout
	}
	composer := opts.Composer
	if composer == nil {
		var err error
		if composer, err = services.NewComposer(); err != nil {
			return nil, err
		}
	}

	return &Engine{
		composer:      composer,
		configuration: opts.Configuration,
		logger:        logging.Component(opts.Logger, "engine"),
		rootLogger:    opts.Logger,
		duplicates:    opts.Duplicates,
		waitForReady:  opts.WaitForReady,
		readyTimeout:  opts.ReadyTimeout,
	}, nil
}

// Composer returns the engine's service composer.
func (e *Engine) Composer() *services.Composer { return e.composer }

// OpenBuild creates and initializes a build scope. The configuration source is
// closed when the build is closed. Registration failures are returned as
// *toolmodel.RegistrationError and leave nothing open.
func (e *Engine) OpenBuild(ctx context.Context) (*Build, error) {
	var source toolmodel.ConfigurationSource
	if e.configuration != nil {
		var err error
		if source, err = e.configuration(ctx); err != nil {
			return nil, fmt.Errorf("open build configuration: %w", err)
		}
	}

	s, err := scope.New(scope.Options{
		Kind:          toolmodel.ScopeKindBuild,
		Configuration: source,
		Duplicates:    e.duplicates,
		Logger:        e.rootLogger,
	})
	if err != nil {
		closeSource(source)
		return nil, err
	}
	if source != nil {
		if err := s.OnTearDown(source.Close); err != nil {
			return nil, err
		}
	}

	actions, err := e.composer.Actions(toolmodel.ScopeKindBuild)
	if err != nil {
		_ = s.TearDown()
		return nil, err
	}
	if err := s.Initialize(ctx, actions); err != nil {
		_ = s.TearDown()
		return nil, err
	}

	e.logger.Debug("build opened", "scope_id", s.ID(), "builders", s.Registry().Len())
	return &Build{engine: e, scope: s, projects: make(map[toolmodel.ProjectPath]*scope.Scope)}, nil
}

// ID returns the build scope's identifier.
func (b *Build) ID() toolmodel.ScopeID { return b.scope.ID() }

// Scope returns the build scope.
func (b *Build) Scope() *scope.Scope { return b.scope }

// RequestModel serves one inbound request. The model type is validated first;
// builder errors are returned unmodified.
func (b *Build) RequestModel(ctx context.Context, req Request) (toolmodel.Model, error) {
	if err := req.ModelType.Validate(); err != nil {
		return nil, err
	}

	s, err := b.scopeFor(ctx, req.ProjectPath)
	if err != nil {
		return nil, err
	}
	if b.engine.waitForReady && !s.IsReady() {
		waitCtx, cancel := context.WithTimeout(ctx, b.engine.readyTimeout)
		defer cancel()
		if err := s.WaitForReady(waitCtx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	model, err := s.RequestModel(ctx, req.ModelType)
	b.engine.logger.Debug("model requested",
		"model_type", req.ModelType, "project", req.ProjectPath, "duration", time.Since(start), "error", err)
	return model, err
}

// Builders lists the resolution order seen from the build scope, or from the
// project scope when projectPath is set.
func (b *Build) Builders(ctx context.Context, projectPath toolmodel.ProjectPath) ([]toolmodel.Builder, error) {
	s, err := b.scopeFor(ctx, projectPath)
	if err != nil {
		return nil, err
	}
	if b.engine.waitForReady && !s.IsReady() {
		waitCtx, cancel := context.WithTimeout(ctx, b.engine.readyTimeout)
		defer cancel()
		if err := s.WaitForReady(waitCtx); err != nil {
			return nil, err
		}
	}
	reg := s.Registry()
	if reg == nil {
		return nil, &toolmodel.ScopeTornDownError{ScopeID: s.ID()}
	}
	if !reg.IsSealed() {
		return nil, fmt.Errorf("%s scope %s: %w", s.Kind(), s.ProjectPath(), toolmodel.ErrScopeNotReady)
	}
	return reg.Builders(), nil
}

// Close tears down the build scope and every project scope beneath it.
// Later requests fail with toolmodel.ErrScopeTornDown.
func (b *Build) Close() error {
	err := b.scope.TearDown()
	b.engine.logger.Debug("build closed", "scope_id", b.scope.ID())
	return err
}

func (b *Build) scopeFor(ctx context.Context, projectPath toolmodel.ProjectPath) (*scope.Scope, error) {
	if projectPath == "" {
		return b.scope, nil
	}
	return b.projectScope(ctx, projectPath)
}

// projectScope returns the project scope for path, opening it on first use.
// The first requester runs registration; concurrent requesters see the scope
// in Registering until it completes.
func (b *Build) projectScope(ctx context.Context, path toolmodel.ProjectPath) (*scope.Scope, error) {
	b.mu.Lock()
	if s, ok := b.projects[path]; ok {
		b.mu.Unlock()
		return s, nil
	}
	child, err := b.scope.NewChild(path)
	if err != nil {
		b.mu.Unlock()
		return nil, err
	}
	b.projects[path] = child
	b.mu.Unlock()

	actions, err := b.engine.composer.Actions(toolmodel.ScopeKindProject)
	if err != nil {
		return nil, err
	}
	// The scope outlives this request; a cancelled caller must not fail it.
	if err := child.Initialize(context.WithoutCancel(ctx), actions); err != nil {
		return nil, err
	}
	b.engine.logger.Debug("project scope opened", "project", path, "scope_id", child.ID())
	return child, nil
}

func closeSource(source toolmodel.ConfigurationSource) {
	if source != nil {
		_ = source.Close()
	}
}
