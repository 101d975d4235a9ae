// SPDX-License-Identifier: MPL-2.0

// Package services declares which registration actions run in which scope and
// composes them in a deterministic order.
//
// A Module contributes providers for the build scope (RegisterBuildServices)
// and, optionally, for the narrower project scope (RegisterProjectServices).
// The Composer invokes these hooks once per scope and flattens the result into
// an ordered action list: module declaration order first, then provider order
// within a module. Because registries resolve first-registered-wins, this
// order is part of the resolution contract.
package services

import (
	"errors"
	"fmt"

	"github.com/toolmodel/toolmodel/internal/toolmodel"
)

type (
	// Registrar is the registration surface a scope hands to its actions.
	Registrar interface {
		Register(b toolmodel.Builder) error
	}

	// RegistrationAction populates one scope's registry. It runs exactly once per
	// scope, at scope initialization, before any model request is served.
	RegistrationAction interface {
		// Name identifies the action in logs and failures.
		Name() string
		// Execute performs zero or more Register calls. An error is fatal to
		// scope initialization.
		Execute(r Registrar) error
	}

	// Module declares the registration actions of one feature area.
	Module interface {
		// Name identifies the module. Names are unique within a Composer.
		Name() string
		// RegisterBuildServices adds the providers that run in every build scope.
		RegisterBuildServices(reg *ServiceRegistration)
	}

	// ProjectServicesModule is implemented by modules that also contribute
	// project-scope providers.
	ProjectServicesModule interface {
		Module
		RegisterProjectServices(reg *ServiceRegistration)
	}

	// ServiceRegistration collects the providers one module contributes to one scope.
	ServiceRegistration struct {
		module  string
		kind    toolmodel.ScopeKind
		actions []RegistrationAction
	}

	// BaseModule provides empty registration hooks. Embed it and override the
	// hooks a module needs.
	BaseModule struct{}

	// ActionFunc is the function form of a registration action.
	ActionFunc func(r Registrar) error

	namedAction struct {
		name string
		fn   ActionFunc
	}
)

// ErrNilAction is returned when a nil action is executed.
var ErrNilAction = errors.New("nil registration action")

// NewAction returns a named RegistrationAction backed by fn.
func NewAction(name string, fn ActionFunc) RegistrationAction {
	return &namedAction{name: name, fn: fn}
}

// Name returns the action name.
func (a *namedAction) Name() string { return a.name }

// Execute runs the action.
func (a *namedAction) Execute(r Registrar) error {
	if a.fn == nil {
		return fmt.Errorf("%s: %w", a.name, ErrNilAction)
	}
	return a.fn(r)
}

// RegisterBuildServices does nothing.
func (BaseModule) RegisterBuildServices(*ServiceRegistration) {}

// RegisterProjectServices does nothing.
func (BaseModule) RegisterProjectServices(*ServiceRegistration) {}

func newServiceRegistration(module string, kind toolmodel.ScopeKind) *ServiceRegistration {
	return &ServiceRegistration{module: module, kind: kind}
}

// AddProvider appends action to the providers of the scope this registration
// was opened for. Nil actions are ignored.
func (s *ServiceRegistration) AddProvider(action RegistrationAction) {
	if action == nil {
		return
	}
	s.actions = append(s.actions, action)
}

// Kind returns the scope kind the registration collects providers for.
func (s *ServiceRegistration) Kind() toolmodel.ScopeKind { return s.kind }

// Module returns the name of the module being registered.
func (s *ServiceRegistration) Module() string { return s.module }
