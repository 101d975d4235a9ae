// SPDX-License-Identifier: MPL-2.0

package services

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/toolmodel/toolmodel/internal/toolmodel"
)

var (
	// ErrDuplicateModule is returned when two modules share a name.
	ErrDuplicateModule = errors.New("duplicate service module")
	// ErrInvalidModule is returned for nil modules or modules without a name.
	ErrInvalidModule = errors.New("invalid service module")
)

type (
	// Composer holds the service modules of an engine in declaration order.
	Composer struct {
		modules []Module
	}

	// ScopedAction is a registration action tagged with the module that declared it.
	ScopedAction struct {
		Module string
		Action RegistrationAction
	}

	// ModuleDescription lists a module's actions per scope kind, for display.
	ModuleDescription struct {
		Name    string
		Actions map[toolmodel.ScopeKind][]string
	}
)

// NewComposer validates modules and returns a Composer that preserves their order.
func NewComposer(modules ...Module) (*Composer, error) {
	seen := make(map[string]int, len(modules))
	for i, m := range modules {
		if m == nil {
			return nil, fmt.Errorf("module %d: %w: nil", i, ErrInvalidModule)
		}
		name := m.Name()
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("module %d (%T): %w: empty name", i, m, ErrInvalidModule)
		}
		if first, ok := seen[name]; ok {
			return nil, fmt.Errorf("module %q declared at positions %d and %d: %w", name, first, i, ErrDuplicateModule)
		}
		seen[name] = i
	}
	return &Composer{modules: slices.Clone(modules)}, nil
}

// Actions invokes every module's hook for kind once and returns the resulting
// actions in module declaration order, then provider order. Call it once per
// scope instance so modules can hand out fresh per-scope actions.
func (c *Composer) Actions(kind toolmodel.ScopeKind) ([]ScopedAction, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}

	var out []ScopedAction
	for _, m := range c.modules {
		reg := newServiceRegistration(m.Name(), kind)
		switch kind {
		case toolmodel.ScopeKindBuild:
			m.RegisterBuildServices(reg)
		case toolmodel.ScopeKindProject:
			pm, ok := m.(ProjectServicesModule)
			if !ok {
				continue
			}
			pm.RegisterProjectServices(reg)
		}
		for _, a := range reg.actions {
			out = append(out, ScopedAction{Module: m.Name(), Action: a})
		}
	}
	return out, nil
}

// Modules returns the module names in declaration order.
func (c *Composer) Modules() []string {
	names := make([]string, len(c.modules))
	for i, m := range c.modules {
		names[i] = m.Name()
	}
	return names
}

// Describe lists each module's action names per scope kind.
func (c *Composer) Describe() ([]ModuleDescription, error) {
	byModule := make(map[string]map[toolmodel.ScopeKind][]string, len(c.modules))
	for _, kind := range []toolmodel.ScopeKind{toolmodel.ScopeKindBuild, toolmodel.ScopeKindProject} {
		actions, err := c.Actions(kind)
		if err != nil {
			return nil, err
		}
		for _, a := range actions {
			if byModule[a.Module] == nil {
				byModule[a.Module] = make(map[toolmodel.ScopeKind][]string)
			}
			byModule[a.Module][kind] = append(byModule[a.Module][kind], a.Action.Name())
		}
	}

	out := make([]ModuleDescription, 0, len(c.modules))
	for _, name := range c.Modules() {
		out = append(out, ModuleDescription{Name: name, Actions: byModule[name]})
	}
	return out, nil
}

// Kinds returns the scope kinds the description has actions for, sorted.
func (d ModuleDescription) Kinds() []toolmodel.ScopeKind {
	kinds := make([]toolmodel.ScopeKind, 0, len(d.Actions))
	for k := range d.Actions {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}
