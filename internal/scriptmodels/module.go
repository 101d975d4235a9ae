// SPDX-License-Identifier: MPL-2.0

package scriptmodels

import (
	"github.com/toolmodel/toolmodel/internal/services"
)

// ModuleName is the name Module registers under.
const ModuleName = "kotlin-dsl-scripting"

// Module registers the script model builders.
type Module struct {
	services.BaseModule
}

// Modules returns the default service modules, in declaration order.
func Modules() []services.Module {
	return []services.Module{Module{}}
}

// Name implements services.Module.
func (Module) Name() string { return ModuleName }

// RegisterBuildServices registers the base script model builder followed by
// the deprecated template builder. Resolution is first-registered-wins, so
// the canonical builder always comes first.
func (Module) RegisterBuildServices(reg *services.ServiceRegistration) {
	reg.AddProvider(services.NewAction("register build-scope script model builders", func(r services.Registrar) error {
		if err := r.Register(BaseScriptModelBuilder{}); err != nil {
			return err
		}
		return r.Register(BuildScriptTemplateModelBuilder{})
	}))
}

// RegisterProjectServices registers the project script model builder.
func (Module) RegisterProjectServices(reg *services.ServiceRegistration) {
	reg.AddProvider(services.NewAction("register project-scope script model builders", func(r services.Registrar) error {
		return r.Register(ProjectScriptModelBuilder{})
	}))
}
