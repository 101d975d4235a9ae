// SPDX-License-Identifier: MPL-2.0

package scriptmodels

import (
	"context"
	"fmt"

	"github.com/toolmodel/toolmodel/internal/buildconfig"
	"github.com/toolmodel/toolmodel/internal/toolmodel"
	"github.com/toolmodel/toolmodel/pkg/modeltype"
)

type (
	// BaseScriptModelBuilder builds BaseScriptModel in the build scope.
	BaseScriptModelBuilder struct{}

	// BuildScriptTemplateModelBuilder builds the legacy BuildScriptTemplateModel.
	BuildScriptTemplateModelBuilder struct{}

	// ProjectScriptModelBuilder builds ProjectScriptModel in a project scope.
	ProjectScriptModelBuilder struct{}
)

// Name implements toolmodel.Named.
func (BaseScriptModelBuilder) Name() string { return "kotlin-dsl-base-script-model" }

// CanBuild implements toolmodel.Builder.
func (BaseScriptModelBuilder) CanBuild(mt modeltype.ModelType) bool {
	return mt == BaseScriptModelType
}

// BuildModel implements toolmodel.Builder.
func (b BaseScriptModelBuilder) BuildModel(ctx context.Context, sc toolmodel.ScopeContext, mt modeltype.ModelType) (toolmodel.Model, error) {
	build, err := evaluate(ctx, sc, mt, b.Name())
	if err != nil {
		return nil, err
	}
	return newBaseScriptModel(build), nil
}

// Name implements toolmodel.Named.
func (BuildScriptTemplateModelBuilder) Name() string { return "kotlin-build-script-template-model" }

// DeprecatedBy implements toolmodel.Deprecated.
func (BuildScriptTemplateModelBuilder) DeprecatedBy() modeltype.ModelType { return BaseScriptModelType }

// CanBuild implements toolmodel.Builder.
func (BuildScriptTemplateModelBuilder) CanBuild(mt modeltype.ModelType) bool {
	return mt == BuildScriptTemplateModelType
}

// BuildModel implements toolmodel.Builder.
func (b BuildScriptTemplateModelBuilder) BuildModel(ctx context.Context, sc toolmodel.ScopeContext, mt modeltype.ModelType) (toolmodel.Model, error) {
	build, err := evaluate(ctx, sc, mt, b.Name())
	if err != nil {
		return nil, err
	}
	return &BuildScriptTemplateModel{ClassPath: newBaseScriptModel(build).ScriptTemplatesClassPath}, nil
}

// Name implements toolmodel.Named.
func (ProjectScriptModelBuilder) Name() string { return "kotlin-dsl-project-script-model" }

// CanBuild implements toolmodel.Builder.
func (ProjectScriptModelBuilder) CanBuild(mt modeltype.ModelType) bool {
	return mt == ProjectScriptModelType
}

// BuildModel implements toolmodel.Builder. The project must be part of the
// build and configured.
func (b ProjectScriptModelBuilder) BuildModel(ctx context.Context, sc toolmodel.ScopeContext, mt modeltype.ModelType) (toolmodel.Model, error) {
	if sc.ProjectPath == "" {
		return nil, toolmodel.Unavailable(mt, "requested outside a project scope")
	}
	build, err := evaluate(ctx, sc, mt, b.Name())
	if err != nil {
		return nil, err
	}

	project, ok := build.Project(sc.ProjectPath)
	if !ok {
		return nil, toolmodel.Unavailable(mt, fmt.Sprintf("project %s is not part of the build", sc.ProjectPath))
	}
	if err := project.State.Validate(); err != nil {
		return nil, toolmodel.ComputationFailed(mt, b.Name(), err)
	}
	if project.State == buildconfig.ProjectPending {
		return nil, toolmodel.Unavailable(mt, fmt.Sprintf("project %s is still being configured", sc.ProjectPath))
	}
	return newProjectScriptModel(string(sc.ProjectPath), build, project), nil
}

// evaluate obtains the evaluated build from the scope's configuration source.
func evaluate(ctx context.Context, sc toolmodel.ScopeContext, mt modeltype.ModelType, builder string) (*buildconfig.Build, error) {
	if sc.Configuration == nil {
		return nil, toolmodel.Unavailable(mt, "no build configuration is attached to the scope")
	}
	source, ok := sc.Configuration.(buildconfig.Source)
	if !ok {
		return nil, toolmodel.Unavailable(mt, fmt.Sprintf("configuration source %T does not describe a build", sc.Configuration))
	}

	build, err := source.Build(ctx)
	if err != nil {
		return nil, toolmodel.ComputationFailed(mt, builder, err)
	}
	if build == nil {
		return nil, toolmodel.Unavailable(mt, "build configuration is empty")
	}
	return build, nil
}
