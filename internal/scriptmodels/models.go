// SPDX-License-Identifier: MPL-2.0

// Package scriptmodels serves the script compilation models IDEs request to
// edit Kotlin DSL build scripts, and declares the service module that
// registers their builders.
package scriptmodels

import (
	"slices"

	"github.com/toolmodel/toolmodel/internal/buildconfig"
	"github.com/toolmodel/toolmodel/pkg/modeltype"
)

const (
	// BaseScriptModelType is the canonical build-wide script model.
	BaseScriptModelType modeltype.ModelType = "kotlin-dsl.base-script-model"
	// BuildScriptTemplateModelType is the legacy template model, superseded by
	// BaseScriptModelType and still served for older clients.
	BuildScriptTemplateModelType modeltype.ModelType = "kotlin-dsl.build-script-template-model"
	// ProjectScriptModelType is the per-project script model.
	ProjectScriptModelType modeltype.ModelType = "kotlin-dsl.project-script-model"
)

type (
	// BaseScriptModel carries what every script of the build compiles against.
	BaseScriptModel struct {
		ScriptTemplatesClassPath []string `json:"script_templates_classpath" yaml:"script_templates_classpath" toml:"script_templates_classpath"`
		ImplicitImports          []string `json:"implicit_imports" yaml:"implicit_imports" toml:"implicit_imports"`
		KotlinDSLClassPath       []string `json:"kotlin_dsl_classpath" yaml:"kotlin_dsl_classpath" toml:"kotlin_dsl_classpath"`
	}

	// BuildScriptTemplateModel is the legacy model: only the template classpath.
	BuildScriptTemplateModel struct {
		ClassPath []string `json:"classpath" yaml:"classpath" toml:"classpath"`
	}

	// ProjectScriptModel carries what one project's build script compiles against.
	ProjectScriptModel struct {
		ProjectPath     string   `json:"project_path" yaml:"project_path" toml:"project_path"`
		ClassPath       []string `json:"classpath" yaml:"classpath" toml:"classpath"`
		SourcePath      []string `json:"source_path" yaml:"source_path" toml:"source_path"`
		ImplicitImports []string `json:"implicit_imports" yaml:"implicit_imports" toml:"implicit_imports"`
	}
)

func newBaseScriptModel(b *buildconfig.Build) *BaseScriptModel {
	return &BaseScriptModel{
		ScriptTemplatesClassPath: slices.Clone(b.KotlinDSL.ScriptTemplatesClasspath),
		ImplicitImports:          slices.Clone(b.KotlinDSL.ImplicitImports),
		KotlinDSLClassPath:       slices.Clone(b.KotlinDSL.KotlinDSLClasspath),
	}
}

func newProjectScriptModel(path string, b *buildconfig.Build, p buildconfig.Project) *ProjectScriptModel {
	return &ProjectScriptModel{
		ProjectPath:     path,
		ClassPath:       slices.Concat(b.KotlinDSL.KotlinDSLClasspath, p.Classpath),
		SourcePath:      slices.Clone(p.SourcePath),
		ImplicitImports: slices.Clone(b.KotlinDSL.ImplicitImports),
	}
}

// ModelTypes returns the model types served by this package's builders.
func ModelTypes() []modeltype.ModelType {
	return []modeltype.ModelType{BaseScriptModelType, BuildScriptTemplateModelType, ProjectScriptModelType}
}
