// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"

	"github.com/toolmodel/toolmodel/internal/toolmodel"
	"github.com/toolmodel/toolmodel/pkg/modeltype"
)

// FromModelError wraps a model request failure in an ActionableError with a
// catalog issue and suggestions matching its kind. The cause is kept intact
// so errors.Is still sees the sentinel. It returns nil for a nil err.
func FromModelError(err error, modelType modeltype.ModelType, projectPath toolmodel.ProjectPath) *ActionableError {
	if err == nil {
		return nil
	}

	resource := string(modelType)
	if projectPath != "" {
		resource += " in project " + string(projectPath)
	}
	ctx := NewErrorContext().WithOperation("request model").WithResource(resource).Wrap(err)

	switch {
	case errors.Is(err, toolmodel.ErrUnknownModelType):
		ctx.WithIssue(ModelNotSupportedId).
			WithSuggestion("The model is not supported by any registered builder").
			WithSuggestion("Run 'toolmodel builders' to see what can be built")
		if projectPath == "" {
			ctx.WithSuggestion("Project models need '--project <path>'")
		}
	case errors.Is(err, toolmodel.ErrModelUnavailable):
		ctx.WithIssue(ModelUnavailableId).
			WithSuggestion("The model may become available later; retry after the build progresses")
	case errors.Is(err, toolmodel.ErrModelComputation):
		ctx.WithIssue(ModelComputationFailedId).
			WithSuggestion("Re-run with --verbose to see the full cause chain")
	case errors.Is(err, toolmodel.ErrRegistrationFailed):
		ctx.WithOperation("initialize scope").
			WithIssue(RegistrationFailedId).
			WithSuggestion("Check registry.duplicate_policy and the registered modules ('toolmodel modules')")
	case errors.Is(err, toolmodel.ErrScopeNotReady):
		ctx.WithIssue(ScopeNotReadyId).
			WithSuggestion("Set requests.wait_for_ready to wait for registration to finish")
	case errors.Is(err, toolmodel.ErrScopeTornDown):
		ctx.WithIssue(ScopeTornDownId).
			WithSuggestion("Retry the request against a new build")
	case errors.Is(err, modeltype.ErrInvalidModelType):
		ctx.WithSuggestion("Model types are non-empty and contain no whitespace, e.g. kotlin-dsl.base-script-model")
	}
	return ctx.Build()
}
