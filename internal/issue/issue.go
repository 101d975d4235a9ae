// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

// Id identifies a catalog issue. The zero value means "no issue page".
type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	BuildDescriptionInvalidId
	ModelNotSupportedId
	ModelUnavailableId
	ModelComputationFailedId
	RegistrationFailedId
	ScopeNotReadyId
	ScopeTornDownId
)

type (
	MarkdownMsg string

	HttpLink string

	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render renders the issue page for a terminal using the glamour style at
// stylePath ("dark", "light", "notty" or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be read or does not match the schema.

## Things you can try:
- Print the effective configuration:
~~~
$ toolmodel config show
~~~

- Point at a specific file with ` + "`--config`" + `
- Override single keys through the environment, for example:
~~~
$ TOOLMODEL_LOG_LEVEL=debug toolmodel builders
~~~`,
	}

	buildDescriptionInvalidIssue = &Issue{
		id: BuildDescriptionInvalidId,
		mdMsg: `
# Invalid build description!

The build description (build.cue) failed schema validation.

## Example build.cue:
~~~cue
kotlin_dsl: {
	script_templates_classpath: ["lib/templates.jar"]
	implicit_imports: ["org.example.dsl.*"]
	kotlin_dsl_classpath: ["lib/dsl.jar"]
}
projects: {
	":": {classpath: ["build/root.jar"]}
	":app": {state: "pending"}
}
~~~

## Things you can try:
- Project keys must be colon-separated paths starting with ":"
- A project state is either "configured" or "pending"`,
	}

	modelNotSupportedIssue = &Issue{
		id: ModelNotSupportedId,
		mdMsg: `
# Model not supported!

No registered builder in the requested scope can build this model type.

## Things you can try:
- List the builders in resolution order:
~~~
$ toolmodel builders
$ toolmodel builders --project :app
~~~

- Project models are only served in a project scope; pass ` + "`--project`" + `
- Check the model type for typos`,
	}

	modelUnavailableIssue = &Issue{
		id: ModelUnavailableId,
		mdMsg: `
# Model unavailable!

A builder matched the request but its preconditions are not met yet.

## Things you can try:
- Retry once the build has progressed, for example after the project finished configuring
- Make sure the project is declared in build.cue`,
	}

	modelComputationFailedIssue = &Issue{
		id: ModelComputationFailedId,
		mdMsg: `
# Model computation failed!

The builder delegated to the build configuration and that computation failed.
The request is not retried automatically.

## Things you can try:
- Re-run with ` + "`--verbose`" + ` to see the full cause chain
- Fix the reported problem in the build description and retry`,
	}

	registrationFailedIssue = &Issue{
		id: RegistrationFailedId,
		mdMsg: `
# Builder registration failed!

A registration action failed while the scope was initializing, so the scope
never became ready and no models can be served from it.

## Things you can try:
- Check the duplicate policy (` + "`registry.duplicate_policy`" + `); "reject" fails on repeated builder names
- List the service modules:
~~~
$ toolmodel modules
~~~`,
	}

	scopeNotReadyIssue = &Issue{
		id: ScopeNotReadyId,
		mdMsg: `
# Scope not ready!

The request arrived while the scope was still registering builders.

## Things you can try:
- Enable waiting in your configuration:
~~~cue
requests: {
	wait_for_ready: true
	ready_timeout: "10s"
}
~~~`,
	}

	scopeTornDownIssue = &Issue{
		id: ScopeTornDownId,
		mdMsg: `
# Scope torn down!

The build or project scope ended while the request was being served.
The result was discarded.

## Things you can try:
- Retry the request against a new build`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		buildDescriptionInvalidIssue.Id(): buildDescriptionInvalidIssue,
		modelNotSupportedIssue.Id():       modelNotSupportedIssue,
		modelUnavailableIssue.Id():        modelUnavailableIssue,
		modelComputationFailedIssue.Id():  modelComputationFailedIssue,
		registrationFailedIssue.Id():      registrationFailedIssue,
		scopeNotReadyIssue.Id():           scopeNotReadyIssue,
		scopeTornDownIssue.Id():           scopeTornDownIssue,
	}
)

// Values returns every catalog issue ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

// Get returns the issue for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
