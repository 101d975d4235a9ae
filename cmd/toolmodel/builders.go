// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/toolmodel/toolmodel/internal/issue"
	"github.com/toolmodel/toolmodel/internal/scriptmodels"
	"github.com/toolmodel/toolmodel/internal/toolmodel"
	"github.com/toolmodel/toolmodel/pkg/modeltype"
)

func newBuildersCommand(app *App) *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "builders",
		Short: "List registered model builders in resolution order",
		Long: `List the builders a request would consult, in the order it consults them.

The first builder that can build a model type serves it. With --project the
project scope's builders are listed before the build scope's.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuilders(cmd, app, toolmodel.ProjectPath(project))
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "list the resolution order of a project scope")
	return cmd
}

func runBuilders(cmd *cobra.Command, app *App, project toolmodel.ProjectPath) error {
	ctx := cmd.Context()
	sess, err := app.newSession(ctx)
	if err != nil {
		return reportError(cmd, app, err)
	}

	build, err := sess.engine.OpenBuild(ctx)
	if err != nil {
		return reportError(cmd, app, listingError(err, project))
	}
	defer func() { _ = build.Close() }()

	builders, err := build.Builders(ctx, project)
	if err != nil {
		return reportError(cmd, app, listingError(err, project))
	}

	out := cmd.OutOrStdout()
	title := "Builders (build scope)"
	if project != "" {
		title = fmt.Sprintf("Builders (project %s)", project)
	}
	fmt.Fprintln(out, TitleStyle.Render(title))
	fmt.Fprintln(out)

	known := scriptmodels.ModelTypes()
	for i, b := range builders {
		line := indexStyle.Render(fmt.Sprintf("%d.", i+1)) + " " + CmdStyle.Render(toolmodel.BuilderName(b))
		if replacement, ok := toolmodel.DeprecatedBy(b); ok {
			line += " " + WarningStyle.Render("(deprecated, use "+replacement.String()+")")
		}
		fmt.Fprintln(out, line)
		if types := buildable(b, known); len(types) > 0 {
			fmt.Fprintln(out, "     "+SubtitleStyle.Render(strings.Join(types, ", ")))
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, TitleStyle.Render("Resolution"))
	writeResolution(out, builders, known)
	return nil
}

// listingError classifies a scope failure like a model request failure, but
// names the listing as the failed operation.
func listingError(err error, project toolmodel.ProjectPath) error {
	ae := issue.FromModelError(err, "", project)
	ae.Operation = "list builders"
	ae.Resource = project.String()
	return ae
}

// buildable lists the known model types b can build.
func buildable(b toolmodel.Builder, known []modeltype.ModelType) []string {
	var out []string
	for _, mt := range known {
		if b.CanBuild(mt) {
			out = append(out, mt.String())
		}
	}
	return out
}

// writeResolution prints which builder serves each known model type, using
// the same first-match rule as the registry.
func writeResolution(w io.Writer, builders []toolmodel.Builder, known []modeltype.ModelType) {
	for _, mt := range known {
		served := SubtitleStyle.Render("(unsupported)")
		for _, b := range builders {
			if b.CanBuild(mt) {
				served = SuccessStyle.Render(toolmodel.BuilderName(b))
				break
			}
		}
		fmt.Fprintf(w, "  %s -> %s\n", CmdStyle.Render(mt.String()), served)
	}
}
