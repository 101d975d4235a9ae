// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/toolmodel/toolmodel/internal/engine"
	"github.com/toolmodel/toolmodel/internal/issue"
	"github.com/toolmodel/toolmodel/internal/modelenc"
	"github.com/toolmodel/toolmodel/internal/scriptmodels"
	"github.com/toolmodel/toolmodel/internal/toolmodel"
	"github.com/toolmodel/toolmodel/internal/watch"
	"github.com/toolmodel/toolmodel/pkg/modeltype"
)

// queryOptions are the flags of `toolmodel query`.
type queryOptions struct {
	project string
	format  string
	watch   bool
}

func newQueryCommand(app *App) *cobra.Command {
	var opts queryOptions
	cmd := &cobra.Command{
		Use:   "query <model-type>",
		Short: "Request a model from the build",
		Long: `Request a model from the build and print it.

Without --project the model is resolved in the build scope. With --project
the project scope is opened and consulted first; builders registered for the
whole build answer whatever the project scope cannot.

Exit codes: 2 no builder supports the model type, 3 the model is not
available yet, 4 computing the model failed, 5 the build was closed while
the request was in flight.

With --watch the model is served again, from a fresh build, every time the
build description file changes. Failures are reported and watching goes on
until interrupted.`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			types := scriptmodels.ModelTypes()
			out := make([]string, len(types))
			for i, t := range types {
				out[i] = t.String()
			}
			return out, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, app, modeltype.ModelType(args[0]), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.project, "project", "p", "", "project path, e.g. :app (default: build scope)")
	cmd.Flags().StringVarP(&opts.format, "output", "o", "", "output format: json, yaml or toml (default from output.format)")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "serve the model again each time the build description changes")
	return cmd
}

func runQuery(cmd *cobra.Command, app *App, mt modeltype.ModelType, opts queryOptions) error {
	ctx := cmd.Context()
	project := toolmodel.ProjectPath(opts.project)

	sess, err := app.newSession(ctx)
	if err != nil {
		return reportError(cmd, app, err)
	}

	format := sess.cfg.Output.Format
	if opts.format != "" {
		format = modelenc.Format(opts.format)
	}
	if err := format.Validate(); err != nil {
		return reportError(cmd, app, issue.NewErrorContext().
			WithOperation("select output format").
			WithSuggestion("Use one of: json, yaml, toml").
			Wrap(err).
			Build())
	}

	if err := checkDescriptor(sess.source); err != nil {
		return reportError(cmd, app, err)
	}

	req := engine.Request{ModelType: mt, ProjectPath: project}
	if !opts.watch {
		if err := serveModel(cmd, sess, req, format); err != nil {
			return reportError(cmd, app, err)
		}
		return nil
	}

	// In watch mode failures are reported and serving continues.
	if err := serveModel(cmd, sess, req, format); err != nil {
		_ = reportError(cmd, app, err)
	}
	w, err := watch.New(watch.Options{
		Dir:      filepath.Dir(sess.source),
		Patterns: []string{filepath.Base(sess.source)},
		Logger:   sess.logger,
		OnChange: func(context.Context, []string) error {
			fmt.Fprintln(cmd.ErrOrStderr(), SubtitleStyle.Render("build description changed, serving "+mt.String()))
			if err := serveModel(cmd, sess, req, format); err != nil {
				_ = reportError(cmd, app, err)
			}
			return nil
		},
	})
	if err != nil {
		return reportError(cmd, app, err)
	}
	if err := w.Run(ctx); err != nil {
		return reportError(cmd, app, err)
	}
	return nil
}

// serveModel opens a build, serves req and writes the model. Each call reads
// the build description afresh.
func serveModel(cmd *cobra.Command, sess *session, req engine.Request, format modelenc.Format) error {
	ctx := cmd.Context()
	build, err := sess.engine.OpenBuild(ctx)
	if err != nil {
		return issue.FromModelError(err, req.ModelType, req.ProjectPath)
	}
	defer func() {
		if closeErr := build.Close(); closeErr != nil {
			sess.logger.Warn("closing build failed", "error", closeErr)
		}
	}()

	model, err := build.RequestModel(ctx, req)
	if err != nil {
		return issue.FromModelError(err, req.ModelType, req.ProjectPath)
	}
	if err := modelenc.Encode(cmd.OutOrStdout(), format, model); err != nil {
		return fmt.Errorf("write %s model: %w", format, err)
	}
	return nil
}

// checkDescriptor fails early, with a pointer to the catalog page, when the
// build description does not exist.
func checkDescriptor(path string) error {
	info, err := os.Stat(path)
	if err == nil && !info.IsDir() {
		return nil
	}
	if err == nil {
		err = fmt.Errorf("%s is a directory", path)
	}
	return issue.NewErrorContext().
		WithOperation("locate build description").
		WithResource(path).
		WithIssue(issue.BuildDescriptionInvalidId).
		WithSuggestion("Run toolmodel from the directory holding build.cue").
		WithSuggestion("Point at the file with --build-file or build.descriptor").
		Wrap(err).
		Build()
}
