// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/toolmodel/toolmodel/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand builds the command tree around app.
func newRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "toolmodel",
		Short: "Serve build tooling models from a build description",
		Long: TitleStyle.Render("toolmodel") + SubtitleStyle.Render(" - Serve build tooling models from a build description") + `

toolmodel answers the structured model requests IDEs and tooling clients
send to a build: script compilation classpaths, implicit imports and
per-project source paths. Builders are registered per build and per
project, and each request is served by the first builder that can build it.

The build is described by a CUE file (build.cue by default).

` + SubtitleStyle.Render("Examples:") + `
  toolmodel query kotlin-dsl.base-script-model
  toolmodel query kotlin-dsl.project-script-model --project :app -o yaml
  toolmodel builders --project :app
  toolmodel modules
  toolmodel config show`,
		SilenceUsage: true,
	}
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&app.flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/toolmodel/config.cue)")
	pf.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output and debug logging")
	pf.StringVar(&app.flags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	pf.StringVarP(&app.flags.buildFile, "build-file", "f", "", "build description file (overrides build.descriptor)")

	rootCmd.AddCommand(newQueryCommand(app))
	rootCmd.AddCommand(newBuildersCommand(app))
	rootCmd.AddCommand(newModulesCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))
	rootCmd.AddCommand(newIssuesCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the command tree and runs it.
// This is called by main.main().
func Execute() {
	rootCmd := newRootCommand(NewApp(Dependencies{}))

	// fang overrides rootCmd.Version, so pass it through WithVersion.
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitGeneric)
	}
}

// handleError prints errors cobra and fang surface, such as unknown flags.
// Errors wrapped in ExitError were already rendered by reportError.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// reportError renders err on stderr and returns the ExitError the command
// should fail with. Verbose mode appends the catalog page of the error's issue.
func reportError(cmd *cobra.Command, app *App, err error) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	stderr := cmd.ErrOrStderr()
	fmt.Fprintln(stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, app.flags.verbose))

	var ae *issue.ActionableError
	if app.flags.verbose && errors.As(err, &ae) && ae.Issue != 0 {
		renderIssue(stderr, ae.Issue)
	}
	return &ExitError{Code: exitCodeFor(err), Err: err}
}

// renderIssue prints the catalog page for id, if there is one.
func renderIssue(w io.Writer, id issue.Id) {
	page := issue.Get(id)
	if page == nil {
		return
	}
	rendered, err := page.Render("dark")
	if err != nil {
		return
	}
	fmt.Fprint(w, rendered)
}
