// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/toolmodel/toolmodel/internal/issue"
)

func newIssuesCommand(app *App) *cobra.Command {
	var style string
	cmd := &cobra.Command{
		Use:   "issues [id]",
		Short: "Show troubleshooting pages for toolmodel errors",
		Long: `Show troubleshooting pages for toolmodel errors.

Without an id every page is shown. Failing commands print the id of their
page in verbose mode.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pages := issue.Values()
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || issue.Get(issue.Id(n)) == nil {
					return reportError(cmd, app, fmt.Errorf("unknown issue id %q (valid: 1-%d)", args[0], len(pages)))
				}
				pages = []*issue.Issue{issue.Get(issue.Id(n))}
			}
			for _, p := range pages {
				rendered, err := p.Render(style)
				if err != nil {
					return reportError(cmd, app, fmt.Errorf("render issue %d: %w", p.Id(), err))
				}
				fmt.Fprint(cmd.OutOrStdout(), rendered)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&style, "style", "dark", "glamour style: dark, light, notty")
	return cmd
}
