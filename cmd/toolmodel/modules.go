// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toolmodel/toolmodel/internal/services"
)

func newModulesCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List service modules and their registration actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			composer, err := services.NewComposer(app.Modules...)
			if err != nil {
				return reportError(cmd, app, err)
			}
			descriptions, err := composer.Describe()
			if err != nil {
				return reportError(cmd, app, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, TitleStyle.Render("Service modules"))
			if len(descriptions) == 0 {
				fmt.Fprintln(out, SubtitleStyle.Render("  (none)"))
				return nil
			}
			for _, d := range descriptions {
				fmt.Fprintln(out)
				fmt.Fprintln(out, CmdStyle.Render(d.Name))
				for _, kind := range d.Kinds() {
					for _, action := range d.Actions[kind] {
						fmt.Fprintf(out, "  %s %s\n", SubtitleStyle.Render(kind.String()+":"), action)
					}
				}
			}
			return nil
		},
	}
}
