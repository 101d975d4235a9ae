// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toolmodel/toolmodel/internal/config"
)

// newConfigCommand creates the `toolmodel config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect toolmodel configuration",
		Long: `Inspect toolmodel configuration.

Configuration is read from config.cue in:
  - Linux: ~/.config/toolmodel/
  - macOS: ~/Library/Application Support/toolmodel/
  - Windows: %APPDATA%\toolmodel\
or from the current directory. TOOLMODEL_* environment variables override it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd, app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.ResolvePath(config.LoadOptions{ConfigFilePath: app.flags.configPath})
			if err != nil {
				return reportError(cmd, app, err)
			}
			if path == "" {
				dir, dirErr := config.ConfigDir()
				if dirErr != nil {
					return reportError(cmd, app, dirErr)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", dir, SubtitleStyle.Render("(no config.cue, using defaults)"))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return reportError(cmd, app, err)
			}
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(cmd *cobra.Command, app *App) error {
	cfg, err := app.loadConfig(cmd.Context())
	if err != nil {
		return reportError(cmd, app, err)
	}

	out := cmd.OutOrStdout()
	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(out, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(out)

	path, _ := config.ResolvePath(config.LoadOptions{ConfigFilePath: app.flags.configPath})
	if path != "" {
		fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(out)

	rows := []struct{ key, value string }{
		{"log_level", cfg.LogLevel.String()},
		{"log_format", cfg.LogFormat},
		{"registry.duplicate_policy", string(cfg.Registry.DuplicatePolicy)},
		{"requests.wait_for_ready", fmt.Sprint(cfg.Requests.WaitForReady)},
		{"requests.ready_timeout", cfg.Requests.ReadyTimeout.String()},
		{"build.descriptor", cfg.Build.Descriptor},
		{"output.format", cfg.Output.Format.String()},
	}
	for _, r := range rows {
		fmt.Fprintf(out, "%s: %s\n", keyStyle.Render(r.key), valueStyle.Render(r.value))
	}
	return nil
}
