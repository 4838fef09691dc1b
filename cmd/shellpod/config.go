// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shellpod/shellpod/internal/config"
)

// newConfigCommand creates the `shellpod config` command tree.
func newConfigCommand(app *App, flags *globalFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect shellpod configuration",
		Long: `Inspect shellpod configuration.

Configuration is merged from, in increasing priority:
  - the user file $XDG_CONFIG_HOME/shellpod/config.yaml
  - the project file ./shellpod.yaml (or --config)
  - SHELLPOD_* environment variables (SHELLPOD_IMAGE, SHELLPOD_BUILD_CONTEXT, ...)`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var format string
	showCmd := &cobra.Command{
		Use:          "show",
		Short:        "Show the resolved configuration",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return silenceHandled(cmd, app.showConfig(cmd.Context(), flags, format))
		},
	}
	showCmd.Flags().StringVar(&format, "format", "yaml", "output format (yaml, toml)")
	cfgCmd.AddCommand(showCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:          "path",
		Short:        "Show the configuration files in use",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return silenceHandled(cmd, app.showConfigPath(cmd.Context(), flags))
		},
	})

	return cfgCmd
}

func (a *App) showConfig(ctx context.Context, flags *globalFlags, format string) error {
	cfg, sources, verbose, err := a.loadConfig(ctx, flags)
	if err != nil {
		return a.failure(err, verbose)
	}

	var out []byte
	switch format {
	case "yaml":
		out, err = cfg.YAML()
	case "toml":
		out, err = cfg.TOML()
	default:
		return fmt.Errorf("unknown format %q (valid: yaml, toml)", format)
	}
	if err != nil {
		return a.failure(err, verbose)
	}

	fmt.Fprintln(a.stderr, TitleStyle.Render("Current Configuration"))
	for _, file := range sources.Files() {
		fmt.Fprintf(a.stderr, "%s: %s\n", CmdStyle.Render("Config file"), file)
	}
	if len(sources.Files()) == 0 {
		fmt.Fprintf(a.stderr, "%s: %s\n", CmdStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	if _, err := cfg.ImageRef(); err != nil {
		fmt.Fprintln(a.stderr, WarningStyle.Render("Warning: no image configured; sessions will fail until 'image' is set"))
	}

	_, err = a.stdout.Write(out)
	return err
}

func (a *App) showConfigPath(ctx context.Context, flags *globalFlags) error {
	_, sources, verbose, err := a.loadConfig(ctx, flags)
	if err != nil {
		return a.failure(err, verbose)
	}

	fmt.Fprintf(a.stdout, "%s %s\n", VerboseHighlightStyle.Render("User config:"), filepath.Join(config.UserConfigDir(), config.UserFileName))
	files := sources.Files()
	if len(files) == 0 {
		fmt.Fprintf(a.stdout, "%s %s\n", VerboseHighlightStyle.Render("In use:"), SubtitleStyle.Render("(using defaults)"))
		return nil
	}
	for _, file := range files {
		fmt.Fprintf(a.stdout, "%s %s\n", VerboseHighlightStyle.Render("In use:"), file)
	}
	return nil
}
