// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shellpod/shellpod/internal/issue"
	"github.com/shellpod/shellpod/internal/session"
)

// newPullCommand creates the `shellpod pull` command.
func newPullCommand(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:          "pull",
		Short:        "Pull the configured image, or build it when a build section is set",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return silenceHandled(cmd, app.pull(cmd.Context(), flags))
		},
	}
}

func (a *App) pull(ctx context.Context, flags *globalFlags) error {
	cfg, _, verbose, err := a.loadConfig(ctx, flags)
	if err != nil {
		return a.failure(err, verbose)
	}
	image, err := cfg.ImageRef()
	if err != nil {
		return a.failure(issue.NewErrorContext().
			WithOperation("pull image").
			WithIssue(issue.MissingImageId).
			WithSuggestion("Set 'image' in shellpod.yaml").
			Wrap(err).
			BuildError(), verbose)
	}

	engine, err := a.NewEngine(cfg.Engine)
	if err != nil {
		return a.failure(err, verbose)
	}

	action := "pull"
	if cfg.Build.Enabled() {
		action = "build"
	}
	if flags.dryRun {
		fmt.Fprintf(a.stdout, "%s %s %s\n", SubtitleStyle.Render("would "+action), CmdStyle.Render(image), SubtitleStyle.Render("with "+engine.Name()))
		return nil
	}

	if err := engine.Available(ctx); err != nil {
		return a.failure(issue.NewErrorContext().
			WithOperation("find container engine").
			WithResource(engine.Name()).
			WithIssue(issue.ContainerEngineNotFoundId).
			Wrap(err).
			BuildError(), verbose)
	}

	host, err := a.Host()
	if err != nil {
		return a.failure(err, verbose)
	}
	if err := session.EnsureImage(ctx, engine, cfg, session.ImageOptions{
		ProjectDir: host.WorkDir,
		Always:     true,
		Stdout:     a.stdout,
		Stderr:     a.stderr,
		Logger:     a.newLogger(verbose),
	}); err != nil {
		return a.failure(err, verbose)
	}

	fmt.Fprintf(a.stdout, "%s %s\n", SuccessStyle.Render("✓"), image)
	return nil
}
