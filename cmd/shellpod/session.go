// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/shellpod/shellpod/internal/config"
	"github.com/shellpod/shellpod/internal/container"
	"github.com/shellpod/shellpod/internal/dind"
	"github.com/shellpod/shellpod/internal/forward"
	"github.com/shellpod/shellpod/internal/issue"
	"github.com/shellpod/shellpod/internal/session"
)

// dryRunHelperName stands in for the nested docker helper in dry-run output.
const dryRunHelperName = dind.NamePrefix + "dry-run"

// dryRunRuntime satisfies forward.NestedRuntime without touching the engine.
type dryRunRuntime struct{}

func (dryRunRuntime) Name() string { return dryRunHelperName }

func (dryRunRuntime) Preflight(context.Context) error { return nil }

func (dryRunRuntime) Launch(context.Context) error { return nil }

// newRunCommand creates the `shellpod run` command.
func newRunCommand(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run -- COMMAND [ARGS...]",
		Short: "Run a command inside the container",
		Long: `Run a command inside the container instead of an interactive shell.

The command and its arguments are joined with spaces and run by the configured
shell after the init commands, so shell syntax is allowed:

  shellpod run -- 'make build && make test'`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return silenceHandled(cmd, app.runSession(cmd.Context(), flags, strings.Join(args, " ")))
		},
	}
}

// loadConfig loads the merged config honoring --config and reports the
// effective verbosity.
func (a *App) loadConfig(ctx context.Context, flags *globalFlags) (*config.Config, config.Sources, bool, error) {
	cfg, sources, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configFile})
	if err != nil {
		return nil, config.Sources{}, flags.verbose, err
	}
	return cfg, sources, flags.verbose || cfg.Verbose, nil
}

// runSession plans, forwards and runs one container session. An empty final
// command opens the configured shell.
func (a *App) runSession(ctx context.Context, flags *globalFlags, final string) error {
	cfg, _, verbose, err := a.loadConfig(ctx, flags)
	if err != nil {
		return a.failure(err, verbose)
	}
	logger := a.newLogger(verbose)

	host, err := a.Host()
	if err != nil {
		return a.failure(err, verbose)
	}
	spec, err := session.Plan(cfg, host)
	if err != nil {
		return a.failure(err, verbose)
	}

	if final == "" {
		final = cfg.Shell
	}
	inner, err := session.InnerCommand(cfg.Shell, cfg.Init, final)
	if err != nil {
		return a.failure(issue.NewErrorContext().
			WithOperation("build inner command").
			WithIssue(issue.InvalidInnerCommandId).
			WithSuggestion("Check the 'init' lines in shellpod.yaml and the command passed to run").
			Wrap(err).
			BuildError(), verbose)
	}

	engine, err := a.NewEngine(cfg.Engine)
	if err != nil {
		return a.failure(err, verbose)
	}

	var nested forward.NestedRuntime
	if flags.dryRun {
		nested = dryRunRuntime{}
	} else {
		if err := engine.Available(ctx); err != nil {
			return a.failure(issue.NewErrorContext().
				WithOperation("find container engine").
				WithResource(engine.Name()).
				WithIssue(issue.ContainerEngineNotFoundId).
				Wrap(err).
				BuildError(), verbose)
		}
		if err := session.EnsureImage(ctx, engine, cfg, session.ImageOptions{
			ProjectDir: host.WorkDir,
			Stdout:     a.stderr,
			Stderr:     a.stderr,
			Logger:     logger,
		}); err != nil {
			return a.failure(err, verbose)
		}
		if cfg.DinD {
			launcher := dind.New(engine,
				dind.WithImage(cfg.DinDImage),
				dind.WithWorkspace(host.WorkDir),
				dind.WithOutput(a.stderr, a.stderr),
				dind.WithLogger(logger),
			)
			defer func() {
				if err := launcher.Close(context.WithoutCancel(ctx)); err != nil {
					logger.Warn("failed to stop nested docker helper", "name", launcher.Name(), "error", err)
				}
			}()
			nested = launcher
		}
	}

	spec, err = session.Forward(log.WithContext(ctx, logger), spec, cfg, nested)
	if err != nil {
		return a.failure(err, verbose)
	}

	invoker := container.NewInvoker(a.invokerOptions(engine, logger)...)
	if flags.dryRun {
		args, err := invoker.Args(spec, inner)
		if err != nil {
			return a.failure(err, verbose)
		}
		renderDryRun(a.stdout, invoker.Binary(), args, cfg)
		return nil
	}

	code, err := invoker.Run(spec, inner)
	if err != nil {
		return a.failure(issue.NewErrorContext().
			WithOperation("start container session").
			WithResource(invoker.Binary()).
			WithIssue(issue.SessionLaunchFailedId).
			Wrap(err).
			BuildError(), verbose)
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}
