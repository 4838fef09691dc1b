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
	"golang.org/x/term"

	"github.com/shellpod/shellpod/internal/config"
	"github.com/shellpod/shellpod/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	configFile string
	verbose    bool
	dryRun     bool
}

// NewRootCommand builds the command tree around app. Running the root
// command without a subcommand opens the interactive shell.
func NewRootCommand(app *App) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "shellpod",
		Short: "Run a shell inside your project's container image",
		Long: TitleStyle.Render("shellpod") + SubtitleStyle.Render(" - a shell in your project's container") + `

shellpod starts an interactive shell in the container image configured in
shellpod.yaml, with the working directory mounted and, on request, your SSH
agent, tmux socket and a nested Docker daemon forwarded into it.

` + SubtitleStyle.Render("Examples:") + `
  shellpod                  Open a shell in the container
  shellpod run -- make test Run one command in the container
  shellpod pull             Pull (or build) the configured image
  shellpod config show      Show the resolved configuration`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return silenceHandled(cmd, app.runSession(cmd.Context(), flags, ""))
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "project config file (default is ./"+config.ProjectFileName+")")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "print the container engine command instead of running it")

	rootCmd.AddCommand(newRunCommand(app, flags))
	rootCmd.AddCommand(newPullCommand(app, flags))
	rootCmd.AddCommand(newConfigCommand(app, flags))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process with the command's exit code.
// It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// silenceHandled keeps Cobra from printing errors the command already
// reported, including plain child exit statuses.
func silenceHandled(cmd *cobra.Command, err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		cmd.SilenceErrors = true
	}
	return err
}

// failure renders err for the user and returns it as an exit status 1.
// Errors linked to a known issue also get the issue's help page.
func (a *App) failure(err error, verbose bool) error {
	fmt.Fprintln(a.stderr, ErrorStyle.Render("Error:")+" "+formatErrorForDisplay(err, verbose))
	if iss := issue.IssueOf(err); iss != nil {
		if page, renderErr := iss.Render(glamourStyle(a.stderr)); renderErr == nil {
			fmt.Fprint(a.stderr, page)
		}
	}
	return &ExitError{Code: 1, Err: err}
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

// glamourStyle picks a colored markdown style for terminals and a plain one
// for pipes and files.
func glamourStyle(w io.Writer) string {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "dark"
	}
	return "notty"
}
