// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/shellpod/shellpod/internal/config"
	"github.com/shellpod/shellpod/internal/container"
	"github.com/shellpod/shellpod/internal/session"
)

type (
	// App wires CLI services and shared dependencies. All Cobra handlers
	// receive an App and reach the host through it.
	App struct {
		Config        ConfigLoader
		NewEngine     EngineFactory
		InvokeCommand container.InvokeCommandFunc
		Host          HostFunc
		stdin         io.Reader
		stdout        io.Writer
		stderr        io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config        ConfigLoader
		NewEngine     EngineFactory
		InvokeCommand container.InvokeCommandFunc
		Host          HostFunc
		Stdin         io.Reader
		Stdout        io.Writer
		Stderr        io.Writer
	}

	// ConfigLoader loads the merged configuration.
	ConfigLoader interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, config.Sources, error)
	}

	// ConfigLoaderFunc adapts a function to ConfigLoader.
	ConfigLoaderFunc func(ctx context.Context, opts config.LoadOptions) (*config.Config, config.Sources, error)

	// EngineFactory creates the engine wrapper for the configured engine type.
	EngineFactory func(kind container.EngineType) (*container.Engine, error)

	// HostFunc describes the invoking user and workspace.
	HostFunc func() (session.Host, error)
)

// Load implements ConfigLoader.
func (f ConfigLoaderFunc) Load(ctx context.Context, opts config.LoadOptions) (*config.Config, config.Sources, error) {
	return f(ctx, opts)
}

// NewApp creates the CLI composition root.
func NewApp(deps Dependencies) *App {
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = ConfigLoaderFunc(config.Load)
	}
	if deps.NewEngine == nil {
		deps.NewEngine = func(kind container.EngineType) (*container.Engine, error) {
			return container.NewEngine(kind)
		}
	}
	if deps.Host == nil {
		deps.Host = session.CurrentHost
	}

	return &App{
		Config:        deps.Config,
		NewEngine:     deps.NewEngine,
		InvokeCommand: deps.InvokeCommand,
		Host:          deps.Host,
		stdin:         deps.Stdin,
		stdout:        deps.Stdout,
		stderr:        deps.Stderr,
	}
}

// newLogger returns the CLI logger: debug output when verbose, warnings
// and errors otherwise.
func (a *App) newLogger(verbose bool) *log.Logger {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix: config.AppName,
		Level:  level,
	})
}

// invokerOptions returns the options shared by every interactive invoker.
func (a *App) invokerOptions(engine *container.Engine, logger *log.Logger) []container.InvokerOption {
	opts := []container.InvokerOption{
		container.WithBinary(engine.BinaryPath()),
		container.WithStreams(a.stdin, a.stdout, a.stderr),
		container.WithLogger(logger),
	}
	if a.InvokeCommand != nil {
		opts = append(opts, container.WithInvokeCommand(a.InvokeCommand))
	}
	return opts
}
