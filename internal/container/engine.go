// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	// EngineTypeDocker selects the Docker CLI.
	EngineTypeDocker EngineType = "docker"
	// EngineTypePodman selects the Podman CLI.
	EngineTypePodman EngineType = "podman"
)

var (
	// ErrInvalidEngineType is the sentinel error wrapped by InvalidEngineTypeError.
	ErrInvalidEngineType = errors.New("invalid container engine type")

	// ErrEngineNotAvailable is the sentinel error wrapped by EngineNotAvailableError.
	ErrEngineNotAvailable = errors.New("container engine not available")
)

type (
	// EngineType identifies the container engine CLI.
	EngineType string

	// InvalidEngineTypeError is returned when an EngineType is not recognized.
	InvalidEngineTypeError struct {
		Value EngineType
	}

	// EngineNotAvailableError is returned when the engine binary is missing or
	// its daemon does not answer.
	EngineNotAvailableError struct {
		Engine EngineType
		Reason string
	}

	// ExecCommandFunc is a function that creates an exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// EngineOption configures an Engine.
	EngineOption func(*Engine)

	// Engine runs the supporting (non-interactive) commands of a container
	// engine CLI: availability checks, image management and helper containers.
	Engine struct {
		kind        EngineType
		binaryPath  string
		execCommand ExecCommandFunc
		lookPath    func(file string) (string, error)
	}

	// BuildOptions contains options for building an image.
	BuildOptions struct {
		// ContextDir is the build context directory
		ContextDir string
		// Dockerfile is the path to the Dockerfile (relative to ContextDir)
		Dockerfile string
		// Tag is the image tag
		Tag string
		// Stdout is where to write build output
		Stdout io.Writer
		// Stderr is where to write build errors
		Stderr io.Writer
	}

	// DetachedOptions describes a background helper container.
	DetachedOptions struct {
		Name       string
		Image      string
		Privileged bool
		Remove     bool
		Env        []EnvVar
		Mounts     []Mount
	}
)

// String returns the string representation of the EngineType.
func (t EngineType) String() string { return string(t) }

// Validate returns an error if the EngineType is not one of the defined engines.
func (t EngineType) Validate() error {
	switch t {
	case EngineTypeDocker, EngineTypePodman:
		return nil
	default:
		return &InvalidEngineTypeError{Value: t}
	}
}

// Error implements the error interface.
func (e *InvalidEngineTypeError) Error() string {
	return fmt.Sprintf("invalid container engine %q (valid: docker, podman)", e.Value)
}

// Unwrap returns ErrInvalidEngineType for errors.Is() compatibility.
func (e *InvalidEngineTypeError) Unwrap() error { return ErrInvalidEngineType }

// Error implements the error interface.
func (e *EngineNotAvailableError) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// Unwrap returns ErrEngineNotAvailable for errors.Is() compatibility.
func (e *EngineNotAvailableError) Unwrap() error { return ErrEngineNotAvailable }

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) EngineOption {
	return func(e *Engine) {
		e.execCommand = fn
	}
}

// WithLookPath sets the binary resolver (exec.LookPath by default).
func WithLookPath(fn func(file string) (string, error)) EngineOption {
	return func(e *Engine) {
		e.lookPath = fn
	}
}

// NewEngine creates an engine wrapper for the given engine type. The binary is
// resolved on PATH; an unresolved binary is reported by Available.
func NewEngine(kind EngineType, opts ...EngineOption) (*Engine, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		kind:        kind,
		execCommand: exec.CommandContext,
		lookPath:    exec.LookPath,
	}
	for _, opt := range opts {
		opt(e)
	}
	if path, err := e.lookPath(string(kind)); err == nil {
		e.binaryPath = path
	}
	return e, nil
}

// Name returns the engine name (docker or podman).
func (e *Engine) Name() string {
	return string(e.kind)
}

// Type returns the engine type.
func (e *Engine) Type() EngineType {
	return e.kind
}

// BinaryPath returns the resolved engine binary, or the bare engine name when
// it could not be resolved on PATH.
func (e *Engine) BinaryPath() string {
	if e.binaryPath == "" {
		return string(e.kind)
	}
	return e.binaryPath
}

// Available checks that the binary exists and the engine answers.
func (e *Engine) Available(ctx context.Context) error {
	if e.binaryPath == "" {
		return &EngineNotAvailableError{Engine: e.kind, Reason: e.Name() + " is not installed or not on PATH"}
	}
	if _, err := e.Version(ctx); err != nil {
		return &EngineNotAvailableError{Engine: e.kind, Reason: err.Error()}
	}
	return nil
}

// Version returns the engine server version.
func (e *Engine) Version(ctx context.Context) (string, error) {
	out, err := e.RunCommandWithOutput(ctx, "version", "--format", "{{.Server.Version}}")
	if err != nil {
		return "", fmt.Errorf("failed to get %s version: %w", e.kind, err)
	}
	return strings.TrimSpace(out), nil
}

// ImageExists checks if an image is present locally.
func (e *Engine) ImageExists(ctx context.Context, image string) bool {
	return e.RunCommandStatus(ctx, "image", "inspect", image) == nil
}

// Pull pulls an image, streaming progress to the given writers.
func (e *Engine) Pull(ctx context.Context, image string, stdout, stderr io.Writer) error {
	cmd := e.CreateCommand(ctx, "pull", image)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", image, err)
	}
	return nil
}

// PullWithRetry pulls an image, retrying according to policy while the
// failure looks transient. The engine's error output is attached to the
// returned error.
func (e *Engine) PullWithRetry(ctx context.Context, image string, policy RetryPolicy, stdout, stderr io.Writer) error {
	return RetryWithBackoff(ctx, policy, func(int) (bool, error) {
		var errOut bytes.Buffer
		err := e.Pull(ctx, image, stdout, io.MultiWriter(stderr, &errOut))
		if err == nil {
			return false, nil
		}
		if msg := strings.TrimSpace(errOut.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return IsTransientError(err), err
	})
}

// Build builds an image from a Dockerfile.
func (e *Engine) Build(ctx context.Context, opts BuildOptions) error {
	cmd := e.CreateCommand(ctx, BuildArgs(opts)...)
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to build image %s: %w", opts.Tag, err)
	}
	return nil
}

// RunDetached starts a background container and returns its ID.
func (e *Engine) RunDetached(ctx context.Context, opts DetachedOptions) (string, error) {
	out, err := e.RunCommandCombined(ctx, DetachedArgs(opts)...)
	if err != nil {
		return "", fmt.Errorf("failed to start container %s: %w: %s", opts.Name, err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// Exec runs a non-interactive command in a running container.
func (e *Engine) Exec(ctx context.Context, name string, command ...string) error {
	args := append([]string{"exec", name}, command...)
	return e.RunCommandStatus(ctx, args...)
}

// Kill stops a running container.
func (e *Engine) Kill(ctx context.Context, name string) error {
	return e.RunCommandStatus(ctx, "kill", name)
}

// --- Argument Builders ---

// BuildArgs constructs arguments for a container build command.
//
// Generated command: <binary> build [-f dockerfile] [-t tag] <context>
func BuildArgs(opts BuildOptions) []string {
	args := []string{"build"}

	if opts.Dockerfile != "" {
		// Resolve Dockerfile path relative to context directory.
		dockerfilePath := opts.Dockerfile
		if !filepath.IsAbs(dockerfilePath) && opts.ContextDir != "" {
			dockerfilePath = filepath.Join(opts.ContextDir, dockerfilePath)
		}
		args = append(args, "-f", dockerfilePath)
	}

	if opts.Tag != "" {
		args = append(args, "-t", opts.Tag)
	}

	contextDir := opts.ContextDir
	if contextDir == "" {
		contextDir = "."
	}
	return append(args, contextDir)
}

// DetachedArgs constructs arguments for a detached helper container.
//
// Generated command: <binary> run [--rm] -d [--privileged] --name <name> {-e N=V}* {-v H:C}* <image>
func DetachedArgs(opts DetachedOptions) []string {
	args := []string{"run"}

	if opts.Remove {
		args = append(args, "--rm")
	}

	args = append(args, "-d")

	if opts.Privileged {
		args = append(args, "--privileged")
	}

	if opts.Name != "" {
		args = append(args, "--name", opts.Name)
	}

	for _, env := range opts.Env {
		args = append(args, "-e", env.String())
	}

	for _, m := range opts.Mounts {
		args = append(args, "-v", m.String())
	}

	return append(args, opts.Image)
}

// --- Command Execution ---

// RunCommandCombined executes a command and returns combined stdout/stderr.
func (e *Engine) RunCommandCombined(ctx context.Context, args ...string) ([]byte, error) {
	out, err := e.CreateCommand(ctx, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("command %s %v failed: %w", e.BinaryPath(), args, err)
	}
	return out, nil
}

// RunCommandStatus executes a command and returns only the error status.
func (e *Engine) RunCommandStatus(ctx context.Context, args ...string) error {
	if err := e.CreateCommand(ctx, args...).Run(); err != nil {
		return fmt.Errorf("command %s %v failed: %w", e.BinaryPath(), args, err)
	}
	return nil
}

// RunCommandWithOutput executes a command with stdout captured to a buffer.
func (e *Engine) RunCommandWithOutput(ctx context.Context, args ...string) (string, error) {
	cmd := e.CreateCommand(ctx, args...)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command %s %v failed: %w", e.BinaryPath(), args, err)
	}

	return out.String(), nil
}

// CreateCommand creates an exec.Cmd for the given engine arguments.
func (e *Engine) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	return e.execCommand(ctx, e.BinaryPath(), args...)
}
