// SPDX-License-Identifier: MPL-2.0

package container

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/charmbracelet/log"
)

// DefaultBinary is the engine binary used when no other is configured.
const DefaultBinary = "docker"

var (
	// ErrLaunch is the sentinel error wrapped by LaunchError.
	ErrLaunch = errors.New("failed to launch container engine")

	// ErrWait is the sentinel error wrapped by WaitError.
	ErrWait = errors.New("failed to wait for container engine")
)

type (
	// ExitCode is the exit status reported by the engine process.
	ExitCode int

	// InvokeCommandFunc creates the command for the engine process.
	// This allows injection of mock implementations for testing.
	InvokeCommandFunc func(name string, arg ...string) *exec.Cmd

	// InvokerOption configures an Invoker.
	InvokerOption func(*Invoker)

	// Invoker spawns the engine binary for a Spec and waits for it to exit.
	// It holds no per-invocation state; each Run consumes the Spec it is given.
	Invoker struct {
		binary      string
		execCommand InvokeCommandFunc
		stdin       io.Reader
		stdout      io.Writer
		stderr      io.Writer
		logger      *log.Logger
	}

	// LaunchError is returned when the engine binary cannot be started
	// (not found, permission denied). Err is the underlying OS error.
	LaunchError struct {
		Binary string
		Err    error
	}

	// WaitError is returned when the engine process started but waiting for
	// it failed for a reason other than its own exit status.
	WaitError struct {
		Binary string
		Err    error
	}
)

// Error implements the error interface.
func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %s: %v", e.Binary, e.Err)
}

// Unwrap returns the underlying OS error.
func (e *LaunchError) Unwrap() error { return e.Err }

// Is reports whether target is ErrLaunch.
func (e *LaunchError) Is(target error) bool { return target == ErrLaunch }

// Error implements the error interface.
func (e *WaitError) Error() string {
	return fmt.Sprintf("failed to complete %s command: %v", e.Binary, e.Err)
}

// Unwrap returns the underlying OS error.
func (e *WaitError) Unwrap() error { return e.Err }

// Is reports whether target is ErrWait.
func (e *WaitError) Is(target error) bool { return target == ErrWait }

// WithBinary sets the engine binary (name or path).
func WithBinary(binary string) InvokerOption {
	return func(i *Invoker) {
		i.binary = binary
	}
}

// WithInvokeCommand sets a custom command constructor for testing.
func WithInvokeCommand(fn InvokeCommandFunc) InvokerOption {
	return func(i *Invoker) {
		i.execCommand = fn
	}
}

// WithStreams replaces the inherited standard streams.
func WithStreams(stdin io.Reader, stdout, stderr io.Writer) InvokerOption {
	return func(i *Invoker) {
		i.stdin = stdin
		i.stdout = stdout
		i.stderr = stderr
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *log.Logger) InvokerOption {
	return func(i *Invoker) {
		i.logger = logger
	}
}

// NewInvoker creates an Invoker that runs the default engine binary with the
// process's own standard streams.
func NewInvoker(opts ...InvokerOption) *Invoker {
	i := &Invoker{
		binary:      DefaultBinary,
		execCommand: exec.Command,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Binary returns the engine binary the invoker spawns.
func (i *Invoker) Binary() string {
	return i.binary
}

// Args returns the full argument list Run would pass to the engine binary.
func (i *Invoker) Args(spec Spec, command string) ([]string, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec.RunArgs(command), nil
}

// Run starts the engine for spec with command as the inner shell command and
// blocks until the engine exits.
//
// A non-zero exit of the engine is reported through ExitCode with a nil error.
// An invalid spec is rejected before any process is spawned. There is no
// cancellation: interrupts reach the child through the inherited terminal.
func (i *Invoker) Run(spec Spec, command string) (ExitCode, error) {
	args, err := i.Args(spec, command)
	if err != nil {
		return 0, err
	}

	i.logger.Debug("spawning container engine", "binary", i.binary, "args", args)

	//nolint:gosec // the engine binary and arguments come from the user's own configuration
	cmd := i.execCommand(i.binary, args...)
	cmd.Stdin = i.stdin
	cmd.Stdout = i.stdout
	cmd.Stderr = i.stderr

	if err := cmd.Start(); err != nil {
		return 0, &LaunchError{Binary: i.binary, Err: err}
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitCodeOf(exitErr)
			i.logger.Debug("container engine exited", "code", code)
			return code, nil
		}
		return 0, &WaitError{Binary: i.binary, Err: err}
	}

	return 0, nil
}

// exitCodeOf maps a finished process to a shell-style exit code, reporting
// death by signal N as 128+N.
func exitCodeOf(exitErr *exec.ExitError) ExitCode {
	if code := exitErr.ExitCode(); code >= 0 {
		return ExitCode(code)
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return ExitCode(128 + int(ws.Signal()))
	}
	return 1
}
