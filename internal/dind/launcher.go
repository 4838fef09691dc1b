// SPDX-License-Identifier: MPL-2.0

package dind

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/shellpod/shellpod/internal/container"
)

const (
	// DefaultImage is the helper image running the nested daemon.
	DefaultImage = "docker:dind"

	// NamePrefix prefixes every generated helper container name.
	NamePrefix = "shellpod-dind-"

	// tlsCertDirEnv disables TLS in the dind image so the daemon listens on
	// plain tcp/2375.
	tlsCertDirEnv = "DOCKER_TLS_CERTDIR"
)

var (
	// ErrUnsupportedEngine is returned when the engine cannot link containers.
	ErrUnsupportedEngine = errors.New("nested docker requires the docker engine")

	// ErrDaemonNotReady is the sentinel wrapped by DaemonNotReadyError.
	ErrDaemonNotReady = errors.New("nested docker daemon not ready")

	// DefaultPullPolicy retries helper image pulls on transient registry failures.
	DefaultPullPolicy = container.RetryPolicy{Attempts: 3, BaseBackoff: time.Second, MaxBackoff: 8 * time.Second}

	// DefaultReadyPolicy polls the nested daemon for roughly half a minute.
	DefaultReadyPolicy = container.RetryPolicy{Attempts: 15, BaseBackoff: 250 * time.Millisecond, MaxBackoff: 4 * time.Second}
)

type (
	// DaemonNotReadyError is returned when the helper started but its daemon
	// never answered.
	DaemonNotReadyError struct {
		Name string
		Err  error
	}

	// Option configures a Launcher.
	Option func(*Launcher)

	// Launcher starts and stops one docker-in-docker helper container.
	Launcher struct {
		engine      *container.Engine
		name        string
		image       string
		workspace   string
		pullPolicy  container.RetryPolicy
		readyPolicy container.RetryPolicy
		stdout      io.Writer
		stderr      io.Writer
		logger      *log.Logger

		// State management (atomic for lock-free reads)
		state   atomic.Int32
		stateMu sync.Mutex
	}
)

// Error implements the error interface.
func (e *DaemonNotReadyError) Error() string {
	return fmt.Sprintf("nested docker daemon in %s did not become ready: %v", e.Name, e.Err)
}

// Unwrap returns ErrDaemonNotReady for errors.Is() compatibility.
func (e *DaemonNotReadyError) Unwrap() []error {
	return []error{ErrDaemonNotReady, e.Err}
}

// WithImage overrides the helper image.
func WithImage(image string) Option {
	return func(l *Launcher) {
		if image != "" {
			l.image = image
		}
	}
}

// WithName overrides the generated helper container name.
func WithName(name string) Option {
	return func(l *Launcher) {
		if name != "" {
			l.name = name
		}
	}
}

// WithWorkspace bind-mounts dir at the same path inside the helper so that
// volume paths used by nested `docker run` calls resolve.
func WithWorkspace(dir string) Option {
	return func(l *Launcher) {
		l.workspace = dir
	}
}

// WithPullPolicy sets the retry policy for pulling the helper image.
func WithPullPolicy(p container.RetryPolicy) Option {
	return func(l *Launcher) {
		l.pullPolicy = p
	}
}

// WithReadyPolicy sets the polling policy for daemon readiness.
func WithReadyPolicy(p container.RetryPolicy) Option {
	return func(l *Launcher) {
		l.readyPolicy = p
	}
}

// WithOutput sets where image pull progress is written.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(l *Launcher) {
		l.stdout = stdout
		l.stderr = stderr
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(l *Launcher) {
		l.logger = logger
	}
}

// New creates a launcher for a fresh helper container on engine.
func New(engine *container.Engine, opts ...Option) *Launcher {
	l := &Launcher{
		engine:      engine,
		name:        NamePrefix + uuid.NewString(),
		image:       DefaultImage,
		pullPolicy:  DefaultPullPolicy,
		readyPolicy: DefaultReadyPolicy,
		stdout:      io.Discard,
		stderr:      io.Discard,
		logger:      log.Default(),
	}
	l.state.Store(int32(StateUnchecked))
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the helper container name.
func (l *Launcher) Name() string { return l.name }

// State returns the current lifecycle state (atomic, lock-free read).
func (l *Launcher) State() State {
	return State(l.state.Load())
}

// Preflight checks that the engine can host the helper and that its image is
// available locally, pulling it if needed.
func (l *Launcher) Preflight(ctx context.Context) error {
	if err := l.begin(ctx, "preflight", StateUnchecked); err != nil {
		return err
	}

	if l.engine.Type() != container.EngineTypeDocker {
		return l.fail(fmt.Errorf("%w (configured: %s)", ErrUnsupportedEngine, l.engine.Name()))
	}
	if err := l.engine.Available(ctx); err != nil {
		return l.fail(err)
	}
	if err := l.ensureImage(ctx); err != nil {
		return l.fail(err)
	}

	l.transition(StatePreflightPassed)
	l.logger.Debug("nested docker preflight passed", "image", l.image)
	return nil
}

// Launch starts the helper container and waits for its daemon. When the
// daemon never answers the helper is killed.
func (l *Launcher) Launch(ctx context.Context) error {
	if err := l.begin(ctx, "launch", StatePreflightPassed); err != nil {
		return err
	}

	opts := container.DetachedOptions{
		Name:       l.name,
		Image:      l.image,
		Privileged: true,
		Remove:     true,
		Env:        []container.EnvVar{{Name: tlsCertDirEnv, Value: ""}},
	}
	if l.workspace != "" {
		opts.Mounts = []container.Mount{{Host: l.workspace, Container: l.workspace}}
	}

	id, err := l.engine.RunDetached(ctx, opts)
	if err != nil {
		return l.fail(err)
	}
	l.transition(StateLaunched)
	l.logger.Debug("nested docker helper started", "name", l.name, "id", id)

	err = container.RetryWithBackoff(ctx, l.readyPolicy, func(attempt int) (bool, error) {
		l.logger.Debug("waiting for nested docker daemon", "name", l.name, "attempt", attempt+1)
		return true, l.engine.Exec(ctx, l.name, "docker", "info")
	})
	if err != nil {
		if killErr := l.engine.Kill(context.WithoutCancel(ctx), l.name); killErr != nil {
			l.logger.Warn("failed to kill nested docker helper", "name", l.name, "error", killErr)
		}
		return l.fail(&DaemonNotReadyError{Name: l.name, Err: err})
	}

	l.transition(StateReady)
	l.logger.Debug("nested docker daemon ready", "name", l.name)
	return nil
}

// Close kills the helper if it was started. It is safe to call repeatedly and
// in any state.
func (l *Launcher) Close(ctx context.Context) error {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()

	switch cur := State(l.state.Load()); {
	case cur.IsTerminal():
		return nil
	case cur == StateLaunched || cur == StateReady:
		if err := l.engine.Kill(ctx, l.name); err != nil {
			return fmt.Errorf("failed to stop nested docker helper %s: %w", l.name, err)
		}
		l.logger.Debug("nested docker helper stopped", "name", l.name)
	}
	l.state.Store(int32(StateStopped))
	return nil
}

func (l *Launcher) ensureImage(ctx context.Context) error {
	if l.engine.ImageExists(ctx, l.image) {
		return nil
	}
	l.logger.Info("pulling nested docker image", "image", l.image)
	return l.engine.PullWithRetry(ctx, l.image, l.pullPolicy, l.stdout, l.stderr)
}

// begin checks that the launcher is in the expected state and that ctx is
// still live.
func (l *Launcher) begin(ctx context.Context, op string, want State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	if cur := State(l.state.Load()); cur != want {
		return &InvalidTransitionError{Op: op, From: cur}
	}
	return nil
}

func (l *Launcher) transition(to State) {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	l.state.Store(int32(to))
}

func (l *Launcher) fail(err error) error {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	l.state.Store(int32(StateFailed))
	return err
}
