// SPDX-License-Identifier: MPL-2.0

package dind

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/shellpod/shellpod/internal/container"
	"github.com/shellpod/shellpod/internal/forward"
	"github.com/shellpod/shellpod/internal/testutil"
)

var (
	_ forward.NestedRuntime = (*Launcher)(nil)

	fastPolicy = container.RetryPolicy{Attempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
)

func TestHelperProcess(t *testing.T) { testutil.RunHelperProcess() }

// engineResponder answers a healthy docker engine: version works, the image
// exists, every other command succeeds.
func engineResponder(overrides func(args []string) (testutil.CommandResult, bool)) testutil.CommandResponder {
	return func(_ string, args []string) testutil.CommandResult {
		if overrides != nil {
			if res, ok := overrides(args); ok {
				return res
			}
		}
		if len(args) > 0 && args[0] == "version" {
			return testutil.CommandResult{Stdout: "27.3.1\n"}
		}
		if len(args) > 0 && args[0] == "run" {
			return testutil.CommandResult{Stdout: "c0ffee\n"}
		}
		return testutil.CommandResult{}
	}
}

func newTestLauncher(t *testing.T, kind container.EngineType, script *testutil.CommandScript, opts ...Option) *Launcher {
	t.Helper()
	engine, err := container.NewEngine(kind,
		container.WithLookPath(func(file string) (string, error) { return file, nil }),
		container.WithExecCommand(script.ContextFunc(t)),
	)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	base := []Option{
		WithName("shellpod-dind-test"),
		WithPullPolicy(fastPolicy),
		WithReadyPolicy(fastPolicy),
		WithLogger(log.New(io.Discard)),
	}
	return New(engine, append(base, opts...)...)
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()
	engine, err := container.NewEngine(container.EngineTypeDocker)
	if err != nil {
		t.Fatal(err)
	}
	l := New(engine)

	suffix, ok := strings.CutPrefix(l.Name(), NamePrefix)
	if !ok {
		t.Fatalf("Name() = %q, want prefix %q", l.Name(), NamePrefix)
	}
	if _, err := uuid.Parse(suffix); err != nil {
		t.Errorf("name suffix %q is not a UUID: %v", suffix, err)
	}
	if New(engine).Name() == l.Name() {
		t.Error("two launchers share a helper name")
	}
	if l.State() != StateUnchecked {
		t.Errorf("State() = %v, want unchecked", l.State())
	}
}

func TestPreflight_ImagePresent(t *testing.T) {
	t.Parallel()
	script := testutil.NewCommandScript(engineResponder(nil))
	l := newTestLauncher(t, container.EngineTypeDocker, script)

	if err := l.Preflight(context.Background()); err != nil {
		t.Fatalf("Preflight() error = %v", err)
	}
	if l.State() != StatePreflightPassed {
		t.Errorf("State() = %v, want preflight-passed", l.State())
	}
	want := []string{
		"docker version --format {{.Server.Version}}",
		"docker image inspect docker:dind",
	}
	if got := script.Lines(); !slices.Equal(got, want) {
		t.Errorf("commands = %q, want %q", got, want)
	}
}

func TestPreflight_RejectsPodman(t *testing.T) {
	t.Parallel()
	script := testutil.NewCommandScript(engineResponder(nil))
	l := newTestLauncher(t, container.EngineTypePodman, script)

	err := l.Preflight(context.Background())
	if !errors.Is(err, ErrUnsupportedEngine) {
		t.Fatalf("Preflight() error = %v, want ErrUnsupportedEngine", err)
	}
	if l.State() != StateFailed {
		t.Errorf("State() = %v, want failed", l.State())
	}
	if n := len(script.Invocations()); n != 0 {
		t.Errorf("engine invoked %d times, want 0", n)
	}
}

func TestPreflight_EngineUnavailable(t *testing.T) {
	t.Parallel()
	script := testutil.NewCommandScript(engineResponder(func(args []string) (testutil.CommandResult, bool) {
		if args[0] == "version" {
			return testutil.CommandResult{ExitCode: 1, Stderr: "Cannot connect to the Docker daemon"}, true
		}
		return testutil.CommandResult{}, false
	}))
	l := newTestLauncher(t, container.EngineTypeDocker, script)

	err := l.Preflight(context.Background())
	if !errors.Is(err, container.ErrEngineNotAvailable) {
		t.Fatalf("Preflight() error = %v, want ErrEngineNotAvailable", err)
	}
	if l.State() != StateFailed {
		t.Errorf("State() = %v, want failed", l.State())
	}
}

func TestPreflight_PullRetriesTransientFailures(t *testing.T) {
	t.Parallel()
	pulls := 0
	script := testutil.NewCommandScript(engineResponder(func(args []string) (testutil.CommandResult, bool) {
		switch args[0] {
		case "image":
			return testutil.CommandResult{ExitCode: 1}, true
		case "pull":
			pulls++
			if pulls == 1 {
				return testutil.CommandResult{ExitCode: 1, Stderr: "Temporary failure resolving 'registry-1.docker.io'"}, true
			}
			return testutil.CommandResult{Stdout: "Status: Downloaded newer image"}, true
		}
		return testutil.CommandResult{}, false
	}))
	l := newTestLauncher(t, container.EngineTypeDocker, script, WithImage("docker:27-dind"))

	if err := l.Preflight(context.Background()); err != nil {
		t.Fatalf("Preflight() error = %v", err)
	}
	if n := script.CountPrefix("pull", "docker:27-dind"); n != 2 {
		t.Errorf("pull attempts = %d, want 2", n)
	}
}

func TestPreflight_PullPermanentFailure(t *testing.T) {
	t.Parallel()
	script := testutil.NewCommandScript(engineResponder(func(args []string) (testutil.CommandResult, bool) {
		switch args[0] {
		case "image", "pull":
			return testutil.CommandResult{ExitCode: 1, Stderr: "manifest unknown"}, true
		}
		return testutil.CommandResult{}, false
	}))
	l := newTestLauncher(t, container.EngineTypeDocker, script)

	err := l.Preflight(context.Background())
	if err == nil || !strings.Contains(err.Error(), "manifest unknown") {
		t.Fatalf("Preflight() error = %v, want pull failure", err)
	}
	if n := script.CountPrefix("pull"); n != 1 {
		t.Errorf("pull attempts = %d, want 1", n)
	}
	if l.State() != StateFailed {
		t.Errorf("State() = %v, want failed", l.State())
	}
}

func TestLaunch_OutOfOrder(t *testing.T) {
	t.Parallel()
	script := testutil.NewCommandScript(engineResponder(nil))
	l := newTestLauncher(t, container.EngineTypeDocker, script)

	err := l.Launch(context.Background())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Launch() error = %v, want ErrInvalidTransition", err)
	}
	var transErr *InvalidTransitionError
	if !errors.As(err, &transErr) || transErr.From != StateUnchecked || transErr.Op != "launch" {
		t.Errorf("error = %#v", err)
	}
	if l.State() != StateUnchecked {
		t.Errorf("State() = %v, want unchecked", l.State())
	}

	if err := l.Preflight(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := l.Preflight(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Preflight() error = %v, want ErrInvalidTransition", err)
	}
}

func TestLaunch_WaitsForDaemon(t *testing.T) {
	t.Parallel()
	probes := 0
	script := testutil.NewCommandScript(engineResponder(func(args []string) (testutil.CommandResult, bool) {
		if args[0] == "exec" {
			probes++
			if probes < 3 {
				return testutil.CommandResult{ExitCode: 1, Stderr: "Cannot connect to the Docker daemon"}, true
			}
		}
		return testutil.CommandResult{}, false
	}))
	l := newTestLauncher(t, container.EngineTypeDocker, script, WithWorkspace("/home/dev/project"))
	ctx := context.Background()

	if err := l.Preflight(ctx); err != nil {
		t.Fatal(err)
	}
	if err := l.Launch(ctx); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if l.State() != StateReady {
		t.Errorf("State() = %v, want ready", l.State())
	}

	lines := script.Lines()
	wantRun := "docker run --rm -d --privileged --name shellpod-dind-test -e DOCKER_TLS_CERTDIR= -v /home/dev/project:/home/dev/project docker:dind"
	if !slices.Contains(lines, wantRun) {
		t.Errorf("commands %q do not contain %q", lines, wantRun)
	}
	if n := script.CountPrefix("exec", "shellpod-dind-test", "docker", "info"); n != 3 {
		t.Errorf("readiness probes = %d, want 3", n)
	}

	if err := l.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := l.Close(ctx); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if n := script.CountPrefix("kill", "shellpod-dind-test"); n != 1 {
		t.Errorf("kill count = %d, want 1", n)
	}
	if l.State() != StateStopped {
		t.Errorf("State() = %v, want stopped", l.State())
	}
}

func TestLaunch_DaemonNeverReady(t *testing.T) {
	t.Parallel()
	script := testutil.NewCommandScript(engineResponder(func(args []string) (testutil.CommandResult, bool) {
		if args[0] == "exec" {
			return testutil.CommandResult{ExitCode: 1}, true
		}
		return testutil.CommandResult{}, false
	}))
	l := newTestLauncher(t, container.EngineTypeDocker, script)
	ctx := context.Background()

	if err := l.Preflight(ctx); err != nil {
		t.Fatal(err)
	}
	err := l.Launch(ctx)
	if !errors.Is(err, ErrDaemonNotReady) {
		t.Fatalf("Launch() error = %v, want ErrDaemonNotReady", err)
	}
	if l.State() != StateFailed {
		t.Errorf("State() = %v, want failed", l.State())
	}
	if n := script.CountPrefix("exec"); n != fastPolicy.Attempts {
		t.Errorf("readiness probes = %d, want %d", n, fastPolicy.Attempts)
	}
	if n := script.CountPrefix("kill", "shellpod-dind-test"); n != 1 {
		t.Errorf("kill count = %d, want 1", n)
	}

	if err := l.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if n := script.CountPrefix("kill"); n != 1 {
		t.Errorf("Close() after failure killed again: %d kills", n)
	}
	if l.State() != StateFailed {
		t.Errorf("State() after Close() = %v, want failed", l.State())
	}
}

func TestLaunch_RunFailure(t *testing.T) {
	t.Parallel()
	script := testutil.NewCommandScript(engineResponder(func(args []string) (testutil.CommandResult, bool) {
		if args[0] == "run" {
			return testutil.CommandResult{ExitCode: 125, Stderr: "privileged mode is disabled"}, true
		}
		return testutil.CommandResult{}, false
	}))
	l := newTestLauncher(t, container.EngineTypeDocker, script)
	ctx := context.Background()

	if err := l.Preflight(ctx); err != nil {
		t.Fatal(err)
	}
	err := l.Launch(ctx)
	if err == nil || !strings.Contains(err.Error(), "privileged mode is disabled") {
		t.Fatalf("Launch() error = %v", err)
	}
	if n := script.CountPrefix("exec"); n != 0 {
		t.Errorf("readiness probed %d times after failed run", n)
	}
	if l.State() != StateFailed {
		t.Errorf("State() = %v, want failed", l.State())
	}
}

func TestClose_BeforeLaunch(t *testing.T) {
	t.Parallel()
	script := testutil.NewCommandScript(engineResponder(nil))
	l := newTestLauncher(t, container.EngineTypeDocker, script)

	if err := l.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if n := len(script.Invocations()); n != 0 {
		t.Errorf("engine invoked %d times, want 0", n)
	}
	if err := l.Preflight(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Preflight() after Close() error = %v, want ErrInvalidTransition", err)
	}
}

func TestLauncher_ForwardsIntoSpec(t *testing.T) {
	t.Parallel()
	script := testutil.NewCommandScript(engineResponder(nil))
	l := newTestLauncher(t, container.EngineTypeDocker, script)

	spec, err := forward.NestedDocker(context.Background(), container.NewSpec("img", "sh"), l)
	if err != nil {
		t.Fatalf("NestedDocker() error = %v", err)
	}
	want := []string{
		"run", "--rm", "-it",
		"-e", "DOCKER_HOST=tcp://shellpod-docker:2375",
		"--link", "shellpod-dind-test:shellpod-docker",
		"img", "sh", "-c", "docker ps",
	}
	if got := spec.RunArgs("docker ps"); !slices.Equal(got, want) {
		t.Errorf("RunArgs() mismatch\ngot:  %v\nwant: %v", got, want)
	}
}
