// SPDX-License-Identifier: MPL-2.0

package forward

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/shellpod/shellpod/internal/container"
)

// fakeRuntime is a scripted NestedRuntime.
type fakeRuntime struct {
	name         string
	preflightErr error
	launchErr    error
	calls        []string
}

func (f *fakeRuntime) Name() string { return f.name }

func (f *fakeRuntime) Preflight(context.Context) error {
	f.calls = append(f.calls, "preflight")
	return f.preflightErr
}

func (f *fakeRuntime) Launch(context.Context) error {
	f.calls = append(f.calls, "launch")
	return f.launchErr
}

func TestNestedDocker_Success(t *testing.T) {
	t.Parallel()
	rt := &fakeRuntime{name: "shellpod-dind-abc"}
	base := container.NewSpec("img", "sh").WithEnv("KEEP", "1")

	got, err := NestedDocker(context.Background(), base, rt)
	if err != nil {
		t.Fatalf("NestedDocker() error = %v", err)
	}

	if !slices.Equal(rt.calls, []string{"preflight", "launch"}) {
		t.Errorf("calls = %v, want preflight then launch", rt.calls)
	}
	if flags := got.RawFlags(); !slices.Equal(flags, []string{"--link shellpod-dind-abc:shellpod-docker"}) {
		t.Errorf("raw flags = %v", flags)
	}
	wantEnv := []container.EnvVar{
		{Name: "KEEP", Value: "1"},
		{Name: DockerHostEnv, Value: "tcp://shellpod-docker:2375"},
	}
	if env := got.Environment(); !slices.Equal(env, wantEnv) {
		t.Errorf("env = %v, want %v", env, wantEnv)
	}
	if len(got.Mounts()) != 0 {
		t.Errorf("mounts = %v, want none", got.Mounts())
	}
}

func TestNestedDocker_CollaboratorFailures(t *testing.T) {
	t.Parallel()
	errPrivilege := errors.New("docker-in-docker needs a privileged-capable docker daemon")
	errTimeout := errors.New("nested docker daemon did not become ready")

	tests := []struct {
		name      string
		rt        *fakeRuntime
		wantErr   error
		wantCalls []string
	}{
		{
			name:      "preflight fails fast",
			rt:        &fakeRuntime{name: "h", preflightErr: errPrivilege},
			wantErr:   errPrivilege,
			wantCalls: []string{"preflight"},
		},
		{
			name:      "launch fails after preflight",
			rt:        &fakeRuntime{name: "h", launchErr: errTimeout},
			wantErr:   errTimeout,
			wantCalls: []string{"preflight", "launch"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			base := container.NewSpec("img", "sh").WithMount("/a", "/a")

			got, err := NestedDocker(context.Background(), base, tt.rt)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NestedDocker() error = %v, want %v", err, tt.wantErr)
			}
			if err.Error() != tt.wantErr.Error() {
				t.Errorf("error message = %q, want collaborator message %q", err.Error(), tt.wantErr.Error())
			}
			var collabErr *CollaboratorError
			if !errors.As(err, &collabErr) {
				t.Errorf("error is not *CollaboratorError: %T", err)
			}
			if !slices.Equal(tt.rt.calls, tt.wantCalls) {
				t.Errorf("calls = %v, want %v", tt.rt.calls, tt.wantCalls)
			}
			if !slices.Equal(got.RunArgs("x"), base.RunArgs("x")) {
				t.Errorf("spec changed on failure: %v", got.RunArgs("x"))
			}
		})
	}
}

func TestNestedRuntimeHost(t *testing.T) {
	t.Parallel()
	if got := NestedRuntimeHost(); got != "tcp://shellpod-docker:2375" {
		t.Errorf("NestedRuntimeHost() = %q", got)
	}
}
