// SPDX-License-Identifier: MPL-2.0

package container

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidSpec is the sentinel error wrapped by InvalidSpecError.
var ErrInvalidSpec = errors.New("invalid container spec")

type (
	// Mount binds a host path to a path inside the container.
	Mount struct {
		Host      string
		Container string
	}

	// EnvVar is a single environment entry passed to the container.
	EnvVar struct {
		Name  string
		Value string
	}

	// Spec describes a container `run` invocation before it is launched.
	//
	// Spec has value semantics: the With* methods never modify the receiver and
	// two specs derived from the same parent never share backing arrays. Image
	// and Shell are fixed by NewSpec; the constructor does not validate them,
	// Validate (called by Invoker.Run) does.
	Spec struct {
		image    string
		shell    string
		mounts   []Mount
		env      []EnvVar
		rawFlags []string
	}

	// InvalidSpecError is returned when a Spec cannot be rendered into a run
	// command. It wraps ErrInvalidSpec for errors.Is() compatibility.
	InvalidSpecError struct {
		Fields []string
	}
)

// String returns the mount in "host:container" format.
func (m Mount) String() string {
	return m.Host + ":" + m.Container
}

// String returns the entry in "NAME=VALUE" format.
func (e EnvVar) String() string {
	return e.Name + "=" + e.Value
}

// Error implements the error interface.
func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid container spec: empty %s", strings.Join(e.Fields, " and "))
}

// Unwrap returns ErrInvalidSpec for errors.Is() compatibility.
func (e *InvalidSpecError) Unwrap() error { return ErrInvalidSpec }

// NewSpec creates a Spec for the given image and in-container shell.
func NewSpec(image, shell string) Spec {
	return Spec{image: image, shell: shell}
}

// Image returns the image the container is started from.
func (s Spec) Image() string { return s.image }

// Shell returns the in-container entry point.
func (s Spec) Shell() string { return s.shell }

// Mounts returns a copy of the mounts in insertion order.
func (s Spec) Mounts() []Mount { return slices.Clone(s.mounts) }

// Environment returns a copy of the environment entries in insertion order.
func (s Spec) Environment() []EnvVar { return slices.Clone(s.env) }

// RawFlags returns a copy of the raw engine flags in insertion order.
func (s Spec) RawFlags() []string { return slices.Clone(s.rawFlags) }

// WithMount returns a copy of s with an additional host-to-container mount.
func (s Spec) WithMount(host, container string) Spec {
	s.mounts = append(slices.Clip(s.mounts), Mount{Host: host, Container: container})
	return s
}

// WithEnv returns a copy of s with an additional environment entry.
// Duplicate names are kept; the engine decides which one wins.
func (s Spec) WithEnv(name, value string) Spec {
	s.env = append(slices.Clip(s.env), EnvVar{Name: name, Value: value})
	return s
}

// WithRawFlag returns a copy of s with an additional raw engine flag.
// The flag may hold several whitespace-separated tokens (e.g. "-p 8080:80");
// they are split into separate arguments by RunArgs, so a token can never
// contain a space.
func (s Spec) WithRawFlag(flag string) Spec {
	s.rawFlags = append(slices.Clip(s.rawFlags), flag)
	return s
}

// Validate returns an error if the image or shell is empty or whitespace-only.
func (s Spec) Validate() error {
	var fields []string
	if strings.TrimSpace(s.image) == "" {
		fields = append(fields, "image")
	}
	if strings.TrimSpace(s.shell) == "" {
		fields = append(fields, "shell")
	}
	if len(fields) > 0 {
		return &InvalidSpecError{Fields: fields}
	}
	return nil
}

// RunArgs constructs the engine arguments that run command in the container.
//
// Generated command: <binary> run --rm -it {-v H:C}* {-e N=V}* {raw}* <image> <shell> -c <command>
func (s Spec) RunArgs(command string) []string {
	args := []string{"run", "--rm", "-it"}

	for _, m := range s.mounts {
		args = append(args, "-v", m.String())
	}

	for _, e := range s.env {
		args = append(args, "-e", e.String())
	}

	for _, flag := range s.rawFlags {
		args = append(args, strings.Fields(flag)...)
	}

	args = append(args, s.image, s.shell, "-c", command)

	return args
}
