// SPDX-License-Identifier: MPL-2.0

package forward

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/shellpod/shellpod/internal/container"
)

const (
	// NestedRuntimeAlias is the hostname of the nested Docker daemon as seen
	// from the container.
	NestedRuntimeAlias = "shellpod-docker"
	// NestedRuntimePort is the plain-TCP Docker API port of the helper.
	NestedRuntimePort = 2375
	// DockerHostEnv points the in-container Docker client at the helper.
	DockerHostEnv = "DOCKER_HOST"
)

// NestedRuntime is a helper container that runs its own Docker daemon.
// Its lifecycle (checks, start, readiness) belongs to the implementation.
type NestedRuntime interface {
	// Name is the helper container's name, used as the link target.
	Name() string
	// Preflight fails if the host cannot run a nested runtime.
	Preflight(ctx context.Context) error
	// Launch starts the helper and blocks until its API endpoint is ready.
	Launch(ctx context.Context) error
}

// NestedRuntimeHost returns the DOCKER_HOST value used inside the container.
func NestedRuntimeHost() string {
	return fmt.Sprintf("tcp://%s:%d", NestedRuntimeAlias, NestedRuntimePort)
}

// NestedDocker checks and launches rt, then links the container to it and
// points DOCKER_HOST at its endpoint. Collaborator failures are returned as
// *CollaboratorError without added context, and leave spec unchanged.
func NestedDocker(ctx context.Context, spec container.Spec, rt NestedRuntime) (container.Spec, error) {
	log.FromContext(ctx).Debug("enabling nested docker", "helper", rt.Name())

	if err := rt.Preflight(ctx); err != nil {
		return spec, &CollaboratorError{Err: err}
	}
	if err := rt.Launch(ctx); err != nil {
		return spec, &CollaboratorError{Err: err}
	}

	return spec.
		WithRawFlag(fmt.Sprintf("--link %s:%s", rt.Name(), NestedRuntimeAlias)).
		WithEnv(DockerHostEnv, NestedRuntimeHost()), nil
}
