// SPDX-License-Identifier: MPL-2.0

package session

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shellpod/shellpod/internal/config"
	"github.com/shellpod/shellpod/internal/container"
	"github.com/shellpod/shellpod/internal/issue"
)

const (
	// HostUIDEnv carries the invoking user's uid into the container.
	HostUIDEnv = "SHELLPOD_HOST_UID"
	// HostGIDEnv carries the invoking user's gid into the container.
	HostGIDEnv = "SHELLPOD_HOST_GID"
	// HostMountDirEnv carries the host path of the mounted workspace.
	HostMountDirEnv = "SHELLPOD_HOST_MOUNTDIR"
)

// Host describes the invoking user and workspace.
type Host struct {
	WorkDir string
	UID     int
	GID     int
}

// CurrentHost reads the working directory and ids of the running process.
func CurrentHost() (Host, error) {
	wd, err := os.Getwd()
	if err != nil {
		return Host{}, fmt.Errorf("failed to get working directory: %w", err)
	}
	return Host{WorkDir: wd, UID: os.Getuid(), GID: os.Getgid()}, nil
}

// Plan builds the base spec for cfg: the workspace mounted at cfg.Mount and
// used as working directory, the host identity in the environment, then the
// configured docker switches in order.
func Plan(cfg *config.Config, host Host) (container.Spec, error) {
	image, err := cfg.ImageRef()
	if err != nil {
		return container.Spec{}, issue.NewErrorContext().
			WithOperation("plan session").
			WithIssue(issue.MissingImageId).
			WithSuggestion("Set 'image' in shellpod.yaml").
			Wrap(err).
			BuildError()
	}

	spec := container.NewSpec(image, cfg.Shell).
		WithMount(host.WorkDir, cfg.Mount).
		WithEnv(HostUIDEnv, strconv.Itoa(host.UID)).
		WithEnv(HostGIDEnv, strconv.Itoa(host.GID)).
		WithEnv(HostMountDirEnv, host.WorkDir).
		WithRawFlag("-w " + cfg.Mount)
	for _, sw := range cfg.DockerSwitches {
		spec = spec.WithRawFlag(sw)
	}
	return spec, nil
}
