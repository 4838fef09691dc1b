// SPDX-License-Identifier: MPL-2.0

package forward

import (
	"context"
	"os"
	"path"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/shellpod/shellpod/internal/container"
)

const (
	// TmuxEnv is the host variable describing the tmux session
	// ("socket_path,pid,session").
	TmuxEnv = "TMUX"
	// TmuxSocketEnv is set in the container to the forwarded socket path.
	TmuxSocketEnv = "TMUX_SOCKET"
	// TmuxContainerDir is where the host socket directory is mounted.
	TmuxContainerDir = "/run/tmux"
)

// TmuxSocket forwards the host tmux server socket into the container.
//
// Unlike SSHAgent, the socket directory is mounted at the fixed
// TmuxContainerDir so tools in the container find it regardless of the host
// layout; TMUX_SOCKET keeps the socket's own file name.
func TmuxSocket(ctx context.Context, spec container.Spec) (container.Spec, error) {
	return tmuxSocket(ctx, spec, os.LookupEnv)
}

func tmuxSocket(ctx context.Context, spec container.Spec, lookup LookupEnvFunc) (container.Spec, error) {
	value, ok := lookup(TmuxEnv)
	if !ok {
		return spec, &MissingEnvVarError{Name: TmuxEnv}
	}
	logger := log.FromContext(ctx)
	logger.Debug("forwarding tmux socket", TmuxEnv, value)

	socket, _, _ := strings.Cut(value, ",")
	if socket == "" {
		return spec, &ForwardError{Msg: "could not get tmux socket from environment"}
	}

	dir, name, ok := splitSocketPath(socket)
	if !ok {
		return spec, &ForwardError{Msg: "tmux socket in env has bad filename"}
	}
	logger.Debug("tmux socket", "dir", dir, "name", name)

	// The container side is always a POSIX path.
	return spec.
		WithEnv(TmuxSocketEnv, path.Join(TmuxContainerDir, name)).
		WithMount(dir, TmuxContainerDir), nil
}
