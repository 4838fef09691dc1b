// SPDX-License-Identifier: MPL-2.0

package forward

import (
	"context"
	"os"

	"github.com/charmbracelet/log"

	"github.com/shellpod/shellpod/internal/container"
)

// SSHAuthSockEnv is the host variable naming the SSH agent socket.
const SSHAuthSockEnv = "SSH_AUTH_SOCK"

// SSHAgent forwards the host SSH agent into the container.
//
// The socket's directory is mounted at the identical path and SSH_AUTH_SOCK
// keeps its host value, so clients resolve the same path on both sides. The
// directory is mounted rather than the socket file because agents may
// recreate the socket while the container runs. Debug output goes to the
// logger carried by ctx.
func SSHAgent(ctx context.Context, spec container.Spec) (container.Spec, error) {
	return sshAgent(ctx, spec, os.LookupEnv)
}

func sshAgent(ctx context.Context, spec container.Spec, lookup LookupEnvFunc) (container.Spec, error) {
	socket, ok := lookup(SSHAuthSockEnv)
	if !ok {
		return spec, &MissingEnvVarError{Name: SSHAuthSockEnv}
	}
	log.FromContext(ctx).Debug("forwarding ssh agent", SSHAuthSockEnv, socket)

	dir, _, ok := splitSocketPath(socket)
	if !ok {
		return spec, ErrNoSSHAuthSockDir
	}

	return spec.
		WithEnv(SSHAuthSockEnv, socket).
		WithMount(dir, dir), nil
}
