// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"errors"

	"github.com/shellpod/shellpod/internal/config"
	"github.com/shellpod/shellpod/internal/container"
	"github.com/shellpod/shellpod/internal/forward"
	"github.com/shellpod/shellpod/internal/issue"
)

// ErrNoNestedRuntime is returned when dind is enabled without a runtime.
var ErrNoNestedRuntime = errors.New("nested docker enabled but no runtime provided")

// Forward applies the forwarders enabled in cfg in the fixed order ssh agent,
// tmux socket, nested docker. The first failure stops composition and
// returns the spec as it was before the failing forwarder.
func Forward(ctx context.Context, spec container.Spec, cfg *config.Config, nested forward.NestedRuntime) (container.Spec, error) {
	var err error

	if cfg.ForwardSSHAgent {
		if spec, err = forward.SSHAgent(ctx, spec); err != nil {
			return spec, issue.NewErrorContext().
				WithOperation("forward ssh agent").
				WithResource(forward.SSHAuthSockEnv).
				WithIssue(issue.SSHAgentNotFoundId).
				WithSuggestion("Start ssh-agent or set forward_ssh_agent: false").
				Wrap(err).
				BuildError()
		}
	}

	if cfg.ForwardTmuxSocket {
		if spec, err = forward.TmuxSocket(ctx, spec); err != nil {
			return spec, issue.NewErrorContext().
				WithOperation("forward tmux socket").
				WithResource(forward.TmuxEnv).
				WithIssue(issue.TmuxSocketNotFoundId).
				WithSuggestion("Run shellpod inside tmux or set forward_tmux_socket: false").
				Wrap(err).
				BuildError()
		}
	}

	if cfg.DinD {
		if nested == nil {
			return spec, ErrNoNestedRuntime
		}
		if spec, err = forward.NestedDocker(ctx, spec, nested); err != nil {
			return spec, issue.NewErrorContext().
				WithOperation("start nested docker").
				WithResource(nested.Name()).
				WithIssue(issue.NestedDockerFailedId).
				Wrap(err).
				BuildError()
		}
	}

	return spec, nil
}
