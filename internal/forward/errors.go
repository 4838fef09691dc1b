// SPDX-License-Identifier: MPL-2.0

package forward

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingEnvVar is the sentinel error wrapped by MissingEnvVarError.
	ErrMissingEnvVar = errors.New("missing environment variable")

	// ErrConfig is the class of errors raised when a host environment value is
	// present but unusable.
	ErrConfig = errors.New("invalid forwarding configuration")

	// ErrNoSSHAuthSockDir is returned when SSH_AUTH_SOCK has no parent directory.
	ErrNoSSHAuthSockDir = fmt.Errorf("%w: no SSH auth socket directory", ErrConfig)

	// ErrForward is the sentinel error wrapped by ForwardError.
	ErrForward = errors.New("failed to forward socket")
)

type (
	// MissingEnvVarError is returned when a forwarder's host variable is unset.
	MissingEnvVarError struct {
		Name string
	}

	// ForwardError is returned when a host socket path cannot be mapped into
	// the container.
	ForwardError struct {
		Msg string
	}

	// CollaboratorError carries a nested-runtime failure unchanged: its message
	// is the collaborator's message and it unwraps to the collaborator's error.
	CollaboratorError struct {
		Err error
	}
)

// Error implements the error interface.
func (e *MissingEnvVarError) Error() string {
	return fmt.Sprintf("environment variable %s is not set", e.Name)
}

// Unwrap returns ErrMissingEnvVar for errors.Is() compatibility.
func (e *MissingEnvVarError) Unwrap() error { return ErrMissingEnvVar }

// Error implements the error interface.
func (e *ForwardError) Error() string {
	return "tmux forwarding failed: " + e.Msg
}

// Unwrap returns ErrForward for errors.Is() compatibility.
func (e *ForwardError) Unwrap() error { return ErrForward }

// Error implements the error interface.
func (e *CollaboratorError) Error() string { return e.Err.Error() }

// Unwrap returns the collaborator's own error.
func (e *CollaboratorError) Unwrap() error { return e.Err }
