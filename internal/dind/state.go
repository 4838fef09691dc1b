// SPDX-License-Identifier: MPL-2.0

package dind

import (
	"errors"
	"fmt"
)

const (
	// StateUnchecked indicates the launcher was created but Preflight not called.
	StateUnchecked State = iota
	// StatePreflightPassed indicates the engine and helper image are usable.
	StatePreflightPassed
	// StateLaunched indicates the helper container was started but its daemon
	// has not answered yet.
	StateLaunched
	// StateReady indicates the nested daemon answers and sessions may link to it.
	StateReady
	// StateStopped is terminal: the helper was closed.
	StateStopped
	// StateFailed is terminal: preflight or launch failed.
	StateFailed
)

// ErrInvalidTransition is returned when a lifecycle method is called out of order.
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

type (
	// State represents the lifecycle state of a Launcher.
	State int32

	// InvalidTransitionError reports a lifecycle method called in the wrong state.
	InvalidTransitionError struct {
		Op   string
		From State
	}
)

// String returns a human-readable representation of the launcher state.
func (s State) String() string {
	switch s {
	case StateUnchecked:
		return "unchecked"
	case StatePreflightPassed:
		return "preflight-passed"
	case StateLaunched:
		return "launched"
	case StateReady:
		return "ready"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if the state is a terminal state (Stopped or Failed).
func (s State) IsTerminal() bool {
	return s == StateStopped || s == StateFailed
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s nested docker helper in state %s", e.Op, e.From)
}

// Unwrap returns ErrInvalidTransition for errors.Is() compatibility.
func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}
