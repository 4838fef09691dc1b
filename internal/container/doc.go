// SPDX-License-Identifier: MPL-2.0

// Package container builds and launches container engine invocations for an
// interactive development shell.
//
// A Spec accumulates the pieces of a `run` command (image, shell, mounts,
// environment and raw engine flags) as an immutable value: every With* method
// returns a new Spec. The Invoker turns a completed Spec plus an inner shell
// command into a foreground child process with inherited standard streams and
// reports its exit code.
//
// The Engine type wraps the engine CLI (Docker or Podman) for the supporting
// operations used around a session: availability checks, image pull and build,
// and the detached helper containers started for nested Docker.
package container
