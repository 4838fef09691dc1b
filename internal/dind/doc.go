// SPDX-License-Identifier: MPL-2.0

// Package dind launches a privileged docker-in-docker helper container that
// interactive sessions can reach over a container link.
//
// A Launcher is single-use: it moves through preflight, launch and readiness
// exactly once and is then closed.
package dind
