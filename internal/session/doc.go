// SPDX-License-Identifier: MPL-2.0

// Package session turns a loaded configuration into a ready-to-run container
// spec: it lays out the workspace, applies the enabled forwarders, prepares
// the image and composes the command the container shell runs.
package session
