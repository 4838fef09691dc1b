// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the shellpod command line: the interactive shell, run,
// pull and config commands.
package cmd
