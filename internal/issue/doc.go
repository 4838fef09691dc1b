// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and a catalogue of Markdown help
// pages for the failures a shellpod user can fix themselves.
package issue
