// SPDX-License-Identifier: MPL-2.0

// Package config handles shellpod configuration using Viper with YAML files
// validated by a CUE schema.
//
// A project file (shellpod.yaml in the working directory, or the file named by
// --config) is layered over an optional user file at
// $XDG_CONFIG_HOME/shellpod/config.yaml. Each file is validated on its own
// against the embedded #Config schema (config_schema.cue) before it is merged,
// so unknown keys and mistyped values are reported with the offending file.
package config
