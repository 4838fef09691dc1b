// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/shellpod/shellpod/internal/container"
)

const (
	// DefaultShell is the shell started inside the container.
	DefaultShell = "sh"
	// DefaultMount is where the working directory is mounted in the container.
	DefaultMount = "/src"
	// DefaultEngine is the container engine CLI.
	DefaultEngine = container.EngineTypeDocker
	// DefaultDinDImage is the docker-in-docker helper image.
	DefaultDinDImage = "docker:dind"
)

var (
	// ErrInvalidConfig is the sentinel wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMissingImage is returned when no image is configured.
	ErrMissingImage = errors.New("no image configured")
)

type (
	// InvalidConfigError reports a merged value that breaks a constraint.
	InvalidConfigError struct {
		Field  string
		Reason string
	}

	// BuildConfig describes how to build the image locally.
	BuildConfig struct {
		// Dockerfile path, relative to Context.
		Dockerfile string `json:"dockerfile,omitempty" mapstructure:"dockerfile" yaml:"dockerfile,omitempty" toml:"dockerfile,omitempty"`
		// Context is the build context directory.
		Context string `json:"context,omitempty" mapstructure:"context" yaml:"context,omitempty" toml:"context,omitempty"`
	}

	// Config holds the merged shellpod configuration.
	Config struct {
		Image             string               `json:"image" mapstructure:"image" yaml:"image" toml:"image"`
		Build             BuildConfig          `json:"build" mapstructure:"build" yaml:"build,omitempty" toml:"build,omitempty"`
		Shell             string               `json:"shell" mapstructure:"shell" yaml:"shell" toml:"shell"`
		Init              []string             `json:"init" mapstructure:"init" yaml:"init" toml:"init"`
		Mount             string               `json:"mount" mapstructure:"mount" yaml:"mount" toml:"mount"`
		Engine            container.EngineType `json:"engine" mapstructure:"engine" yaml:"engine" toml:"engine"`
		ForwardSSHAgent   bool                 `json:"forward_ssh_agent" mapstructure:"forward_ssh_agent" yaml:"forward_ssh_agent" toml:"forward_ssh_agent"`
		ForwardTmuxSocket bool                 `json:"forward_tmux_socket" mapstructure:"forward_tmux_socket" yaml:"forward_tmux_socket" toml:"forward_tmux_socket"`
		DinD              bool                 `json:"dind" mapstructure:"dind" yaml:"dind" toml:"dind"`
		DinDImage         string               `json:"dind_image" mapstructure:"dind_image" yaml:"dind_image" toml:"dind_image"`
		DockerSwitches    []string             `json:"docker_switches" mapstructure:"docker_switches" yaml:"docker_switches" toml:"docker_switches"`
		Verbose           bool                 `json:"verbose" mapstructure:"verbose" yaml:"verbose" toml:"verbose"`
	}
)

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid value for %s: %s", e.Field, e.Reason)
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the configuration used when no file sets a value.
func DefaultConfig() *Config {
	return &Config{
		Shell:          DefaultShell,
		Init:           []string{},
		Mount:          DefaultMount,
		Engine:         DefaultEngine,
		DinDImage:      DefaultDinDImage,
		DockerSwitches: []string{},
	}
}

// Enabled reports whether the image should be built rather than pulled.
func (b BuildConfig) Enabled() bool {
	return b.Dockerfile != "" || b.Context != ""
}

// Validate checks constraints that hold after merging. Env overrides bypass
// the file schema, so the schema's rules are repeated here.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Shell) == "" {
		return &InvalidConfigError{Field: "shell", Reason: "must not be empty"}
	}
	if !path.IsAbs(c.Mount) {
		return &InvalidConfigError{Field: "mount", Reason: fmt.Sprintf("%q is not an absolute container path", c.Mount)}
	}
	if err := c.Engine.Validate(); err != nil {
		return &InvalidConfigError{Field: "engine", Reason: err.Error()}
	}
	if c.DinD && c.Engine != container.EngineTypeDocker {
		return &InvalidConfigError{Field: "dind", Reason: "requires engine docker"}
	}
	return nil
}

// ImageRef returns the configured image or ErrMissingImage.
func (c *Config) ImageRef() (string, error) {
	if strings.TrimSpace(c.Image) == "" {
		return "", ErrMissingImage
	}
	return c.Image, nil
}
