// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/shellpod/shellpod/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "shellpod"
	// ProjectFileName is the per-project config file looked up in the working directory.
	ProjectFileName = "shellpod.yaml"
	// UserFileName is the user config file inside UserConfigDir.
	UserFileName = "config.yaml"
	// EnvPrefix prefixes environment overrides (SHELLPOD_ENGINE, SHELLPOD_BUILD_CONTEXT, ...).
	EnvPrefix = "SHELLPOD"

	// maxFileSize bounds config files read into memory.
	maxFileSize int64 = 1 << 20
)

//go:embed config_schema.cue
var configSchema string

type (
	// LoadOptions defines explicit configuration loading inputs.
	LoadOptions struct {
		// ConfigFilePath forces the project file when set. It must exist.
		ConfigFilePath string
		// ProjectDir is searched for ProjectFileName (default: working directory).
		ProjectDir string
		// UserConfigDir overrides the XDG user config directory when set.
		UserConfigDir string
	}

	// Sources lists the files that contributed to a loaded Config.
	Sources struct {
		User    string
		Project string
	}
)

// UserConfigDir returns $XDG_CONFIG_HOME/shellpod.
func UserConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Files returns the contributing files in merge order.
func (s Sources) Files() []string {
	var files []string
	for _, f := range []string{s.User, s.Project} {
		if f != "" {
			files = append(files, f)
		}
	}
	return files
}

// Load merges defaults, the user file, the project file and SHELLPOD_*
// environment overrides, in that order of increasing precedence.
func Load(ctx context.Context, opts LoadOptions) (*Config, Sources, error) {
	var sources Sources

	select {
	case <-ctx.Done():
		return nil, sources, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	userDir := opts.UserConfigDir
	if userDir == "" {
		userDir = UserConfigDir()
	}
	if userPath := filepath.Join(userDir, UserFileName); fileExists(userPath) {
		if err := mergeFile(v, userPath); err != nil {
			return nil, sources, loadError(userPath, err)
		}
		sources.User = userPath
	}

	projectPath := opts.ConfigFilePath
	if projectPath != "" {
		if !fileExists(projectPath) {
			return nil, sources, issue.NewErrorContext().
				WithOperation("load configuration").
				WithIssue(issue.ConfigLoadFailedId).
				WithResource(projectPath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				Wrap(fmt.Errorf("config file not found: %s", projectPath)).
				BuildError()
		}
	} else {
		projectPath = filepath.Join(opts.ProjectDir, ProjectFileName)
		if !fileExists(projectPath) {
			projectPath = ""
		}
	}
	if projectPath != "" {
		if err := mergeFile(v, projectPath); err != nil {
			return nil, sources, loadError(projectPath, err)
		}
		sources.Project = projectPath
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, sources, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, sources, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Check the merged value with 'shellpod config show'").
			WithSuggestion("Look for " + EnvPrefix + "_* environment overrides").
			Wrap(err).
			BuildError()
	}

	return &cfg, sources, nil
}

// YAML renders cfg the way it would be written in shellpod.yaml.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return out, nil
}

// TOML renders cfg as TOML, for tools that consume it in that form.
func (c *Config) TOML() ([]byte, error) {
	out, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return out, nil
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()
	v.SetDefault("image", defaults.Image)
	v.SetDefault("build.dockerfile", defaults.Build.Dockerfile)
	v.SetDefault("build.context", defaults.Build.Context)
	v.SetDefault("shell", defaults.Shell)
	v.SetDefault("init", defaults.Init)
	v.SetDefault("mount", defaults.Mount)
	v.SetDefault("engine", string(defaults.Engine))
	v.SetDefault("forward_ssh_agent", defaults.ForwardSSHAgent)
	v.SetDefault("forward_tmux_socket", defaults.ForwardTmuxSocket)
	v.SetDefault("dind", defaults.DinD)
	v.SetDefault("dind_image", defaults.DinDImage)
	v.SetDefault("docker_switches", defaults.DockerSwitches)
	v.SetDefault("verbose", defaults.Verbose)
}

func loadError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithIssue(issue.ConfigLoadFailedId).
		WithResource(path).
		WithSuggestion("Check that the file contains valid YAML").
		WithSuggestion("Verify the keys and values match the shellpod configuration schema").
		Wrap(err).
		BuildError()
}

// readFileLimited reads at most limit bytes of path. Larger files are
// rejected without being loaded.
func readFileLimited(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s: file size exceeds maximum %d bytes", path, limit)
	}
	return data, nil
}

// mergeFile decodes a YAML file through CUE, validates it against the
// #Config schema and merges its contents into Viper.
func mergeFile(v *viper.Viper, path string) error {
	data, err := readFileLimited(path, maxFileSize)
	if err != nil {
		return err
	}

	file, err := cueyaml.Extract(path, data)
	if err != nil {
		return formatCUEError(err, path)
	}

	ctx := cuecontext.New()
	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.BuildFile(file)
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// formatCUEError flattens CUE errors into one line per offending field.
func formatCUEError(err error, filePath string) error {
	cueErrs := cueerrors.Errors(err)
	if len(cueErrs) == 0 {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	lines := make([]string, 0, len(cueErrs))
	for _, e := range cueErrs {
		msg := e.Error()
		fieldPath := strings.Join(cueerrors.Path(e), ".")
		fieldPath = strings.TrimPrefix(fieldPath, "#Config.")
		if fieldPath != "" && !strings.HasPrefix(msg, fieldPath) {
			msg = fieldPath + ": " + msg
		}
		lines = append(lines, msg)
	}

	if len(lines) == 1 {
		return fmt.Errorf("%s: %s", filePath, lines[0])
	}
	return fmt.Errorf("%s: validation failed:\n  %s", filePath, strings.Join(lines, "\n  "))
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
