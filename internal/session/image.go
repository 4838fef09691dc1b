// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/shellpod/shellpod/internal/config"
	"github.com/shellpod/shellpod/internal/container"
	"github.com/shellpod/shellpod/internal/issue"
)

// DefaultPullPolicy retries image pulls on transient registry failures.
var DefaultPullPolicy = container.RetryPolicy{Attempts: 3, BaseBackoff: time.Second, MaxBackoff: 8 * time.Second}

type (
	// ImageEngine is the part of the container engine that manages images.
	ImageEngine interface {
		ImageExists(ctx context.Context, image string) bool
		PullWithRetry(ctx context.Context, image string, policy container.RetryPolicy, stdout, stderr io.Writer) error
		Build(ctx context.Context, opts container.BuildOptions) error
	}

	// ImageOptions controls EnsureImage.
	ImageOptions struct {
		// ProjectDir resolves a relative build context (default: ".").
		ProjectDir string
		// Always pulls even when the image is present locally.
		Always bool
		// Policy overrides DefaultPullPolicy when Attempts is non-zero.
		Policy container.RetryPolicy
		Stdout io.Writer
		Stderr io.Writer
		Logger *log.Logger
	}
)

// EnsureImage builds the configured image when cfg has a build section, and
// otherwise pulls it if it is missing (or always, with opts.Always).
func EnsureImage(ctx context.Context, engine ImageEngine, cfg *config.Config, opts ImageOptions) error {
	image, err := cfg.ImageRef()
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("prepare image").
			WithIssue(issue.MissingImageId).
			Wrap(err).
			BuildError()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	if cfg.Build.Enabled() {
		buildOpts := container.BuildOptions{
			ContextDir: resolveDir(opts.ProjectDir, cfg.Build.Context),
			Dockerfile: cfg.Build.Dockerfile,
			Tag:        image,
			Stdout:     stdout,
			Stderr:     stderr,
		}
		logger.Info("building image", "image", image, "context", buildOpts.ContextDir)
		if err := engine.Build(ctx, buildOpts); err != nil {
			return issue.NewErrorContext().
				WithOperation("build image").
				WithResource(image).
				WithIssue(issue.ImageBuildFailedId).
				Wrap(err).
				BuildError()
		}
		return nil
	}

	if !opts.Always && engine.ImageExists(ctx, image) {
		logger.Debug("image present", "image", image)
		return nil
	}

	policy := opts.Policy
	if policy.Attempts == 0 {
		policy = DefaultPullPolicy
	}
	logger.Info("pulling image", "image", image)
	if err := engine.PullWithRetry(ctx, image, policy, stdout, stderr); err != nil {
		return issue.NewErrorContext().
			WithOperation("pull image").
			WithResource(image).
			WithIssue(issue.ImagePullFailedId).
			Wrap(err).
			BuildError()
	}
	return nil
}

func resolveDir(base, dir string) string {
	if base == "" {
		base = "."
	}
	if dir == "" {
		return base
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}
