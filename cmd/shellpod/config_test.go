// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shellpod/shellpod/internal/config"
	"github.com/shellpod/shellpod/internal/issue"
)

func TestConfigShow(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.ForwardSSHAgent = true
	cli := newTestCLI(t, cfg, nil)

	if err := cli.execute("config", "show"); err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	for _, want := range []string{"image: img", "shell: sh", "mount: /src", "forward_ssh_agent: true"} {
		if !strings.Contains(cli.stdout.String(), want) {
			t.Errorf("stdout is missing %q:\n%s", want, cli.stdout)
		}
	}
	if !strings.Contains(cli.stderr.String(), "/work/shellpod.yaml") {
		t.Errorf("stderr = %q, want the config file listed", cli.stderr.String())
	}
}

func TestConfigShow_WarnsWithoutImage(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.Image = ""
	cli := newTestCLI(t, cfg, nil)

	if err := cli.execute("config", "show"); err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if !strings.Contains(cli.stderr.String(), "no image configured") {
		t.Errorf("stderr = %q, want a missing image warning", cli.stderr.String())
	}
}

func TestConfigShow_LoadFailure(t *testing.T) {
	t.Parallel()
	var stdout, stderr bytes.Buffer
	loadErr := issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource("shellpod.yaml").
		WithIssue(issue.ConfigLoadFailedId).
		Wrap(errors.New("mount: invalid value")).
		BuildError()
	app := NewApp(Dependencies{
		Config: ConfigLoaderFunc(func(context.Context, config.LoadOptions) (*config.Config, config.Sources, error) {
			return nil, config.Sources{}, loadErr
		}),
		Stdout: &stdout,
		Stderr: &stderr,
	})
	root := NewRootCommand(app)
	root.SetArgs([]string{"config", "show"})

	err := root.ExecuteContext(context.Background())
	assertIssue(t, err, issue.ConfigLoadFailedId)
	if !errors.Is(err, loadErr) {
		t.Errorf("error %v does not wrap the load error", err)
	}
	if !strings.Contains(stderr.String(), "mount: invalid value") {
		t.Errorf("stderr = %q, want the cause", stderr.String())
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want nothing", stdout.String())
	}
}

func TestConfigPath(t *testing.T) {
	t.Parallel()
	cli := newTestCLI(t, testConfig(), nil)

	if err := cli.execute("config", "path"); err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	out := cli.stdout.String()
	if !strings.Contains(out, filepath.Join(config.UserConfigDir(), config.UserFileName)) {
		t.Errorf("stdout = %q, want the user config location", out)
	}
	if !strings.Contains(out, "/work/shellpod.yaml") {
		t.Errorf("stdout = %q, want the project file", out)
	}
}

func TestConfigFlagIsPassedToLoader(t *testing.T) {
	t.Parallel()
	var got config.LoadOptions
	var stdout bytes.Buffer
	app := NewApp(Dependencies{
		Config: ConfigLoaderFunc(func(_ context.Context, opts config.LoadOptions) (*config.Config, config.Sources, error) {
			got = opts
			return testConfig(), config.Sources{Project: opts.ConfigFilePath}, nil
		}),
		Stdout: &stdout,
		Stderr: &bytes.Buffer{},
	})
	root := NewRootCommand(app)
	root.SetArgs([]string{"--config", "ci/shellpod.yaml", "config", "path"})

	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if got.ConfigFilePath != "ci/shellpod.yaml" {
		t.Errorf("ConfigFilePath = %q, want ci/shellpod.yaml", got.ConfigFilePath)
	}
}

func TestConfigShow_Formats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{format: "yaml", want: "dind_image: docker:dind"},
		{format: "toml", want: "dind_image = "},
		{format: "json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()
			cli := newTestCLI(t, testConfig(), nil)

			err := cli.execute("config", "show", "--format", tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.Contains(cli.stdout.String(), tt.want) {
				t.Errorf("stdout = %q, want it to contain %q", cli.stdout.String(), tt.want)
			}
		})
	}
}
