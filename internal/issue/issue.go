// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	MissingImageId
	ContainerEngineNotFoundId
	ImagePullFailedId
	ImageBuildFailedId
	SSHAgentNotFoundId
	TmuxSocketNotFoundId
	NestedDockerFailedId
	InvalidInnerCommandId
	SessionLaunchFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // documentation for the failing component
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the page as styled terminal Markdown. stylePath is a glamour
// style name ("dark", "light", "notty") or a path to a JSON style.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("\n- " + string(link))
		}
		for _, link := range i.extLinks {
			md.WriteString("\n- " + string(link))
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

shellpod reads ` + "`shellpod.yaml`" + ` from the current directory (or the file
given with ` + "`--config`" + `) on top of ` + "`$XDG_CONFIG_HOME/shellpod/config.yaml`" + `.

## Things you can try:
- Check the file for YAML syntax errors
- Remove keys shellpod does not know; unknown keys are rejected
- Inspect the merged result:
~~~
$ shellpod config show
$ shellpod config path
~~~

## Example configuration:
~~~yaml
image: golang:1.25
shell: bash
init:
  - go mod download
forward_ssh_agent: true
~~~`,
	}

	missingImageIssue = &Issue{
		id: MissingImageId,
		mdMsg: `
# No image configured!

shellpod needs to know which image to start the shell in.

## Things you can try:
- Create a ` + "`shellpod.yaml`" + ` in your project:
~~~yaml
image: debian:stable-slim
~~~

- Or build your own image and tag it:
~~~yaml
image: myproject-dev
build:
  dockerfile: Dockerfile.dev
  context: .
~~~`,
	}

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# Container engine not found!

The configured container engine could not be found or its daemon did not answer.

## Things you can try:
- Install Docker: https://docs.docker.com/get-docker/
- Or install Podman and select it:
~~~yaml
engine: podman
~~~

- Make sure the daemon is running:
~~~
$ docker version
~~~`,
		extLinks: []HttpLink{"https://docs.docker.com/engine/install/"},
	}

	imagePullFailedIssue = &Issue{
		id: ImagePullFailedId,
		mdMsg: `
# Failed to pull image!

The image could not be downloaded from its registry.

## Things you can try:
- Check the image name and tag for typos
- Log in to private registries:
~~~
$ docker login registry.example.com
~~~

- Retry; registry and network hiccups are retried a few times before giving up`,
	}

	imageBuildFailedIssue = &Issue{
		id: ImageBuildFailedId,
		mdMsg: `
# Failed to build image!

The Dockerfile configured under ` + "`build`" + ` did not build.

## Things you can try:
- Build it by hand to see the full output:
~~~
$ docker build -f Dockerfile.dev .
~~~

- Check that ` + "`build.context`" + ` points at the directory holding your sources`,
	}

	sshAgentNotFoundIssue = &Issue{
		id: SSHAgentNotFoundId,
		mdMsg: `
# SSH agent not found!

` + "`forward_ssh_agent`" + ` is enabled but no usable agent socket was found.

## Things you can try:
- Start an agent and add your keys:
~~~
$ eval "$(ssh-agent)"
$ ssh-add
~~~

- Make sure ` + "`SSH_AUTH_SOCK`" + ` points at a socket inside a directory
- Or disable forwarding:
~~~yaml
forward_ssh_agent: false
~~~`,
	}

	tmuxSocketNotFoundIssue = &Issue{
		id: TmuxSocketNotFoundId,
		mdMsg: `
# tmux socket not found!

` + "`forward_tmux_socket`" + ` is enabled but shellpod is not running inside tmux.

## Things you can try:
- Start shellpod from a tmux pane
- Or disable forwarding:
~~~yaml
forward_tmux_socket: false
~~~`,
	}

	nestedDockerFailedIssue = &Issue{
		id: NestedDockerFailedId,
		mdMsg: `
# Nested docker could not be started!

` + "`dind`" + ` starts a privileged ` + "`docker:dind`" + ` helper and links the
session container to it.

## Things you can try:
- Use the docker engine; podman cannot link containers
- Allow privileged containers on your docker daemon
- Check the helper logs while it starts:
~~~
$ docker logs shellpod-dind-<id>
~~~`,
		extLinks: []HttpLink{"https://hub.docker.com/_/docker"},
	}

	invalidInnerCommandIssue = &Issue{
		id: InvalidInnerCommandId,
		mdMsg: `
# Invalid command!

An ` + "`init`" + ` line or the requested command is not valid POSIX shell.

## Things you can try:
- Close quotes and brackets
- Put each command on its own ` + "`init`" + ` entry; entries are joined with ` + "`&&`" + `
~~~yaml
init:
  - apt-get update
  - apt-get install -y make
~~~`,
	}

	sessionLaunchFailedIssue = &Issue{
		id: SessionLaunchFailedId,
		mdMsg: `
# Failed to start the container session!

The container engine could not be launched, or the session ended abnormally.

## Things you can try:
- Check the engine binary is on your PATH
- Run with verbose mode and inspect the engine command:
~~~
$ shellpod --verbose --dry-run
~~~`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		missingImageIssue.Id():            missingImageIssue,
		containerEngineNotFoundIssue.Id(): containerEngineNotFoundIssue,
		imagePullFailedIssue.Id():         imagePullFailedIssue,
		imageBuildFailedIssue.Id():        imageBuildFailedIssue,
		sshAgentNotFoundIssue.Id():        sshAgentNotFoundIssue,
		tmuxSocketNotFoundIssue.Id():      tmuxSocketNotFoundIssue,
		nestedDockerFailedIssue.Id():      nestedDockerFailedIssue,
		invalidInnerCommandIssue.Id():     invalidInnerCommandIssue,
		sessionLaunchFailedIssue.Id():     sessionLaunchFailedIssue,
	}
)

// Values returns every catalogue page ordered by Id.
func Values() []*Issue {
	values := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		values = append(values, i)
	}
	slices.SortFunc(values, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return values
}

func Get(id Id) *Issue {
	return issues[id]
}
