// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"testing"
)

const helperProcessEnv = "GO_WANT_HELPER_PROCESS"

type (
	// CommandResult is the scripted outcome of one engine invocation.
	CommandResult struct {
		ExitCode int
		Stdout   string
		Stderr   string
	}

	// CommandResponder decides the outcome of an invocation from its arguments.
	CommandResponder func(name string, args []string) CommandResult

	// Invocation is one recorded command.
	Invocation struct {
		Name string
		Args []string
	}

	// CommandScript records engine invocations and answers them through a
	// re-executed test binary. The calling package must define
	//
	//	func TestHelperProcess(t *testing.T) { testutil.RunHelperProcess() }
	CommandScript struct {
		mu          sync.Mutex
		respond     CommandResponder
		invocations []Invocation
	}
)

// NewCommandScript creates a script. A nil responder makes every command
// succeed silently.
func NewCommandScript(respond CommandResponder) *CommandScript {
	if respond == nil {
		respond = func(string, []string) CommandResult { return CommandResult{} }
	}
	return &CommandScript{respond: respond}
}

// ContextFunc returns a function assignable to an exec.CommandContext-shaped
// injection point.
func (s *CommandScript) ContextFunc(t testing.TB) func(ctx context.Context, name string, arg ...string) *exec.Cmd {
	t.Helper()
	return func(_ context.Context, name string, args ...string) *exec.Cmd {
		return s.command(name, args)
	}
}

// Func returns a function assignable to an exec.Command-shaped injection point.
func (s *CommandScript) Func(t testing.TB) func(name string, arg ...string) *exec.Cmd {
	t.Helper()
	return func(name string, args ...string) *exec.Cmd {
		return s.command(name, args)
	}
}

func (s *CommandScript) command(name string, args []string) *exec.Cmd {
	s.mu.Lock()
	s.invocations = append(s.invocations, Invocation{Name: name, Args: slices.Clone(args)})
	res := s.respond(name, args)
	s.mu.Unlock()

	cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
	//nolint:gosec // TestHelperProcess is a test-only pattern
	cmd := exec.Command(os.Args[0], cs...) //nolint:noctx // re-executes the test binary
	cmd.Env = []string{
		helperProcessEnv + "=1",
		fmt.Sprintf("GO_HELPER_EXIT_CODE=%d", res.ExitCode),
		"GO_HELPER_STDOUT=" + res.Stdout,
		"GO_HELPER_STDERR=" + res.Stderr,
	}
	return cmd
}

// Invocations returns a copy of every recorded command.
func (s *CommandScript) Invocations() []Invocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.invocations)
}

// Lines returns the recorded commands as "name arg arg" strings.
func (s *CommandScript) Lines() []string {
	invs := s.Invocations()
	lines := make([]string, len(invs))
	for i, inv := range invs {
		lines[i] = strings.Join(append([]string{inv.Name}, inv.Args...), " ")
	}
	return lines
}

// CountPrefix returns how many recorded commands start with the given args.
func (s *CommandScript) CountPrefix(prefix ...string) int {
	n := 0
	for _, inv := range s.Invocations() {
		if len(inv.Args) >= len(prefix) && slices.Equal(inv.Args[:len(prefix)], prefix) {
			n++
		}
	}
	return n
}

// RunHelperProcess plays back a scripted result when the test binary was
// re-executed by a CommandScript, and returns otherwise.
func RunHelperProcess() {
	if os.Getenv(helperProcessEnv) != "1" {
		return
	}
	if stdout := os.Getenv("GO_HELPER_STDOUT"); stdout != "" {
		fmt.Fprint(os.Stdout, stdout)
	}
	if stderr := os.Getenv("GO_HELPER_STDERR"); stderr != "" {
		fmt.Fprint(os.Stderr, stderr)
	}
	exitCode := 0
	if code := os.Getenv("GO_HELPER_EXIT_CODE"); code != "" {
		fmt.Sscanf(code, "%d", &exitCode)
	}
	os.Exit(exitCode)
}
