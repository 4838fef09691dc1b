// SPDX-License-Identifier: MPL-2.0

package session

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// ErrInvalidScript is the sentinel wrapped by ScriptError.
var ErrInvalidScript = errors.New("invalid shell command")

// ScriptError reports a command line that does not parse as shell.
type ScriptError struct {
	// Line is the offending command text.
	Line string
	// Index is the position among the joined commands (init lines first).
	Index int
	Err   error
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	return fmt.Sprintf("command %d %q: %v", e.Index+1, e.Line, e.Err)
}

// Unwrap returns ErrInvalidScript and the parser error.
func (e *ScriptError) Unwrap() []error {
	return []error{ErrInvalidScript, e.Err}
}

// InnerCommand joins the init lines and the final command with " && " after
// checking that each one parses on its own in the dialect of shell. Blank
// init lines are skipped. Shells the parser does not know, such as fish, get
// no syntax check.
func InnerCommand(shell string, init []string, final string) (string, error) {
	lines := make([]string, 0, len(init)+1)
	for _, l := range init {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	lines = append(lines, final)

	lang, checked := shellDialect(shell)
	parser := syntax.NewParser(syntax.Variant(lang))
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			return "", &ScriptError{Line: l, Index: i, Err: errors.New("empty command")}
		}
		if !checked {
			continue
		}
		if _, err := parser.Parse(strings.NewReader(l), ""); err != nil {
			return "", &ScriptError{Line: l, Index: i, Err: err}
		}
	}
	return strings.Join(lines, " && "), nil
}

// shellDialect maps a shell command such as "/bin/bash -l" to the parser
// variant for it. ok is false when the parser has no matching dialect.
func shellDialect(shell string) (lang syntax.LangVariant, ok bool) {
	fields := strings.Fields(shell)
	if len(fields) == 0 {
		return syntax.LangBash, true
	}
	name := path.Base(fields[0])
	switch name {
	case "sh", "dash", "ash":
		name = "posix"
	case "ksh":
		name = "mksh"
	case "auto":
		return 0, false
	}
	if err := lang.Set(name); err != nil {
		return 0, false
	}
	return lang, true
}
