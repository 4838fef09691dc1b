// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/shellpod/shellpod/internal/config"
)

// renderDryRun prints the engine command a session would run, quoted so it
// can be pasted into a POSIX shell.
func renderDryRun(w io.Writer, binary string, args []string, cfg *config.Config) {
	fmt.Fprintln(w, TitleStyle.Render("Dry Run"))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %s %s\n", VerboseHighlightStyle.Render("Engine:"), cfg.Engine)
	fmt.Fprintf(w, "  %s %s\n", VerboseHighlightStyle.Render("Image:"), cfg.Image)
	fmt.Fprintf(w, "  %s %s\n", VerboseHighlightStyle.Render("Shell:"), cfg.Shell)
	if cfg.DinD {
		fmt.Fprintf(w, "  %s %s %s\n", VerboseHighlightStyle.Render("Nested docker:"), cfg.DinDImage,
			SubtitleStyle.Render("(not started in dry-run)"))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, VerboseHighlightStyle.Render("  Command:"))
	fmt.Fprintf(w, "    %s\n", shellJoin(append([]string{binary}, args...)))
	fmt.Fprintln(w)
}

// shellJoin quotes each word for bash and joins them with spaces.
func shellJoin(words []string) string {
	quoted := make([]string, len(words))
	for i, word := range words {
		q, err := syntax.Quote(word, syntax.LangBash)
		if err != nil {
			// Words bash cannot represent (NUL bytes) are shown verbatim.
			q = word
		}
		quoted[i] = q
	}
	return strings.Join(quoted, " ")
}
