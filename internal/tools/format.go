package tools

import (
	"fmt"
	"strings"

	"github.com/Jawbreaker1/macassess/internal/exec"
)

const noOutput = "(no output)"

type FormatOptions struct {
	Stderr   bool
	ExitCode bool
}

// Format renders a command result for the transcript. Stderr is appended
// after stdout (or used alone), and a non-zero exit code is reported last.
func Format(result exec.CommandResult, opts FormatOptions) string {
	out := result.Stdout
	if opts.Stderr && result.Stderr != "" {
		if out != "" {
			out += "\nSTDERR: " + result.Stderr
		} else {
			out = result.Stderr
		}
	}
	if opts.ExitCode && !result.Success() {
		out += fmt.Sprintf("\nReturn code: %d", result.ExitCode)
	}
	if out == "" {
		return noOutput
	}
	return out
}

// output is the plain form used by most tools: stdout, else stderr.
func output(result exec.CommandResult) string {
	if text := result.Output(); text != "" {
		return text
	}
	return noOutput
}

// detail is stdout for a command that succeeded. A failed command keeps its
// stderr and exit code so an empty result never reads as "nothing there".
func detail(result exec.CommandResult) string {
	if result.Success() {
		return result.Stdout
	}
	return Format(result, FormatOptions{Stderr: true, ExitCode: true})
}

// interrupted reports a command that never produced an exit status.
func interrupted(result exec.CommandResult) bool {
	return result.ExitCode < 0
}

func section(title, body string) string {
	return "=== " + title + " ===\n" + body
}

func joinLines(parts []string) string {
	return strings.Join(parts, "\n")
}

// shellQuote wraps s in single quotes for /bin/sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
