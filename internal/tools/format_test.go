package tools

import (
	"testing"

	"github.com/Jawbreaker1/macassess/internal/exec"
)

func TestFormat(t *testing.T) {
	all := FormatOptions{Stderr: true, ExitCode: true}
	tests := []struct {
		name   string
		result exec.CommandResult
		opts   FormatOptions
		want   string
	}{
		{name: "stdout only", result: exec.CommandResult{Stdout: "out"}, opts: all, want: "out"},
		{name: "both streams", result: exec.CommandResult{Stdout: "out", Stderr: "err"}, opts: all, want: "out\nSTDERR: err"},
		{name: "stderr only", result: exec.CommandResult{Stderr: "err"}, opts: all, want: "err"},
		{name: "non-zero exit", result: exec.CommandResult{Stdout: "out", ExitCode: 2}, opts: all, want: "out\nReturn code: 2"},
		{name: "empty", result: exec.CommandResult{}, opts: all, want: "(no output)"},
		{name: "empty failure", result: exec.CommandResult{ExitCode: 1}, opts: all, want: "\nReturn code: 1"},
		{name: "stderr hidden", result: exec.CommandResult{Stdout: "out", Stderr: "err", ExitCode: 1}, opts: FormatOptions{}, want: "out"},
		{name: "hidden stderr alone", result: exec.CommandResult{Stderr: "err"}, opts: FormatOptions{}, want: "(no output)"},
		{name: "timeout", result: exec.CommandResult{Stderr: "command timed out after 30s", ExitCode: -1}, opts: all, want: "command timed out after 30s\nReturn code: -1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Format(tc.result, tc.opts); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestShellQuote(t *testing.T) {
	if got := shellQuote("it's"); got != `'it'\''s'` {
		t.Fatalf("unexpected quoting: %s", got)
	}
}

func TestExpandHome(t *testing.T) {
	cases := map[string]string{
		"~":          "/home/u",
		"~/Desktop":  "/home/u/Desktop",
		"/etc":       "/etc",
		"~other/dir": "~other/dir",
	}
	for in, want := range cases {
		if got := expandHome(in, "/home/u"); got != want {
			t.Fatalf("expandHome(%q) = %q, want %q", in, got, want)
		}
	}
}
