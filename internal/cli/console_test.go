package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Jawbreaker1/macassess/internal/agent"
	"github.com/Jawbreaker1/macassess/internal/history"
	"github.com/Jawbreaker1/macassess/internal/llm"
	"github.com/Jawbreaker1/macassess/internal/plan"
	"github.com/Jawbreaker1/macassess/internal/tools"
)

func TestConsoleObserve(t *testing.T) {
	buf := &bytes.Buffer{}
	c := NewConsole(buf, false, true)
	p := plan.New("Assess keys", []string{"List keychains", "Find SSH keys"})
	long := strings.Repeat("line\n", previewLines+3)

	c.Observe(agent.Event{Type: agent.EventPhase, Phase: agent.PhaseExecuting})
	c.Observe(agent.Event{Type: agent.EventPlan, Plan: p})
	c.Observe(agent.Event{Type: agent.EventStep, Plan: p, Step: "Find SSH keys", StepIndex: 1})
	c.Observe(agent.Event{Type: agent.EventToolCall, ToolCall: llm.ToolCall{Name: "find_sensitive_files", Args: map[string]any{"search_path": "~"}}})
	c.Observe(agent.Event{Type: agent.EventToolResult, Output: long})
	c.Observe(agent.Event{Type: agent.EventBudget, Text: "Turn budget exhausted"})
	c.Observe(agent.Event{Type: agent.EventReport, Text: "EXECUTIVE SUMMARY"})

	out := buf.String()
	for _, want := range []string{
		"Plan: Assess keys",
		"  1. List keychains",
		"[2/2] Find SSH keys",
		"→ find_sensitive_files search_path=~",
		"... (3 more lines)",
		"Turn budget exhausted",
		"=== SECURITY REPORT ===\nEXECUTIVE SUMMARY",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "phase executing") {
		t.Fatalf("phase changes are verbose only:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("no-color console emitted escape codes: %q", out)
	}
}

func TestConsoleVerboseShowsFullOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	c := NewConsole(buf, true, true)
	c.Observe(agent.Event{Type: agent.EventPhase, Phase: agent.PhaseReporting})
	c.Observe(agent.Event{Type: agent.EventToolResult, Output: strings.Repeat("x\n", previewLines+3)})
	c.Observe(agent.Event{Type: agent.EventToolResult, Output: ""})
	out := buf.String()
	if !strings.Contains(out, "phase reporting") || strings.Contains(out, "more lines") {
		t.Fatalf("unexpected verbose output:\n%s", out)
	}
	if !strings.Contains(out, "    (no output)") {
		t.Fatalf("expected empty output placeholder:\n%s", out)
	}
}

func TestConsoleListings(t *testing.T) {
	buf := &bytes.Buffer{}
	c := NewConsole(buf, false, true)
	c.Providers(llm.Providers())
	c.Tools(tools.NewRegistry(nil, tools.Options{Home: "/Users/test"}).Categories())
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c.History([]history.Run{{ID: "0123456789abcdef", Status: history.StatusFailed, Provider: "openai", Model: "gpt-4o", Objective: "audit", Steps: []string{"a"}, StartedAt: started}})
	c.Run(&history.Run{ID: "r1", Objective: "audit", Status: history.StatusComplete, Steps: []string{"a", "b"}, Completed: 1, Report: "SUMMARY", StartedAt: started, FinishedAt: started.Add(90 * time.Second)})

	out := buf.String()
	for _, want := range []string{
		"anthropic", "ANTHROPIC_API_KEY", "vertex",
		"credentials", "find_ssh_keys", "search_path (optional)", "command (required)",
		"01234567", "failed", "0/1 steps",
		"Run r1", "(01:30)", "[x] a", "[ ] b", "SUMMARY",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	cases := map[time.Duration]string{
		-time.Second:                "00:00",
		65 * time.Second:            "01:05",
		2*time.Hour + 3*time.Minute: "02:03:00",
	}
	for in, want := range cases {
		if got := formatElapsed(in); got != want {
			t.Fatalf("formatElapsed(%s) = %q, want %q", in, got, want)
		}
	}
}
