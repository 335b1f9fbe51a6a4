package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGenerateReport(t *testing.T) {
	temp := t.TempDir()
	outPath := filepath.Join(temp, "nested", "report.md")
	info := Info{
		Date:      "2026-02-03",
		Objective: "Credential exposure",
		Provider:  "anthropic/claude-sonnet-4-20250514",
		RunID:     "run-123",
		Steps:     []string{"List keychains", "Find SSH keys"},
		Completed: 1,
		Report:    "1. EXECUTIVE SUMMARY\nKeys found.",
		ToolCalls: 3,
		Duration:  95 * time.Second,
		Evidence:  []Evidence{{Tool: "find_ssh_keys", Output: "id_rsa"}},
	}
	if err := Generate("", outPath, info); err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	content := string(data)
	for _, want := range []string{
		"Date: 2026-02-03",
		"Objective: Credential exposure",
		"Provider: anthropic/claude-sonnet-4-20250514",
		"Run ID: run-123",
		"- [x] List keychains",
		"- [ ] Find SSH keys",
		"Keys found.",
		"Tool calls: 3",
		"Duration: 1m35s",
		"## Evidence Ledger",
		"### 1. find_ssh_keys",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in report:\n%s", want, content)
		}
	}
	if strings.Contains(content, "{{") {
		t.Fatalf("unreplaced placeholder in report:\n%s", content)
	}
}

func TestGenerateWithCustomTemplate(t *testing.T) {
	temp := t.TempDir()
	templatePath := filepath.Join(temp, "custom.md")
	if err := os.WriteFile(templatePath, []byte("Run ID:\n{{report}}\n"), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	outPath := filepath.Join(temp, "out.md")
	if err := Generate(templatePath, outPath, Info{RunID: "r1", Report: "body"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	data, _ := os.ReadFile(outPath)
	if string(data) != "Run ID: r1\nbody\n" {
		t.Fatalf("unexpected content: %q", string(data))
	}
}

func TestGenerateErrors(t *testing.T) {
	if err := Generate("", "", Info{}); err == nil {
		t.Fatalf("expected error for missing output path")
	}
	if err := Generate(filepath.Join(t.TempDir(), "missing.md"), filepath.Join(t.TempDir(), "out.md"), Info{}); err == nil {
		t.Fatalf("expected error for missing template")
	}
}

func TestRenderEmptyReport(t *testing.T) {
	content := Render("", Info{})
	if !strings.Contains(content, "_No report was produced._") || !strings.Contains(content, "_No plan steps were produced._") {
		t.Fatalf("expected placeholders for empty run:\n%s", content)
	}
}

func TestEvidenceIsTruncated(t *testing.T) {
	content := Render("", Info{Evidence: []Evidence{{Tool: "run_shell_command", Args: `{"command":"ps"}`, Output: strings.Repeat("a", maxEvidenceOutput+10)}}})
	if !strings.Contains(content, "... (truncated)") || !strings.Contains(content, `run_shell_command {"command":"ps"}`) {
		t.Fatalf("expected truncated evidence")
	}
}

func TestValidateRequiredSections(t *testing.T) {
	full := "## Executive Summary\n## Critical Findings\n## Credential Exposure\n## Pivot Opportunities\n## Data at Risk\n## Recommendations\n"
	if err := ValidateRequiredSections(full); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := ValidateRequiredSections("EXECUTIVE SUMMARY only")
	if err == nil || !strings.Contains(err.Error(), "RECOMMENDATIONS") {
		t.Fatalf("expected missing sections error, got %v", err)
	}
	if got := MissingSections("EXECUTIVE SUMMARY only"); len(got) != 5 {
		t.Fatalf("expected 5 missing sections, got %v", got)
	}
}
