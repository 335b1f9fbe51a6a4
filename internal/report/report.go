package report

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

//go:embed template.md
var defaultTemplate string

// Sections are the report headings the reporter is asked to produce, in order.
var Sections = []string{
	"EXECUTIVE SUMMARY",
	"CRITICAL FINDINGS",
	"CREDENTIAL EXPOSURE",
	"PIVOT OPPORTUNITIES",
	"DATA AT RISK",
	"RECOMMENDATIONS",
}

type Evidence struct {
	Tool   string
	Args   string
	Output string
}

type Info struct {
	Date      string
	Objective string
	Provider  string
	RunID     string
	Steps     []string
	Completed int
	Report    string
	ToolCalls int
	Duration  time.Duration
	Evidence  []Evidence
}

// maxEvidenceOutput bounds each tool output copied into the appendix.
const maxEvidenceOutput = 2000

func DefaultTemplate() string {
	return defaultTemplate
}

// Render fills the template with info. An empty template uses the built-in one.
func Render(template string, info Info) string {
	if strings.TrimSpace(template) == "" {
		template = defaultTemplate
	}
	content := template
	date := info.Date
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	content = strings.ReplaceAll(content, "Date:", fmt.Sprintf("Date: %s", date))
	if info.Objective != "" {
		content = strings.ReplaceAll(content, "Objective:", fmt.Sprintf("Objective: %s", info.Objective))
	}
	if info.Provider != "" {
		content = strings.ReplaceAll(content, "Provider:", fmt.Sprintf("Provider: %s", info.Provider))
	}
	if info.RunID != "" {
		content = strings.ReplaceAll(content, "Run ID:", fmt.Sprintf("Run ID: %s", info.RunID))
	}
	content = strings.ReplaceAll(content, "Tool calls:", fmt.Sprintf("Tool calls: %d", info.ToolCalls))
	if info.Duration > 0 {
		content = strings.ReplaceAll(content, "Duration:", fmt.Sprintf("Duration: %s", info.Duration.Round(time.Second)))
	}
	// Model text goes in last so its contents are never treated as labels.
	content = strings.ReplaceAll(content, "{{plan}}", renderSteps(info.Steps, info.Completed))
	body := strings.TrimSpace(info.Report)
	if body == "" {
		body = "_No report was produced._"
	}
	content = strings.ReplaceAll(content, "{{report}}", body)
	if len(info.Evidence) > 0 {
		content = strings.TrimSpace(content) + "\n\n## Evidence Ledger\n\n" + renderEvidence(info.Evidence)
	}
	return strings.TrimSpace(content) + "\n"
}

// Generate renders info with the template at templatePath (built-in when
// empty) and writes the result to outPath.
func Generate(templatePath, outPath string, info Info) error {
	template := ""
	if templatePath != "" {
		data, err := os.ReadFile(templatePath)
		if err != nil {
			return fmt.Errorf("read template: %w", err)
		}
		template = string(data)
	}
	if outPath == "" {
		return fmt.Errorf("output path is required")
	}
	content := Render(template, info)
	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func renderSteps(steps []string, completed int) string {
	if len(steps) == 0 {
		return "_No plan steps were produced._"
	}
	lines := make([]string, 0, len(steps))
	for i, step := range steps {
		mark := " "
		if i < completed {
			mark = "x"
		}
		lines = append(lines, fmt.Sprintf("- [%s] %s", mark, step))
	}
	return strings.Join(lines, "\n")
}

func renderEvidence(evidence []Evidence) string {
	b := strings.Builder{}
	for i, item := range evidence {
		title := item.Tool
		if item.Args != "" {
			title += " " + item.Args
		}
		fmt.Fprintf(&b, "### %d. %s\n\n```\n%s\n```\n\n", i+1, title, truncate(strings.TrimSpace(item.Output), maxEvidenceOutput))
	}
	return strings.TrimSpace(b.String()) + "\n"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n... (truncated)"
}
