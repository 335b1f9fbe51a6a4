package agent

import (
	"fmt"
	"strings"

	"github.com/Jawbreaker1/macassess/internal/report"
)

const systemPrompt = `You are a security assessment agent analyzing a macOS endpoint.
Your goal is to identify potential security risks and answer:
- If this endpoint was compromised, what would be the impact?
- Where could an attacker pivot to?
- What data could be stolen?
- What credentials could be taken?

You operate in phases:
1. PLANNING: Create a structured assessment plan based on the objective
2. EXECUTING: Execute your plan using available tools
3. REPORTING: Summarize findings and their security implications

Be thorough but efficient. Focus on high-impact findings.
Always explain the security implications of what you discover.`

const fallbackStep = "Perform a general security assessment"

var reportHints = []string{
	"Key risks in 2-3 sentences",
	"High-impact issues requiring immediate attention",
	"Any credentials, keys, or secrets found",
	"Where an attacker could move laterally",
	"Sensitive data that could be exfiltrated",
	"Prioritized remediation steps",
}

func planningPrompt(toolNames []string) string {
	b := strings.Builder{}
	b.WriteString("Based on the objective above, create a security assessment plan.\n\n")
	b.WriteString("Respond with a JSON object only, in this exact shape:\n")
	b.WriteString(`{"objective": "<one line summary of what we're assessing>", "steps": ["<first step>", "<second step>"]}`)
	b.WriteString("\n\nIf you cannot produce JSON, use this format instead:\nOBJECTIVE: <one line summary>\nSTEPS:\n1. <first step>\n2. <second step>\n\n")
	b.WriteString("Keep steps concrete and actionable. Focus on the most impactful checks first.\n")
	b.WriteString("Typically 5-10 steps is appropriate for a focused assessment.")
	if len(toolNames) > 0 {
		b.WriteString("\n\nTools available during execution: ")
		b.WriteString(strings.Join(toolNames, ", "))
	}
	return b.String()
}

func stepPrompt(step string) string {
	return fmt.Sprintf(`Current assessment step: %s

Execute this step using the available tools. Be thorough and note any security-relevant findings.
When done with this step, summarize what you found before moving on.`, step)
}

func budgetNotice(step string, turns int) string {
	return fmt.Sprintf("Turn budget exhausted for step %q after %d turns. Moving on to the next step.", step, turns)
}

func reportPrompt() string {
	b := strings.Builder{}
	b.WriteString("Based on all the findings from this assessment, generate a security report.\n\n")
	b.WriteString("Structure your report as:\n")
	for i, section := range report.Sections {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, section, reportHints[i])
	}
	b.WriteString("\nBe specific and actionable. Do not call any tools.")
	return b.String()
}

func toolErrorText(err error) string {
	return "Error: " + err.Error()
}
