package plan

import (
	"encoding/json"
	"strings"
	"unicode"
)

// Parse builds a Plan from a planner response. It accepts the JSON form
// {"objective": "...", "steps": ["..."]} and falls back to scanning for an
// OBJECTIVE: line and a STEPS: section. It never fails: an unreadable
// response yields an empty, already complete plan.
func Parse(text string) *Plan {
	content := stripCodeFences(text)
	if p, ok := parseJSON(content); ok {
		return p
	}
	return parseLines(content)
}

func parseJSON(content string) (*Plan, bool) {
	raw := extractJSON(content)
	if !strings.HasPrefix(raw, "{") {
		return nil, false
	}
	var parsed struct {
		Objective string   `json:"objective"`
		Steps     []string `json:"steps"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, false
	}
	steps := []string{}
	for _, step := range parsed.Steps {
		if step = strings.TrimSpace(step); step != "" {
			steps = append(steps, step)
		}
	}
	objective := strings.TrimSpace(parsed.Objective)
	if objective == "" && len(steps) == 0 {
		return nil, false
	}
	return New(objective, steps), true
}

func parseLines(content string) *Plan {
	objective := ""
	steps := []string{}
	inSteps := false
	for _, line := range strings.Split(content, "\n") {
		header := headerText(line)
		if rest, ok := cutPrefixFold(header, "OBJECTIVE:"); ok {
			if objective == "" {
				objective = strings.TrimSpace(rest)
			}
			continue
		}
		if _, ok := cutPrefixFold(header, "STEPS:"); ok {
			inSteps = true
			continue
		}
		if !inSteps {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "```") {
			continue
		}
		if step := stripListMarker(trimmed); step != "" {
			steps = append(steps, step)
		}
	}
	return New(objective, steps)
}

// headerText drops markdown emphasis and heading markers around labels
// such as "**OBJECTIVE:**" or "## STEPS:".
func headerText(line string) string {
	text := strings.ReplaceAll(strings.TrimSpace(line), "**", "")
	return strings.TrimSpace(strings.TrimLeft(text, "# "))
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return s[len(prefix):], true
}

// stripListMarker removes "1." / "1)" numbering and "-", "*", "•" bullets.
func stripListMarker(line string) string {
	for _, bullet := range []string{"-", "*", "•"} {
		if strings.HasPrefix(line, bullet) {
			return strings.TrimSpace(strings.TrimPrefix(line, bullet))
		}
	}
	digits := 0
	for digits < len(line) && unicode.IsDigit(rune(line[digits])) {
		digits++
	}
	if digits > 0 && digits < len(line) && (line[digits] == '.' || line[digits] == ')') {
		return strings.TrimSpace(line[digits+1:])
	}
	return line
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimLeft(trimmed, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
		trimmed = strings.TrimSpace(trimmed)
	}
	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSuffix(trimmed, "```")
	}
	return strings.TrimSpace(trimmed)
}

func extractJSON(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return trimmed
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		return trimmed[start : end+1]
	}
	return trimmed
}
