package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/Jawbreaker1/macassess/internal/agent"
	"github.com/Jawbreaker1/macassess/internal/history"
	"github.com/Jawbreaker1/macassess/internal/llm"
	"github.com/Jawbreaker1/macassess/internal/tools"
)

// previewLines is how much of a tool result is echoed outside verbose mode.
const previewLines = 6

// Console renders run progress for a human. All writes are serialized.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool

	title *color.Color
	step  *color.Color
	tool  *color.Color
	warn  *color.Color
	fail  *color.Color
	faint *color.Color
}

func NewConsole(out io.Writer, verbose, noColor bool) *Console {
	if out == nil {
		out = io.Discard
	}
	c := &Console{
		out:     out,
		verbose: verbose,
		title:   color.New(color.FgHiWhite, color.Bold),
		step:    color.New(color.FgCyan, color.Bold),
		tool:    color.New(color.FgYellow),
		warn:    color.New(color.FgHiYellow),
		fail:    color.New(color.FgRed, color.Bold),
		faint:   color.New(color.Faint),
	}
	if noColor || !isTerminal(out) {
		for _, col := range []*color.Color{c.title, c.step, c.tool, c.warn, c.fail, c.faint} {
			col.DisableColor()
		}
	}
	return c
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (c *Console) Writer() io.Writer {
	return consoleWriter{c}
}

type consoleWriter struct{ c *Console }

func (w consoleWriter) Write(p []byte) (int, error) {
	w.c.mu.Lock()
	defer w.c.mu.Unlock()
	return w.c.out.Write(p)
}

func (c *Console) Printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) Warnf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warn.Fprintf(c.out, "warning: "+format+"\n", args...)
}

func (c *Console) Errorf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail.Fprintf(c.out, "error: "+format+"\n", args...)
}

// Observe prints one agent event.
func (c *Console) Observe(e agent.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch e.Type {
	case agent.EventPhase:
		if c.verbose {
			c.faint.Fprintf(c.out, "» phase %s\n", e.Phase)
		}
	case agent.EventPlan:
		c.title.Fprintf(c.out, "\nPlan: %s\n", e.Plan.Objective)
		steps := e.Plan.Steps()
		if len(steps) == 0 {
			c.warn.Fprintln(c.out, "  (no steps parsed, going straight to the report)")
		}
		for i, step := range steps {
			fmt.Fprintf(c.out, "  %d. %s\n", i+1, step)
		}
	case agent.EventStep:
		total := 0
		if e.Plan != nil {
			total = e.Plan.Len()
		}
		if total > 0 {
			c.step.Fprintf(c.out, "\n[%d/%d] %s\n", e.StepIndex+1, total, e.Step)
		} else {
			c.step.Fprintf(c.out, "\n[%d] %s\n", e.StepIndex+1, e.Step)
		}
	case agent.EventAssistant:
		fmt.Fprintln(c.out, indent(strings.TrimSpace(e.Text), "  "))
	case agent.EventToolCall:
		c.tool.Fprintf(c.out, "  → %s%s\n", e.ToolCall.Name, formatArgs(e.ToolCall.Args))
	case agent.EventToolResult:
		out := strings.TrimSpace(e.Output)
		if !c.verbose {
			out = preview(out, previewLines)
		}
		c.faint.Fprintln(c.out, indent(out, "    "))
	case agent.EventBudget:
		c.warn.Fprintf(c.out, "  %s\n", e.Text)
	case agent.EventReport:
		c.title.Fprintln(c.out, "\n=== SECURITY REPORT ===")
		fmt.Fprintln(c.out, strings.TrimSpace(e.Text))
	}
}

// Summary prints the closing line of a run.
func (c *Console) Summary(res *agent.Result, runID string) {
	if res == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faint.Fprintf(c.out, "\nrun %s: %d/%d steps, %d tool calls, %s\n",
		shortID(runID), res.Plan.Cursor(), res.Plan.Len(), res.ToolCalls, formatElapsed(res.Finished.Sub(res.Started)))
}

func (c *Console) Providers(list []llm.ProviderInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.title.Fprintln(c.out, "Available providers:")
	for _, info := range list {
		c.step.Fprintf(c.out, "  %-10s", info.Name)
		fmt.Fprintf(c.out, " %s\n", info.Description)
		fmt.Fprintf(c.out, "             env: %s  default model: %s\n", info.EnvVar, info.DefaultModel)
		if len(info.Models) > 0 {
			c.faint.Fprintf(c.out, "             models: %s\n", strings.Join(info.Models, ", "))
		}
	}
}

func (c *Console) Tools(groups map[string][]tools.Tool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, category := range tools.CategoryNames() {
		list := groups[category]
		if len(list) == 0 {
			continue
		}
		c.title.Fprintf(c.out, "%s\n", category)
		for _, tool := range list {
			c.step.Fprintf(c.out, "  %s", tool.Name)
			fmt.Fprintf(c.out, "  %s\n", tool.Description)
			for _, p := range tool.Params {
				req := "optional"
				if p.Required {
					req = "required"
				}
				c.faint.Fprintf(c.out, "      %s (%s) %s\n", p.Name, req, p.Description)
			}
		}
	}
}

func (c *Console) History(runs []history.Run) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "No runs recorded.")
		return
	}
	for _, run := range runs {
		status := c.step
		if run.Status != history.StatusComplete {
			status = c.warn
		}
		fmt.Fprintf(c.out, "%s  %s  ", shortID(run.ID), run.StartedAt.Local().Format("2006-01-02 15:04"))
		status.Fprintf(c.out, "%-8s", run.Status)
		fmt.Fprintf(c.out, "  %d/%d steps  %s/%s  %s\n", run.Completed, len(run.Steps), run.Provider, run.Model, oneLine(run.Objective, 60))
	}
}

func (c *Console) Run(run *history.Run) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.title.Fprintf(c.out, "Run %s\n", run.ID)
	fmt.Fprintf(c.out, "Objective: %s\n", run.Objective)
	fmt.Fprintf(c.out, "Provider:  %s/%s\n", run.Provider, run.Model)
	fmt.Fprintf(c.out, "Status:    %s\n", run.Status)
	if run.Error != "" {
		c.fail.Fprintf(c.out, "Error:     %s\n", run.Error)
	}
	fmt.Fprintf(c.out, "Started:   %s (%s)\n", run.StartedAt.Local().Format(time.RFC3339), formatElapsed(run.FinishedAt.Sub(run.StartedAt)))
	fmt.Fprintf(c.out, "Tool calls: %d\n", run.ToolCalls)
	if run.PlanObjective != "" {
		c.title.Fprintf(c.out, "\nPlan: %s\n", run.PlanObjective)
	}
	for i, step := range run.Steps {
		mark := " "
		if i < run.Completed {
			mark = "x"
		}
		fmt.Fprintf(c.out, "  [%s] %s\n", mark, step)
	}
	if c.verbose {
		c.title.Fprintln(c.out, "\nTranscript:")
		for _, msg := range run.Messages {
			c.faint.Fprintf(c.out, "[%s]", msg.Role)
			if msg.Name != "" {
				c.faint.Fprintf(c.out, " %s", msg.Name)
			}
			fmt.Fprintln(c.out)
			for _, call := range msg.ToolCalls {
				c.tool.Fprintf(c.out, "  → %s%s\n", call.Name, formatArgs(call.Args))
			}
			if text := strings.TrimSpace(msg.Content); text != "" {
				fmt.Fprintln(c.out, indent(text, "  "))
			}
		}
	}
	if run.Report != "" {
		c.title.Fprintln(c.out, "\n=== SECURITY REPORT ===")
		fmt.Fprintln(c.out, run.Report)
	}
}

func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	keys := make([]string, 0, len(args))
	for key := range args {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", key, args[key]))
	}
	return " " + strings.Join(parts, " ")
}

func preview(text string, max int) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= max {
		return text
	}
	return strings.Join(lines[:max], "\n") + fmt.Sprintf("\n... (%d more lines)", len(lines)-max)
}

func indent(text, prefix string) string {
	if text == "" {
		return prefix + "(no output)"
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func oneLine(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= max {
		return text
	}
	return text[:max-3] + "..."
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatElapsed(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
