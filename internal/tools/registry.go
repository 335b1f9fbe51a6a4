package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/Jawbreaker1/macassess/internal/exec"
	"github.com/Jawbreaker1/macassess/internal/llm"
)

var (
	ErrUnknownTool = errors.New("unknown tool")
	ErrInvalidArgs = errors.New("invalid tool arguments")
)

const (
	CategorySystem      = "system"
	CategoryCredentials = "credentials"
	CategoryNetwork     = "network"
	CategoryProcesses   = "processes"
	CategoryBrowser     = "browser"
	CategoryFilesystem  = "filesystem"
	CategoryShell       = "shell"
)

var categoryOrder = []string{
	CategorySystem,
	CategoryCredentials,
	CategoryNetwork,
	CategoryProcesses,
	CategoryBrowser,
	CategoryFilesystem,
	CategoryShell,
}

// Runner executes one shell command. *exec.Runner satisfies it.
type Runner interface {
	Execute(ctx context.Context, command string, timeout time.Duration) exec.CommandResult
}

type Param struct {
	Name        string
	Description string
	Required    bool
	Default     string
}

type Tool struct {
	Name        string
	Category    string
	Description string
	Params      []Param
	// Search marks long-running filesystem walks that use the search timeout.
	Search bool

	validate func(args map[string]string) error
	run      func(c call) string
}

type Options struct {
	Timeout       time.Duration
	SearchTimeout time.Duration
	// Home replaces a leading "~" in path arguments. Defaults to the user's home.
	Home string
}

type Registry struct {
	runner Runner
	opts   Options
	tools  []Tool
	byName map[string]int
}

// call carries everything one invocation needs.
type call struct {
	ctx     context.Context
	runner  Runner
	timeout time.Duration
	home    string
	args    map[string]string
}

func (c call) sh(command string) exec.CommandResult {
	return c.runner.Execute(c.ctx, command, c.timeout)
}

// NewRegistry builds the fixed tool catalog on top of runner.
func NewRegistry(runner Runner, opts Options) *Registry {
	if opts.Timeout <= 0 {
		opts.Timeout = exec.DefaultTimeout
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = 60 * time.Second
	}
	if opts.Home == "" {
		if home, err := os.UserHomeDir(); err == nil {
			opts.Home = home
		}
	}
	r := &Registry{runner: runner, opts: opts, byName: map[string]int{}}
	for _, group := range [][]Tool{
		systemTools(),
		credentialTools(),
		networkTools(),
		processTools(),
		browserTools(),
		filesystemTools(),
		shellTools(),
	} {
		for _, tool := range group {
			r.byName[tool.Name] = len(r.tools)
			r.tools = append(r.tools, tool)
		}
	}
	return r
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return Tool{}, false
	}
	return r.tools[idx], true
}

// List returns every tool in catalog order.
func (r *Registry) List() []Tool {
	out := make([]Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Categories groups the tools by category; see CategoryNames for ordering.
func (r *Registry) Categories() map[string][]Tool {
	out := map[string][]Tool{}
	for _, tool := range r.tools {
		out[tool.Category] = append(out[tool.Category], tool)
	}
	return out
}

// CategoryNames lists the known categories in display order.
func CategoryNames() []string {
	out := make([]string, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// Specs describes the catalog to the model.
func (r *Registry) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(r.tools))
	for _, tool := range r.tools {
		specs = append(specs, tool.Spec())
	}
	return specs
}

func (t Tool) Spec() llm.ToolSpec {
	properties := map[string]any{}
	required := []string{}
	for _, p := range t.Params {
		prop := map[string]any{"type": "string", "description": p.Description}
		if p.Default != "" {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	params := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		params["required"] = required
	}
	return llm.ToolSpec{Name: t.Name, Description: t.Description, Parameters: params}
}

// Invoke validates args and runs the named tool. Command failures are folded
// into the returned text; only ErrUnknownTool and ErrInvalidArgs are returned.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	tool, ok := r.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	values, err := tool.bind(args)
	if err != nil {
		return "", err
	}
	if tool.validate != nil {
		if err := tool.validate(values); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrInvalidArgs, name, err)
		}
	}
	timeout := r.opts.Timeout
	if tool.Search {
		timeout = r.opts.SearchTimeout
	}
	return tool.run(call{ctx: ctx, runner: r.runner, timeout: timeout, home: r.opts.Home, args: values}), nil
}

// bind checks args against the declared parameters and applies defaults.
// Null values count as absent.
func (t Tool) bind(args map[string]any) (map[string]string, error) {
	declared := map[string]Param{}
	for _, p := range t.Params {
		declared[p.Name] = p
	}
	unknown := []string{}
	values := map[string]string{}
	for key, raw := range args {
		if _, ok := declared[key]; !ok {
			unknown = append(unknown, key)
			continue
		}
		if raw == nil {
			continue
		}
		value, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s: parameter %q must be a string, got %T", ErrInvalidArgs, t.Name, key, raw)
		}
		values[key] = value
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s: unknown parameter(s) %s", ErrInvalidArgs, t.Name, strings.Join(unknown, ", "))
	}
	for _, p := range t.Params {
		if _, ok := values[p.Name]; ok {
			continue
		}
		if p.Required {
			return nil, fmt.Errorf("%w: %s: missing required parameter %q", ErrInvalidArgs, t.Name, p.Name)
		}
		if p.Default != "" {
			values[p.Name] = p.Default
		}
	}
	return values, nil
}
