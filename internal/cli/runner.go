package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Jawbreaker1/macassess/internal/agent"
	"github.com/Jawbreaker1/macassess/internal/config"
	"github.com/Jawbreaker1/macassess/internal/exec"
	"github.com/Jawbreaker1/macassess/internal/history"
	"github.com/Jawbreaker1/macassess/internal/llm"
	"github.com/Jawbreaker1/macassess/internal/report"
	"github.com/Jawbreaker1/macassess/internal/tools"
)

type Options struct {
	Config config.Config
	// ReportPath, when set, receives a rendered markdown report per run.
	ReportPath string
	In         io.Reader
	Out        io.Writer
	Getenv     func(string) string
	// NewClient overrides llm.NewClient.
	NewClient func(context.Context, llm.Settings) (llm.Client, error)
}

// Runner owns everything shared by the runs of one process: the resolved
// provider, the guarded client, the tool registry and the history archive.
type Runner struct {
	cfg        config.Config
	settings   llm.Settings
	client     llm.Client
	registry   *tools.Registry
	console    *Console
	reader     *bufio.Reader
	reportPath string
	history    *history.DB
}

// NewRunner resolves the provider and builds the client. Configuration
// problems surface here, before any model call.
func NewRunner(ctx context.Context, opts Options) (*Runner, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	settings, err := llm.Resolve(opts.Config, getenv)
	if err != nil {
		return nil, err
	}
	newClient := opts.NewClient
	if newClient == nil {
		newClient = llm.NewClient
	}
	client, err := newClient(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", settings.Provider, err)
	}
	cfg := opts.Config
	in := opts.In
	if in == nil {
		in = os.Stdin
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	runner := &exec.Runner{
		DefaultTimeout: time.Duration(cfg.Tools.TimeoutSeconds) * time.Second,
		LogDir:         cfg.Session.LogDir,
	}
	r := &Runner{
		cfg:      cfg,
		settings: settings,
		client:   llm.NewGuardedClient(client, cfg.LLM.MaxFailures, time.Duration(cfg.LLM.CooldownSeconds)*time.Second),
		registry: tools.NewRegistry(runner, tools.Options{
			Timeout:       time.Duration(cfg.Tools.TimeoutSeconds) * time.Second,
			SearchTimeout: time.Duration(cfg.Tools.SearchTimeoutSeconds) * time.Second,
		}),
		console:    NewConsole(out, cfg.UI.Verbose, cfg.UI.NoColor),
		reader:     bufio.NewReader(in),
		reportPath: opts.ReportPath,
	}
	if cfg.History.Enabled && cfg.History.Path != "" {
		db, err := history.Open(ctx, cfg.History.Path)
		if err != nil {
			// A broken archive must not block an assessment.
			r.console.Warnf("history disabled: %v", err)
		} else {
			r.history = db
		}
	}
	return r, nil
}

func (r *Runner) Close() error {
	if r.history != nil {
		return r.history.Close()
	}
	return nil
}

// RunObjective performs one assessment and archives it.
func (r *Runner) RunObjective(ctx context.Context, objective string) (*agent.Result, error) {
	runID := uuid.NewString()
	logger, closeLog := r.runLogger(runID)
	defer closeLog()

	r.console.Printf("Assessing with %s/%s\n", r.settings.Provider, r.settings.Model)
	logger.Printf("objective: %s", objective)
	a := agent.New(r.client, r.registry, agent.Options{
		Model:           r.settings.Model,
		MaxTurnsPerStep: r.cfg.Agent.MaxTurnsPerStep,
		ParallelTools:   r.cfg.Agent.ParallelTools,
		Roles:           r.cfg.RoleOptions(0, 4096),
		Observer:        r.console.Observe,
		Logger:          logger,
	})
	res, err := a.Run(ctx, objective)
	if res == nil {
		return nil, err
	}
	r.console.Summary(res, runID)

	if res.Report != "" {
		if verr := report.ValidateRequiredSections(res.Report); verr != nil {
			r.console.Warnf("%v", verr)
		}
		if r.reportPath != "" {
			path := reportPath(r.reportPath, runID)
			if werr := report.Generate("", path, reportInfo(res, runID, r.settings)); werr != nil {
				r.console.Errorf("%v", werr)
			} else {
				r.console.Printf("Report written to %s\n", path)
			}
		}
	}
	if r.history != nil {
		// The run context may already be canceled; archiving still has to happen.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if herr := r.history.SaveRun(saveCtx, historyRun(res, runID, r.settings, err)); herr != nil {
			r.console.Warnf("save history: %v", herr)
		} else {
			logger.Printf("archived to %s", r.cfg.History.Path)
		}
	}
	return res, err
}

// Interactive reads objectives until EOF or exit. Each objective gets its own
// interrupt context, so Ctrl-C aborts the running assessment and returns to
// the prompt.
func (r *Runner) Interactive(ctx context.Context) error {
	r.console.Printf("macassess interactive mode (%s/%s). Type help for commands.\n", r.settings.Provider, r.settings.Model)
	for {
		r.console.Printf("macassess> ")
		line, err := r.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			if err == io.EOF {
				r.console.Printf("\n")
				return nil
			}
			continue
		}
		switch strings.ToLower(line) {
		case "exit", "quit", "q":
			return nil
		case "help":
			r.console.Printf("Enter an assessment objective, or one of: tools, providers, history, exit\n")
		case "tools":
			r.console.Tools(r.registry.Categories())
		case "providers":
			r.console.Providers(llm.Providers())
		case "history":
			if r.history == nil {
				r.console.Printf("History is disabled.\n")
				break
			}
			runs, herr := r.history.ListRuns(ctx, 20)
			if herr != nil {
				r.console.Errorf("%v", herr)
				break
			}
			r.console.History(runs)
		default:
			runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
			_, rerr := r.RunObjective(runCtx, line)
			stop()
			switch {
			case rerr == nil:
			case errors.Is(rerr, context.Canceled):
				r.console.Warnf("assessment interrupted")
			default:
				r.console.Errorf("%v", rerr)
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		if err == io.EOF {
			return nil
		}
	}
}

func (r *Runner) runLogger(runID string) (*log.Logger, func()) {
	var out io.Writer = io.Discard
	if r.cfg.UI.Verbose {
		out = r.console.Writer()
	}
	closer := func() {}
	if dir := r.cfg.Session.LogDir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err == nil {
			f, err := os.Create(filepath.Join(dir, "run-"+runID+".log"))
			if err == nil {
				out = io.MultiWriter(out, f)
				closer = func() { _ = f.Close() }
			}
		}
	}
	return log.New(out, fmt.Sprintf("[run:%s] ", shortID(runID)), log.LstdFlags), closer
}

// reportPath expands {run} so repeated interactive runs do not overwrite
// each other.
func reportPath(path, runID string) string {
	return strings.ReplaceAll(path, "{run}", shortID(runID))
}

func reportInfo(res *agent.Result, runID string, settings llm.Settings) report.Info {
	return report.Info{
		Date:      res.Started.UTC().Format("2006-01-02"),
		Objective: res.Objective,
		Provider:  fmt.Sprintf("%s/%s", settings.Provider, settings.Model),
		RunID:     runID,
		Steps:     res.Plan.Steps(),
		Completed: res.Plan.Cursor(),
		Report:    res.Report,
		ToolCalls: res.ToolCalls,
		Duration:  res.Finished.Sub(res.Started),
		Evidence:  evidence(res.Transcript),
	}
}

// evidence pairs every tool result with the call that produced it.
func evidence(transcript []llm.Message) []report.Evidence {
	calls := map[string]llm.ToolCall{}
	var out []report.Evidence
	for _, msg := range transcript {
		for _, call := range msg.ToolCalls {
			calls[call.ID] = call
		}
		if msg.Role != llm.RoleTool {
			continue
		}
		item := report.Evidence{Tool: msg.Name, Output: msg.Content}
		if call, ok := calls[msg.ToolCallID]; ok && len(call.Args) > 0 {
			if data, err := json.Marshal(call.Args); err == nil {
				item.Args = string(data)
			}
		}
		out = append(out, item)
	}
	return out
}

func historyRun(res *agent.Result, runID string, settings llm.Settings, runErr error) history.Run {
	run := history.Run{
		ID:            runID,
		Objective:     res.Objective,
		Provider:      string(settings.Provider),
		Model:         settings.Model,
		PlanObjective: res.Plan.Objective,
		Steps:         res.Plan.Steps(),
		Completed:     res.Plan.Cursor(),
		Status:        history.StatusComplete,
		Report:        res.Report,
		ToolCalls:     res.ToolCalls,
		StartedAt:     res.Started,
		FinishedAt:    res.Finished,
		Messages:      res.Transcript,
	}
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		run.Status = history.StatusCanceled
		run.Error = runErr.Error()
	default:
		run.Status = history.StatusFailed
		run.Error = runErr.Error()
	}
	return run
}
