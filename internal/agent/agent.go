package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Jawbreaker1/macassess/internal/config"
	"github.com/Jawbreaker1/macassess/internal/llm"
	"github.com/Jawbreaker1/macassess/internal/plan"
)

const DefaultMaxTurnsPerStep = 8

// Tools is the slice of the tool registry the loop needs.
type Tools interface {
	Specs() []llm.ToolSpec
	Invoke(ctx context.Context, name string, args map[string]any) (string, error)
}

type Options struct {
	Model           string
	MaxTurnsPerStep int
	ParallelTools   bool
	// Roles carries sampling options keyed by config.RolePlanner and friends.
	Roles    map[string]config.RoleOptions
	Observer Observer
	Logger   *log.Logger
}

type Agent struct {
	client llm.Client
	tools  Tools
	opts   Options
	logger *log.Logger
}

// Result is what a run produced. On error it holds everything recorded up
// to the failure; Report is empty unless the reporting phase finished.
type Result struct {
	Objective  string
	Plan       *plan.Plan
	Transcript []llm.Message
	Report     string
	ToolCalls  int
	Phase      Phase
	Started    time.Time
	Finished   time.Time
}

func New(client llm.Client, tools Tools, opts Options) *Agent {
	if opts.MaxTurnsPerStep <= 0 {
		opts.MaxTurnsPerStep = DefaultMaxTurnsPerStep
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Agent{client: client, tools: tools, opts: opts, logger: logger}
}

// run is the mutable state of one Run call.
type run struct {
	agent      *Agent
	transcript Transcript
	plan       *plan.Plan
	pending    []llm.ToolCall
	turns      int
	toolCalls  int
	report     string
}

// Run drives the phase loop for one objective until the report is written,
// the context is canceled, or the model fails.
func (a *Agent) Run(ctx context.Context, objective string) (*Result, error) {
	objective = strings.TrimSpace(objective)
	if objective == "" {
		return nil, fmt.Errorf("objective is empty")
	}
	if a.client == nil || a.tools == nil {
		return nil, fmt.Errorf("agent requires an llm client and tools")
	}
	started := time.Now()
	r := &run{agent: a}
	phase := PhasePlanning
	for phase != PhaseComplete {
		a.emit(Event{Type: EventPhase, Phase: phase})
		signals, err := r.step(ctx, phase, objective)
		if err != nil {
			a.logger.Printf("%s phase failed: %v", phase, err)
			return r.result(objective, phase, started), fmt.Errorf("%s phase: %w", phase, err)
		}
		next := Next(phase, signals)
		a.logger.Printf("phase %s -> %s (tool_calls=%t plan_complete=%t)", phase, next, signals.HasToolCalls, signals.PlanComplete)
		phase = next
	}
	return r.result(objective, PhaseComplete, started), nil
}

func (r *run) step(ctx context.Context, phase Phase, objective string) (Signals, error) {
	switch phase {
	case PhasePlanning:
		if err := r.planning(ctx, objective); err != nil {
			return Signals{}, err
		}
		return Signals{PlanComplete: r.plan.IsComplete()}, nil
	case PhaseExecuting:
		if err := r.executing(ctx); err != nil {
			return Signals{}, err
		}
		return Signals{HasToolCalls: len(r.pending) > 0, PlanComplete: r.plan.IsComplete()}, nil
	case PhaseAwaitingTools:
		if err := r.awaitTools(ctx); err != nil {
			return Signals{}, err
		}
		return Signals{PlanComplete: r.plan.IsComplete()}, nil
	case PhaseAdvancing:
		r.plan.Advance()
		r.turns = 0
		return Signals{PlanComplete: r.plan.IsComplete()}, nil
	case PhaseReporting:
		return Signals{PlanComplete: true}, r.reporting(ctx)
	default:
		return Signals{}, ValidatePhase(phase)
	}
}

func (r *run) planning(ctx context.Context, objective string) error {
	a := r.agent
	specs := a.tools.Specs()
	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec.Name)
	}
	r.transcript.Append(llm.UserMessage(objective), llm.UserMessage(planningPrompt(names)))
	resp, err := a.chat(ctx, config.RolePlanner, r.transcript.Messages(), nil, "")
	if err != nil {
		return err
	}
	r.transcript.Append(resp.Message)
	r.plan = plan.Parse(resp.Message.Content)
	a.logger.Printf("plan: %q with %d steps", r.plan.Objective, r.plan.Len())
	a.emit(Event{Type: EventPlan, Phase: PhasePlanning, Plan: r.plan})
	return nil
}

func (r *run) executing(ctx context.Context) error {
	a := r.agent
	r.pending = nil
	step, ok := r.plan.NextStep()
	if !ok {
		step = fallbackStep
	}
	if r.turns >= a.opts.MaxTurnsPerStep {
		// The step keeps asking for tools; stop prompting and let the loop advance.
		notice := budgetNotice(step, r.turns)
		r.transcript.Append(llm.UserMessage(notice))
		a.logger.Printf("%s", notice)
		a.emit(Event{Type: EventBudget, Phase: PhaseExecuting, Step: step, StepIndex: r.plan.Cursor(), Text: notice})
		return nil
	}
	if r.turns == 0 {
		a.emit(Event{Type: EventStep, Phase: PhaseExecuting, Plan: r.plan, Step: step, StepIndex: r.plan.Cursor()})
	}
	r.turns++
	r.transcript.Append(llm.UserMessage(stepPrompt(step)))
	resp, err := a.chat(ctx, config.RoleExecutor, r.transcript.Messages(), a.tools.Specs(), llm.ToolChoiceAuto)
	if err != nil {
		return err
	}
	msg := resp.Message
	for i := range msg.ToolCalls {
		if strings.TrimSpace(msg.ToolCalls[i].ID) == "" {
			msg.ToolCalls[i].ID = "call_" + uuid.NewString()
		}
	}
	r.transcript.Append(msg)
	if strings.TrimSpace(msg.Content) != "" {
		a.emit(Event{Type: EventAssistant, Phase: PhaseExecuting, Step: step, Text: msg.Content})
	}
	r.pending = msg.ToolCalls
	return nil
}

func (r *run) awaitTools(ctx context.Context) error {
	a := r.agent
	calls := r.pending
	r.pending = nil
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, call := range calls {
		a.emit(Event{Type: EventToolCall, Phase: PhaseAwaitingTools, ToolCall: call})
	}

	outputs := make([]string, len(calls))
	invoke := func(i int) {
		started := time.Now()
		out, err := a.tools.Invoke(ctx, calls[i].Name, calls[i].Args)
		if err != nil {
			out = toolErrorText(err)
		}
		outputs[i] = out
		a.logger.Printf("tool %s (%s) finished in %s", calls[i].Name, calls[i].ID, time.Since(started).Round(time.Millisecond))
	}
	if a.opts.ParallelTools && len(calls) > 1 {
		var wg sync.WaitGroup
		for i := range calls {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				invoke(i)
			}(i)
		}
		wg.Wait()
	} else {
		for i := range calls {
			invoke(i)
		}
	}

	for i, call := range calls {
		r.transcript.Append(llm.ToolResultMessage(call, outputs[i]))
		r.toolCalls++
		a.emit(Event{Type: EventToolResult, Phase: PhaseAwaitingTools, ToolCall: call, Output: outputs[i]})
	}
	return nil
}

func (r *run) reporting(ctx context.Context) error {
	a := r.agent
	r.transcript.Append(llm.UserMessage(reportPrompt()))
	// Tool definitions stay in the request because the transcript may hold
	// tool calls; the choice forbids new ones.
	var specs []llm.ToolSpec
	choice := ""
	if r.toolCalls > 0 {
		specs = a.tools.Specs()
		choice = llm.ToolChoiceNone
	}
	resp, err := a.chat(ctx, config.RoleReporter, r.transcript.Messages(), specs, choice)
	if err != nil {
		return err
	}
	r.transcript.Append(resp.Message)
	r.report = strings.TrimSpace(resp.Message.Content)
	if r.report == "" {
		return errors.New("reporter returned no text")
	}
	a.emit(Event{Type: EventReport, Phase: PhaseReporting, Text: r.report})
	return nil
}

func (a *Agent) chat(ctx context.Context, role string, messages []llm.Message, specs []llm.ToolSpec, choice string) (llm.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return llm.ChatResponse{}, err
	}
	opts := a.opts.Roles[role]
	started := time.Now()
	resp, err := a.client.Chat(ctx, llm.ChatRequest{
		Model:       a.opts.Model,
		System:      systemPrompt,
		Messages:    messages,
		Tools:       specs,
		ToolChoice:  choice,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return llm.ChatResponse{}, fmt.Errorf("llm %s: %w", role, err)
	}
	a.logger.Printf("llm %s: %d messages, %d tool calls, finish=%q in %s",
		role, len(messages), len(resp.Message.ToolCalls), resp.FinishReason, time.Since(started).Round(time.Millisecond))
	return resp, nil
}

func (a *Agent) emit(e Event) {
	if a.opts.Observer != nil {
		a.opts.Observer(e)
	}
}

func (r *run) result(objective string, phase Phase, started time.Time) *Result {
	p := r.plan
	if p == nil {
		p = plan.New("", nil)
	}
	return &Result{
		Objective:  objective,
		Plan:       p,
		Transcript: r.transcript.Messages(),
		Report:     r.report,
		ToolCalls:  r.toolCalls,
		Phase:      phase,
		Started:    started,
		Finished:   time.Now(),
	}
}
