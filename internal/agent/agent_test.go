package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Jawbreaker1/macassess/internal/exec"
	"github.com/Jawbreaker1/macassess/internal/llm"
	"github.com/Jawbreaker1/macassess/internal/tools"
)

type fakeClient struct {
	mu       sync.Mutex
	requests []llm.ChatRequest
	handle   func(n int, req llm.ChatRequest) (llm.ChatResponse, error)
}

func (f *fakeClient) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	f.mu.Lock()
	n := len(f.requests)
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.handle(n, req)
}

// scripted answers requests in order and fails once the script runs out.
func scripted(responses ...llm.Message) *fakeClient {
	return &fakeClient{handle: func(n int, req llm.ChatRequest) (llm.ChatResponse, error) {
		if n >= len(responses) {
			return llm.ChatResponse{}, fmt.Errorf("unexpected request %d", n)
		}
		return llm.ChatResponse{Message: responses[n]}, nil
	}}
}

func text(content string) llm.Message {
	return llm.Message{Role: llm.RoleAssistant, Content: content}
}

func toolCalls(calls ...llm.ToolCall) llm.Message {
	return llm.Message{Role: llm.RoleAssistant, ToolCalls: calls}
}

type countingRunner struct {
	mu    sync.Mutex
	calls []string
}

func (c *countingRunner) Execute(ctx context.Context, command string, timeout time.Duration) exec.CommandResult {
	c.mu.Lock()
	c.calls = append(c.calls, command)
	c.mu.Unlock()
	return exec.CommandResult{Command: command, Stdout: "id_ed25519\nid_ed25519.pub\n"}
}

func newRegistry(runner tools.Runner) *tools.Registry {
	return tools.NewRegistry(runner, tools.Options{Home: "/Users/test"})
}

func TestRunEndToEnd(t *testing.T) {
	client := scripted(
		text("OBJECTIVE: List SSH keys\nSTEPS:\n1. find_ssh_keys"),
		toolCalls(llm.ToolCall{ID: "call_1", Name: "find_ssh_keys", Args: map[string]any{}}),
		text("Found an ed25519 key pair."),
		text("1. EXECUTIVE SUMMARY\nOne SSH key pair is exposed."),
	)
	runner := &countingRunner{}
	events := []EventType{}
	a := New(client, newRegistry(runner), Options{Observer: func(e Event) { events = append(events, e.Type) }})

	result, err := a.Run(context.Background(), "list SSH keys")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("expected the tool to run once, ran %v", runner.calls)
	}
	if len(result.Transcript) != 10 {
		t.Fatalf("expected transcript of 10 entries, got %d", len(result.Transcript))
	}
	wantRoles := []string{
		llm.RoleUser, llm.RoleUser, llm.RoleAssistant,
		llm.RoleUser, llm.RoleAssistant,
		llm.RoleTool,
		llm.RoleUser, llm.RoleAssistant,
		llm.RoleUser, llm.RoleAssistant,
	}
	for i, msg := range result.Transcript {
		if msg.Role != wantRoles[i] {
			t.Fatalf("entry %d: role %s, want %s", i, msg.Role, wantRoles[i])
		}
	}
	if result.Transcript[0].Content != "list SSH keys" {
		t.Fatalf("expected objective first, got %q", result.Transcript[0].Content)
	}
	if !strings.Contains(result.Transcript[3].Content, "Current assessment step: find_ssh_keys") {
		t.Fatalf("expected step prompt, got %q", result.Transcript[3].Content)
	}
	toolMsg := result.Transcript[5]
	if toolMsg.ToolCallID != "call_1" || toolMsg.Name != "find_ssh_keys" || !strings.Contains(toolMsg.Content, "id_ed25519") {
		t.Fatalf("unexpected tool result: %+v", toolMsg)
	}
	if !strings.Contains(result.Transcript[8].Content, "EXECUTIVE SUMMARY") {
		t.Fatalf("expected report prompt, got %q", result.Transcript[8].Content)
	}
	if result.Report != "1. EXECUTIVE SUMMARY\nOne SSH key pair is exposed." {
		t.Fatalf("unexpected report: %q", result.Report)
	}
	if !result.Plan.IsComplete() || result.Plan.Objective != "List SSH keys" {
		t.Fatalf("unexpected plan state: %+v", result.Plan)
	}
	if result.ToolCalls != 1 || result.Phase != PhaseComplete {
		t.Fatalf("unexpected result summary: %+v", result)
	}

	if len(client.requests) != 4 {
		t.Fatalf("expected 4 llm calls, got %d", len(client.requests))
	}
	reportReq := client.requests[3]
	if reportReq.ToolChoice != llm.ToolChoiceNone || len(reportReq.Tools) == 0 {
		t.Fatalf("reporter must keep tools but forbid calls: %+v", reportReq.ToolChoice)
	}
	if len(client.requests[0].Tools) != 0 {
		t.Fatalf("planner must not receive tools")
	}
	if len(client.requests[1].Tools) != 14 {
		t.Fatalf("executor must receive the tool catalog")
	}
	for i, req := range client.requests {
		if req.System == "" {
			t.Fatalf("request %d missing system prompt", i)
		}
	}

	reports := 0
	for _, e := range events {
		if e == EventReport {
			reports++
		}
	}
	if reports != 1 || events[0] != EventPhase {
		t.Fatalf("unexpected events: %v", events)
	}
}

func TestRunEmptyPlanGoesStraightToReporting(t *testing.T) {
	client := scripted(
		text("I will look around."),
		text("Nothing was assessed."),
	)
	a := New(client, newRegistry(&countingRunner{}), Options{})
	result, err := a.Run(context.Background(), "assess")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Transcript) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(result.Transcript))
	}
	if result.Plan.Len() != 0 || result.Report != "Nothing was assessed." {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(client.requests[1].Tools) != 0 || client.requests[1].ToolChoice != "" {
		t.Fatalf("reporter without prior tool calls needs no tools")
	}
}

func TestRunUnknownToolFeedsErrorBack(t *testing.T) {
	client := scripted(
		text(`{"objective": "Check", "steps": ["Look"]}`),
		toolCalls(
			llm.ToolCall{ID: "a", Name: "format_disk"},
			llm.ToolCall{ID: "b", Name: "run_shell_command", Args: map[string]any{"command": 7}},
		),
		text("Done."),
		text("Report."),
	)
	runner := &countingRunner{}
	a := New(client, newRegistry(runner), Options{ParallelTools: true})
	result, err := a.Run(context.Background(), "check")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(runner.calls) != 0 {
		t.Fatalf("no command should run, ran %v", runner.calls)
	}
	unknown := result.Transcript[5]
	invalid := result.Transcript[6]
	if unknown.ToolCallID != "a" || !strings.Contains(unknown.Content, "unknown tool") {
		t.Fatalf("unexpected unknown-tool result: %+v", unknown)
	}
	if invalid.ToolCallID != "b" || !strings.Contains(invalid.Content, "invalid tool arguments") {
		t.Fatalf("unexpected invalid-args result: %+v", invalid)
	}
	if result.Report != "Report." {
		t.Fatalf("unexpected report: %q", result.Report)
	}
}

func TestRunTurnBudgetAdvancesStep(t *testing.T) {
	reports := 0
	client := &fakeClient{handle: func(n int, req llm.ChatRequest) (llm.ChatResponse, error) {
		last := req.Messages[len(req.Messages)-1].Content
		switch {
		case n == 0:
			return llm.ChatResponse{Message: text("OBJECTIVE: loop\nSTEPS:\n1. Keep going")}, nil
		case strings.Contains(last, "generate a security report"):
			reports++
			return llm.ChatResponse{Message: text("Report.")}, nil
		default:
			return llm.ChatResponse{Message: toolCalls(llm.ToolCall{ID: fmt.Sprintf("c%d", n), Name: "get_current_user"})}, nil
		}
	}}
	runner := &countingRunner{}
	var budgetEvents int
	a := New(client, newRegistry(runner), Options{
		MaxTurnsPerStep: 2,
		Observer: func(e Event) {
			if e.Type == EventBudget {
				budgetEvents++
			}
		},
	})
	result, err := a.Run(context.Background(), "loop forever")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("expected 2 tool runs within budget, got %d", len(runner.calls))
	}
	if len(client.requests) != 4 || reports != 1 {
		t.Fatalf("expected planner + 2 executor turns + reporter, got %d requests", len(client.requests))
	}
	if budgetEvents != 1 || !result.Plan.IsComplete() {
		t.Fatalf("expected budget notice and completed plan")
	}
	notice := result.Transcript[len(result.Transcript)-3]
	if !strings.Contains(notice.Content, "Turn budget exhausted") {
		t.Fatalf("expected budget notice before report prompt, got %q", notice.Content)
	}
}

func TestRunLLMFailureStopsWithoutReport(t *testing.T) {
	boom := errors.New("upstream 500")
	client := &fakeClient{handle: func(n int, req llm.ChatRequest) (llm.ChatResponse, error) {
		if n == 0 {
			return llm.ChatResponse{Message: text("OBJECTIVE: x\nSTEPS:\n1. y")}, nil
		}
		return llm.ChatResponse{}, boom
	}}
	a := New(client, newRegistry(&countingRunner{}), Options{})
	result, err := a.Run(context.Background(), "x")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped llm error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "executing phase:") {
		t.Fatalf("expected phase in error, got %q", err.Error())
	}
	if result == nil || result.Report != "" || result.Phase != PhaseExecuting {
		t.Fatalf("unexpected partial result: %+v", result)
	}
	if len(client.requests) != 2 {
		t.Fatalf("expected no reporter call, got %d requests", len(client.requests))
	}
}

type cancelingTools struct {
	*tools.Registry
	cancel context.CancelFunc
}

func (c cancelingTools) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	c.cancel()
	return "interrupted", nil
}

func TestRunStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := scripted(
		text("OBJECTIVE: x\nSTEPS:\n1. y"),
		toolCalls(llm.ToolCall{ID: "1", Name: "list_keychains"}),
	)
	a := New(client, cancelingTools{Registry: newRegistry(&countingRunner{}), cancel: cancel}, Options{})
	result, err := a.Run(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(client.requests) != 2 {
		t.Fatalf("expected no llm call after cancellation, got %d", len(client.requests))
	}
	if result.ToolCalls != 1 {
		t.Fatalf("expected tool result recorded before stopping")
	}
}

type slowTools struct {
	*tools.Registry
}

func (s slowTools) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	if name == "list_keychains" {
		time.Sleep(50 * time.Millisecond)
	}
	return "output of " + name, nil
}

func TestParallelToolResultsKeepRequestOrder(t *testing.T) {
	client := scripted(
		text("OBJECTIVE: x\nSTEPS:\n1. y"),
		toolCalls(
			llm.ToolCall{ID: "1", Name: "list_keychains"},
			llm.ToolCall{ID: "2", Name: "find_ssh_keys"},
			llm.ToolCall{ID: "3", Name: "get_current_user"},
		),
		text("done"),
		text("report"),
	)
	a := New(client, slowTools{Registry: newRegistry(&countingRunner{})}, Options{ParallelTools: true})
	result, err := a.Run(context.Background(), "x")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, want := range []string{"list_keychains", "find_ssh_keys", "get_current_user"} {
		msg := result.Transcript[5+i]
		if msg.Name != want || msg.Content != "output of "+want {
			t.Fatalf("result %d: got %+v, want %s", i, msg, want)
		}
	}
}

func TestRunSynthesizesMissingToolCallIDs(t *testing.T) {
	client := scripted(
		text("OBJECTIVE: x\nSTEPS:\n1. y"),
		toolCalls(llm.ToolCall{Name: "list_keychains"}),
		text("done"),
		text("report"),
	)
	a := New(client, newRegistry(&countingRunner{}), Options{})
	result, err := a.Run(context.Background(), "x")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	id := result.Transcript[4].ToolCalls[0].ID
	if id == "" || result.Transcript[5].ToolCallID != id {
		t.Fatalf("expected synthesized id shared by call and result, got %q / %q", id, result.Transcript[5].ToolCallID)
	}
}

func TestRunRejectsEmptyObjective(t *testing.T) {
	a := New(scripted(), newRegistry(&countingRunner{}), Options{})
	if _, err := a.Run(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty objective")
	}
}
