package agent

import (
	"github.com/Jawbreaker1/macassess/internal/llm"
	"github.com/Jawbreaker1/macassess/internal/plan"
)

type EventType string

const (
	EventPhase      EventType = "phase"
	EventPlan       EventType = "plan"
	EventStep       EventType = "step"
	EventAssistant  EventType = "assistant"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventBudget     EventType = "budget"
	EventReport     EventType = "report"
)

// Event is a progress notification from the loop. Only the fields relevant
// to Type are set.
type Event struct {
	Type      EventType
	Phase     Phase
	Plan      *plan.Plan
	Step      string
	StepIndex int
	Text      string
	ToolCall  llm.ToolCall
	Output    string
	Err       error
}

// Observer receives events synchronously from the loop goroutine.
type Observer func(Event)
