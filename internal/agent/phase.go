package agent

import "fmt"

type Phase string

const (
	PhasePlanning      Phase = "planning"
	PhaseExecuting     Phase = "executing"
	PhaseAwaitingTools Phase = "awaiting_tools"
	PhaseAdvancing     Phase = "advancing"
	PhaseReporting     Phase = "reporting"
	PhaseComplete      Phase = "complete"
)

// Phases lists every phase in loop order.
var Phases = []Phase{
	PhasePlanning,
	PhaseExecuting,
	PhaseAwaitingTools,
	PhaseAdvancing,
	PhaseReporting,
	PhaseComplete,
}

// Signals are the observations a phase hands to the transition function.
type Signals struct {
	HasToolCalls bool
	PlanComplete bool
}

type cond int

const (
	anyValue cond = iota
	isTrue
	isFalse
)

func (c cond) matches(v bool) bool {
	switch c {
	case isTrue:
		return v
	case isFalse:
		return !v
	default:
		return true
	}
}

type transition struct {
	from         Phase
	toolCalls    cond
	planComplete cond
	to           Phase
}

// transitions is the whole phase graph. For every phase, exactly one row
// matches each combination of signals.
var transitions = []transition{
	{PhasePlanning, anyValue, isTrue, PhaseReporting},
	{PhasePlanning, anyValue, isFalse, PhaseExecuting},
	{PhaseExecuting, isTrue, anyValue, PhaseAwaitingTools},
	{PhaseExecuting, isFalse, isTrue, PhaseReporting},
	{PhaseExecuting, isFalse, isFalse, PhaseAdvancing},
	{PhaseAwaitingTools, anyValue, anyValue, PhaseExecuting},
	{PhaseAdvancing, anyValue, isTrue, PhaseReporting},
	{PhaseAdvancing, anyValue, isFalse, PhaseExecuting},
	{PhaseReporting, anyValue, anyValue, PhaseComplete},
	{PhaseComplete, anyValue, anyValue, PhaseComplete},
}

// Next returns the phase that follows from, given the signals it produced.
// Unknown phases terminate the loop.
func Next(from Phase, s Signals) Phase {
	for _, t := range transitions {
		if t.from == from && t.toolCalls.matches(s.HasToolCalls) && t.planComplete.matches(s.PlanComplete) {
			return t.to
		}
	}
	return PhaseComplete
}

func ValidatePhase(p Phase) error {
	for _, known := range Phases {
		if p == known {
			return nil
		}
	}
	return fmt.Errorf("invalid phase %q", p)
}
