package plan

// DefaultObjective labels plans whose planner response named no objective.
const DefaultObjective = "Security assessment"

// Plan is an ordered list of assessment steps with a progress cursor.
// Steps are fixed at creation; only Advance moves the cursor.
type Plan struct {
	Objective string
	steps     []string
	cursor    int
}

func New(objective string, steps []string) *Plan {
	if objective == "" {
		objective = DefaultObjective
	}
	copied := make([]string, len(steps))
	copy(copied, steps)
	return &Plan{Objective: objective, steps: copied}
}

// NextStep returns the step under the cursor, or false once the plan is complete.
func (p *Plan) NextStep() (string, bool) {
	if p == nil || p.cursor >= len(p.steps) {
		return "", false
	}
	return p.steps[p.cursor], true
}

// Advance moves past the current step. It is a no-op on a complete plan.
func (p *Plan) Advance() {
	if p == nil || p.cursor >= len(p.steps) {
		return
	}
	p.cursor++
}

func (p *Plan) IsComplete() bool {
	return p == nil || p.cursor == len(p.steps)
}

func (p *Plan) Cursor() int {
	if p == nil {
		return 0
	}
	return p.cursor
}

func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.steps)
}

func (p *Plan) Steps() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.steps))
	copy(out, p.steps)
	return out
}
