package agent

import (
	"sync"

	"github.com/Jawbreaker1/macassess/internal/llm"
)

// Transcript is the append-only conversation of one run. The loop is the
// only writer; observers may read snapshots concurrently.
type Transcript struct {
	mu       sync.RWMutex
	messages []llm.Message
}

func (t *Transcript) Append(msgs ...llm.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msgs...)
}

// Messages returns a copy of the current transcript.
func (t *Transcript) Messages() []llm.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]llm.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}
