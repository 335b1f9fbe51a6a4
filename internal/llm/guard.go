package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrGuardOpen = errors.New("llm disabled after repeated failures")

type Guard struct {
	maxFailures   int
	cooldown      time.Duration
	failures      int
	disabledUntil time.Time
	now           func() time.Time
}

func NewGuard(maxFailures int, cooldown time.Duration) Guard {
	return Guard{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

func (g *Guard) Allow() bool {
	if g == nil {
		return true
	}
	if g.disabledUntil.IsZero() {
		return true
	}
	return g.now().After(g.disabledUntil)
}

func (g *Guard) RecordFailure() {
	if g == nil || g.maxFailures <= 0 {
		return
	}
	g.failures++
	if g.failures >= g.maxFailures {
		g.disabledUntil = g.now().Add(g.cooldown)
	}
}

func (g *Guard) RecordSuccess() {
	if g == nil {
		return
	}
	g.failures = 0
	g.disabledUntil = time.Time{}
}

func (g *Guard) DisabledUntil() time.Time {
	if g == nil {
		return time.Time{}
	}
	return g.disabledUntil
}

func (g *Guard) Failures() int {
	if g == nil {
		return 0
	}
	return g.failures
}

// GuardedClient trips a Guard on consecutive failures and refuses calls with
// ErrGuardOpen until the cooldown passes. Canceled calls are not counted.
type GuardedClient struct {
	client Client
	mu     sync.Mutex
	guard  Guard
}

func NewGuardedClient(client Client, maxFailures int, cooldown time.Duration) *GuardedClient {
	return &GuardedClient{client: client, guard: NewGuard(maxFailures, cooldown)}
}

func (c *GuardedClient) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	c.mu.Lock()
	if !c.guard.Allow() {
		until := c.guard.DisabledUntil()
		c.mu.Unlock()
		return ChatResponse{}, fmt.Errorf("%w until %s", ErrGuardOpen, until.Format(time.Kitchen))
	}
	c.mu.Unlock()

	resp, err := c.client.Chat(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case err == nil:
		c.guard.RecordSuccess()
	case ctx.Err() == nil:
		c.guard.RecordFailure()
	}
	return resp, err
}
