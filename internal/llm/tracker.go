package llm

import (
	"context"
	"sync"

	"github.com/ShayCichocki/gads/pkg/models"
)

// TokenTracker accumulates usage and estimated cost across calls.
type TokenTracker struct {
	mu    sync.Mutex
	usage models.TokenUsage
	cost  float64
	calls int
}

// NewTokenTracker creates a new token tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Add records the usage of one call on model.
func (t *TokenTracker) Add(model string, u models.TokenUsage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage = t.usage.Add(u)
	t.cost += u.EstimateCost(model)
	t.calls++
}

// Total returns the accumulated usage.
func (t *TokenTracker) Total() models.TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}

// Cost returns the accumulated estimated cost in USD.
func (t *TokenTracker) Cost() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cost
}

// Calls returns the number of calls recorded.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Reset clears all tracked usage.
func (t *TokenTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage = models.TokenUsage{}
	t.cost = 0
	t.calls = 0
}

// Tracked wraps a Provider and records every successful call in a tracker.
type Tracked struct {
	Provider
	tracker *TokenTracker
}

// WithTracker returns p wrapped so its usage is added to t.
func WithTracker(p Provider, t *TokenTracker) *Tracked {
	return &Tracked{Provider: p, tracker: t}
}

// Complete forwards to the wrapped provider and records usage.
func (p *Tracked) Complete(ctx context.Context, req Request) (*Completion, error) {
	resp, err := p.Provider.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Usage != nil {
		p.tracker.Add(resp.Model, *resp.Usage)
	}
	return resp, nil
}
