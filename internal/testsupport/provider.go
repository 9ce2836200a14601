package testsupport

import (
	"context"
	"fmt"
	"sync"
)

// Call records one provider invocation.
type Call struct {
	System string
	Prompt string
}

// ScriptedProvider is a concurrency-safe fake generator. Respond computes the
// reply for the nth call (1-based); when nil, a reply echoing n is returned.
// FailOn injects errors for specific call numbers.
type ScriptedProvider struct {
	Respond func(n int, system, prompt string) (string, error)
	FailOn  map[int]error

	mu    sync.Mutex
	calls []Call
}

// Generate implements the generator interface used across the pipeline.
func (p *ScriptedProvider) Generate(ctx context.Context, system, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	p.calls = append(p.calls, Call{System: system, Prompt: prompt})
	n := len(p.calls)
	failure := p.FailOn[n]
	respond := p.Respond
	p.mu.Unlock()

	if failure != nil {
		return "", failure
	}
	if respond != nil {
		return respond(n, system, prompt)
	}
	return fmt.Sprintf("response %d", n), nil
}

// Calls returns a copy of the recorded calls.
func (p *ScriptedProvider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}
