package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"loom/internal/services"
)

// TraceEntry is one JSONL record describing a provider call.
type TraceEntry struct {
	TraceID   string        `json:"trace_id"`
	Timestamp time.Time     `json:"timestamp"`
	RunID     string        `json:"run_id"`
	Step      string        `json:"step"`
	SceneID   *int          `json:"scene_id,omitempty"`
	Provider  string        `json:"provider"`
	Model     string        `json:"model"`
	LatencyMS int64         `json:"latency_ms"`
	Status    string        `json:"status"`
	Request   traceRequest  `json:"request"`
	Response  traceResponse `json:"response"`
}

type traceRequest struct {
	System string `json:"system"`
	Prompt string `json:"prompt"`
}

type traceResponse struct {
	Text    string `json:"text"`
	CharLen int    `json:"char_len"`
	Error   string `json:"error,omitempty"`
}

// Tracing wraps a provider and appends every call to a JSONL trace file.
// It is safe for concurrent use by branch workers.
type Tracing struct {
	inner    Provider
	path     string
	provider string
	model    string
	now      func() time.Time

	mu sync.Mutex
}

// NewTracing wraps inner so each Generate call is recorded at path.
func NewTracing(inner Provider, path string) (*Tracing, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("trace: create directory: %w", err)
	}
	t := &Tracing{inner: inner, path: path, provider: "unknown", model: "unknown", now: time.Now}
	if d, ok := inner.(Describer); ok {
		t.provider = d.Name()
		t.model = d.Model()
	}
	return t, nil
}

func (t *Tracing) Name() string  { return t.provider }
func (t *Tracing) Model() string { return t.model }

// HealthCheck forwards to the wrapped provider when supported.
func (t *Tracing) HealthCheck(ctx context.Context) error {
	if hc, ok := t.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// Generate implements Provider.
func (t *Tracing) Generate(ctx context.Context, system, prompt string) (string, error) {
	return t.record(ctx, system, prompt, func() (string, error) {
		return t.inner.Generate(ctx, system, prompt)
	})
}

// CompleteJSON implements JSONCompleter, falling back to Generate when the
// wrapped provider has no JSON mode.
func (t *Tracing) CompleteJSON(ctx context.Context, system, prompt string) (string, error) {
	return t.record(ctx, system, prompt, func() (string, error) {
		return CompleteJSON(ctx, t.inner, system, prompt)
	})
}

func (t *Tracing) record(ctx context.Context, system, prompt string, call func() (string, error)) (string, error) {
	started := t.now()
	text, err := call()
	entry := TraceEntry{
		TraceID:   uuid.NewString(),
		Timestamp: started,
		Step:      "unknown",
		Provider:  t.provider,
		Model:     t.model,
		LatencyMS: t.now().Sub(started).Milliseconds(),
		Status:    "success",
		Request:   traceRequest{System: system, Prompt: prompt},
		Response:  traceResponse{Text: text, CharLen: utf8.RuneCountInString(text)},
	}
	if runID, ok := services.RunIDFromContext(ctx); ok {
		entry.RunID = runID
	}
	if phase, ok := services.PhaseFromContext(ctx); ok {
		entry.Step = phase
	}
	if scene, ok := services.SceneIDFromContext(ctx); ok {
		entry.SceneID = &scene
	}
	if err != nil {
		entry.Status = "error"
		entry.Response.Error = err.Error()
	}
	if writeErr := t.append(entry); writeErr != nil && err == nil {
		return text, writeErr
	}
	return text, err
}

func (t *Tracing) append(entry TraceEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("trace: encode: %w", err)
	}
	data = append(data, '\n')

	t.mu.Lock()
	defer t.mu.Unlock()
	file, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("trace: open: %w", err)
	}
	defer file.Close()
	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("trace: write: %w", err)
	}
	return nil
}
