package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"loom/internal/services"
)

type failingProvider struct{}

func (failingProvider) Generate(context.Context, string, string) (string, error) {
	return "", errors.New("provider down")
}

func readTrace(t *testing.T, path string) []TraceEntry {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open trace: %v", err)
	}
	defer file.Close()
	var entries []TraceEntry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry TraceEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("decode trace line: %v", err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestTracingRecordsCallsConcurrently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "llm_trace.jsonl")
	tracer, err := NewTracing(NewMock(), path)
	if err != nil {
		t.Fatalf("NewTracing: %v", err)
	}
	ctx := services.WithRunID(context.Background(), "run-7")
	ctx = services.WithPhase(ctx, "drafting")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, err := tracer.Generate(services.WithSceneID(ctx, id), "Write prose.", "scene"); err != nil {
				t.Errorf("Generate: %v", err)
			}
		}(i + 1)
	}
	wg.Wait()

	entries := readTrace(t, path)
	if len(entries) != 5 {
		t.Fatalf("expected 5 trace lines, got %d", len(entries))
	}
	seen := map[string]bool{}
	for _, entry := range entries {
		if entry.RunID != "run-7" || entry.Step != "drafting" || entry.Provider != "mock" {
			t.Fatalf("unexpected entry: %+v", entry)
		}
		if entry.Status != "success" || entry.Response.CharLen == 0 || entry.SceneID == nil {
			t.Fatalf("unexpected response fields: %+v", entry)
		}
		if seen[entry.TraceID] {
			t.Fatalf("duplicate trace id %s", entry.TraceID)
		}
		seen[entry.TraceID] = true
	}
}

func TestTracingRecordsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	tracer, err := NewTracing(failingProvider{}, path)
	if err != nil {
		t.Fatalf("NewTracing: %v", err)
	}
	if _, err := tracer.Generate(context.Background(), "s", "p"); err == nil {
		t.Fatal("expected provider error to propagate")
	}
	entries := readTrace(t, path)
	if len(entries) != 1 || entries[0].Status != "error" || entries[0].Response.Error != "provider down" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[0].Provider != "unknown" || entries[0].Step != "unknown" {
		t.Fatalf("expected unknown provider/step defaults, got %+v", entries[0])
	}
}

func TestMockScenePlanDecodes(t *testing.T) {
	mock := NewMock()
	text, err := mock.Generate(context.Background(), "Respond with a JSON array of scenes.", "outline")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	var scenes []map[string]any
	if err := DecodeLLMJSON(text, &scenes); err != nil {
		t.Fatalf("decode mock plan: %v", err)
	}
	if len(scenes) != 3 {
		t.Fatalf("expected 3 scenes, got %d", len(scenes))
	}
	prose, _ := mock.Generate(context.Background(), "Write prose.", "hello")
	if prose == text {
		t.Fatal("expected prose output for non-JSON prompts")
	}
}

type jsonProvider struct{ failingProvider }

func (jsonProvider) CompleteJSON(context.Context, string, string) (string, error) {
	return `{"ok":true}`, nil
}

func TestTracingCompleteJSONUsesJSONMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	tracer, err := NewTracing(jsonProvider{}, path)
	if err != nil {
		t.Fatalf("NewTracing: %v", err)
	}
	text, err := tracer.CompleteJSON(context.Background(), "s", "p")
	if err != nil || text != `{"ok":true}` {
		t.Fatalf("CompleteJSON = %q, %v", text, err)
	}
	if _, err := CompleteJSON(context.Background(), failingProvider{}, "s", "p"); err == nil {
		t.Fatal("expected fallback to Generate to surface its error")
	}
	entries := readTrace(t, path)
	if len(entries) != 1 || entries[0].Status != "success" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
