package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"loom/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Runs directory", statusError, "missing", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Runs directory:", "[ERROR] missing")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("ntfy", statusOK, "Reachable", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestPreflightLines(t *testing.T) {
	results := []preflight.Result{
		{Name: "Runs directory", Passed: true, Detail: "/tmp/runs (read/write ok)"},
		{Name: "LLM provider", Detail: "API key missing"},
	}
	lines := preflightLines(results, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[ERROR] 1 of 2 checks failed") {
		t.Fatalf("expected failing summary first, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[OK] /tmp/runs") {
		t.Fatalf("unexpected second line %q", lines[1])
	}
	if !strings.Contains(lines[2], "[ERROR] API key missing") {
		t.Fatalf("unexpected third line %q", lines[2])
	}

	if empty := preflightLines(nil, false); len(empty) != 1 || !strings.Contains(empty[0], "No checks configured") {
		t.Fatalf("unexpected empty rendering: %v", empty)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
