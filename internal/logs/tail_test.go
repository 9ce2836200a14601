package logs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"loom/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	chunk, err := logs.Tail(path, 2)
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(chunk.Lines) != 2 || chunk.Lines[0] != "b" || chunk.Lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", chunk.Lines)
	}
	if chunk.Offset != 6 {
		t.Fatalf("expected offset at end of file, got %d", chunk.Offset)
	}

	short, err := logs.Tail(path, 10)
	if err != nil || len(short.Lines) != 3 {
		t.Fatalf("expected every line when limit exceeds file, got %#v (%v)", short.Lines, err)
	}
}

func TestTailMissingFileIsEmpty(t *testing.T) {
	chunk, err := logs.Tail(filepath.Join(t.TempDir(), "nope.log"), 5)
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(chunk.Lines) != 0 || chunk.Offset != 0 {
		t.Fatalf("unexpected chunk: %+v", chunk)
	}
}

func TestReadFromRestartsAfterTruncation(t *testing.T) {
	path := writeLog(t, "one\n")
	chunk, err := logs.ReadFrom(path, 1000)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(chunk.Lines) != 1 || chunk.Lines[0] != "one" {
		t.Fatalf("expected restart from beginning, got %#v", chunk.Lines)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := writeLog(t, "start\n")
	initial, err := logs.Tail(path, 1)
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	got := make(chan []string, 1)
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, initial.Offset, 20*time.Millisecond, func(lines []string) error {
			got <- lines
			cancel()
			return nil
		})
	}()

	time.Sleep(50 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case lines := <-got:
		if len(lines) != 1 || lines[0] != "later" {
			t.Fatalf("unexpected follow lines: %#v", lines)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("follow did not emit")
	}
	if err := <-done; err != nil {
		t.Fatalf("expected clean stop on cancel, got %v", err)
	}
}

func TestFollowStopsOnEmitError(t *testing.T) {
	path := writeLog(t, "a\n")
	stop := errors.New("stop")
	err := logs.Follow(context.Background(), path, 0, time.Millisecond, func([]string) error { return stop })
	if !errors.Is(err, stop) {
		t.Fatalf("expected emit error, got %v", err)
	}
}
