package hitl_test

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"loom/internal/hitl"
)

func TestConsolePromptInput(t *testing.T) {
	var out bytes.Buffer
	ui := hitl.NewConsole(strings.NewReader("\n  custom  \n"), &out, false)

	got, err := ui.PromptInput("Name", "default")
	if err != nil || got != "default" {
		t.Fatalf("blank answer: got %q, %v", got, err)
	}
	got, err = ui.PromptInput("Name", "default")
	if err != nil || got != "custom" {
		t.Fatalf("typed answer: got %q, %v", got, err)
	}
	if _, err := ui.PromptInput("Name", "default"); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
	if !strings.Contains(out.String(), "Name [default]: ") {
		t.Fatalf("unexpected prompt output %q", out.String())
	}
}

func TestConsolePromptMultiline(t *testing.T) {
	ui := hitl.NewConsole(strings.NewReader("make it colder\nand shorter\nEND\nleftover\n"), io.Discard, false)
	got, err := ui.PromptMultiline("Feedback")
	if err != nil {
		t.Fatal(err)
	}
	if got != "make it colder\nand shorter" {
		t.Fatalf("unexpected text %q", got)
	}
	rest, err := ui.PromptInput("next", "")
	if err != nil || rest != "leftover" {
		t.Fatalf("terminator must end input exactly: %q %v", rest, err)
	}

	eof := hitl.NewConsole(strings.NewReader("no terminator"), io.Discard, false)
	got, err = eof.PromptMultiline("Feedback")
	if err != nil || got != "no terminator" {
		t.Fatalf("EOF should end multiline input: %q %v", got, err)
	}
}

func TestConsoleAskChoiceRepromptsOnInvalidInput(t *testing.T) {
	var out bytes.Buffer
	ui := hitl.NewConsole(strings.NewReader("9\nabc\n2\n"), &out, false)
	idx, err := ui.AskChoice("Pick", []string{"one", "two"}, []string{"first", ""})
	if err != nil {
		t.Fatal(err)
	}
	if idx != 1 {
		t.Fatalf("expected index 1, got %d", idx)
	}
	if strings.Count(out.String(), "Enter a number between 1 and 2.") != 2 {
		t.Fatalf("expected two reprompts:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "1) one") || !strings.Contains(out.String(), "- first") {
		t.Fatalf("options not listed:\n%s", out.String())
	}
}

func TestConsoleConfirm(t *testing.T) {
	ui := hitl.NewConsole(strings.NewReader("maybe\nY\n\n"), io.Discard, false)
	ok, err := ui.Confirm("Proceed?", false)
	if err != nil || !ok {
		t.Fatalf("expected yes after reprompt: %v %v", ok, err)
	}
	ok, err = ui.Confirm("Proceed?", true)
	if err != nil || !ok {
		t.Fatalf("blank must return default: %v %v", ok, err)
	}
}

func TestConsoleNotifyRendersBanner(t *testing.T) {
	var out bytes.Buffer
	ui := hitl.NewConsole(strings.NewReader(""), &out, false)
	ui.Notify("Loom - Phase Complete", "outline finished", map[string]any{"run_id": "abc"})
	text := out.String()
	for _, want := range []string{"Loom - Phase Complete", "outline finished", "run_id: abc"} {
		if !strings.Contains(text, want) {
			t.Fatalf("banner missing %q:\n%s", want, text)
		}
	}
}

func TestBatchReturnsDefaults(t *testing.T) {
	ui := hitl.NewBatch(nil)
	if got, _ := ui.PromptInput("x", "def"); got != "def" {
		t.Fatalf("PromptInput = %q", got)
	}
	if got, _ := ui.PromptMultiline("x"); got != "" {
		t.Fatalf("PromptMultiline = %q", got)
	}
	if got, _ := ui.AskChoice("x", []string{"a", "b"}, nil); got != 0 {
		t.Fatalf("AskChoice = %d", got)
	}
	if got, _ := ui.Confirm("x", true); !got {
		t.Fatal("Confirm must return default")
	}
	ui.Notify("title", "message", nil)
	if hitl.Interactive(ui) {
		t.Fatal("batch must not report interactive")
	}
}

func TestDetectFallsBackToBatch(t *testing.T) {
	file, err := os.CreateTemp(t.TempDir(), "stdin")
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	if _, ok := hitl.Detect(file, io.Discard, nil).(*hitl.Batch); !ok {
		t.Fatal("expected Batch for a non-terminal input")
	}
	if _, ok := hitl.Detect(nil, io.Discard, nil).(*hitl.Batch); !ok {
		t.Fatal("expected Batch for nil input")
	}
	if !hitl.Interactive(hitl.NewConsole(strings.NewReader(""), io.Discard, false)) {
		t.Fatal("console must report interactive")
	}
}
