// Package hitl is the operator interaction boundary. Workflow code talks to
// Interface only; Console drives a terminal and Batch answers every question
// with its default so runs can proceed headless.
package hitl

import (
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
)

// Interface is the operator surface used by the workflow engine and driver.
type Interface interface {
	Notify(title, message string, payload map[string]any)
	PromptInput(prompt, def string) (string, error)
	// PromptMultiline reads lines until a line containing only END, or EOF.
	PromptMultiline(prompt string) (string, error)
	AskChoice(prompt string, options, descriptions []string) (int, error)
	Confirm(prompt string, def bool) (bool, error)
}

// Interactive reports whether ui can reach an operator.
func Interactive(ui Interface) bool {
	_, batch := ui.(*Batch)
	return ui != nil && !batch
}

// Detect returns a Console when in is a terminal and a Batch otherwise.
func Detect(in *os.File, out io.Writer, logger *slog.Logger) Interface {
	if in != nil && isTerminal(in) {
		return NewConsole(in, out, isTerminalWriter(out))
	}
	return NewBatch(logger)
}

func isTerminal(file *os.File) bool {
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func isTerminalWriter(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	return ok && isTerminal(file)
}
