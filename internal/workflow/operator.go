package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"loom/internal/config"
)

const (
	commandPrompt  = "Select [N] · view [vN] · revise [eN] · reroll [r] · upload [u]"
	previewRunes   = 160
	uploadIDPrefix = "upload-"
)

type commandKind int

const (
	cmdSelect commandKind = iota
	cmdView
	cmdRevise
	cmdReroll
	cmdUpload
)

type command struct {
	kind  commandKind
	index int
}

// parseCommand reads one operator command. Indexes are 1-based on input
// and 0-based on output.
func parseCommand(input string, count int) (command, error) {
	text := strings.ToLower(strings.TrimSpace(input))
	switch text {
	case "":
		return command{}, errors.New("empty command")
	case "r":
		return command{kind: cmdReroll}, nil
	case "u":
		return command{kind: cmdUpload}, nil
	}
	kind := cmdSelect
	switch text[0] {
	case 'v':
		kind, text = cmdView, text[1:]
	case 'e':
		kind, text = cmdRevise, text[1:]
	}
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return command{}, fmt.Errorf("unknown command %q", input)
	}
	if n < 1 || n > count {
		return command{}, fmt.Errorf("candidate %d out of range 1-%d", n, count)
	}
	return command{kind: kind, index: n - 1}, nil
}

// choiceSet is the operator-facing view of a candidate list.
type choiceSet interface {
	Len() int
	Label(i int) string
	Content(i int) (string, error)
	Replace(ctx context.Context, i int, text string) error
	Reroll(ctx context.Context) error
	Add(ctx context.Context, text string) error
}

// choose runs the operator loop until a candidate is selected.
func (e *Engine) choose(ctx context.Context, title string, set choiceSet) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return -1, err
		}
		if set.Len() == 0 {
			return -1, ErrNoCandidates
		}
		e.ui.Notify(title, listing(set), nil)
		input, err := e.ui.PromptInput(commandPrompt, "1")
		if err != nil {
			return -1, err
		}
		cmd, err := parseCommand(input, set.Len())
		if err != nil {
			e.ui.Notify("Invalid command", err.Error(), nil)
			continue
		}
		switch cmd.kind {
		case cmdSelect:
			return cmd.index, nil
		case cmdView:
			text, err := set.Content(cmd.index)
			if err != nil {
				e.ui.Notify("View failed", err.Error(), nil)
				continue
			}
			e.ui.Notify(set.Label(cmd.index), text, nil)
		case cmdRevise:
			e.reviseChoice(ctx, set, cmd.index)
		case cmdReroll:
			if err := set.Reroll(ctx); err != nil {
				return -1, err
			}
		case cmdUpload:
			e.uploadChoice(ctx, set)
		}
	}
}

func (e *Engine) reviseChoice(ctx context.Context, set choiceSet, index int) {
	feedback, err := e.ui.PromptMultiline("Describe the edit (finish with END)")
	if err != nil || strings.TrimSpace(feedback) == "" {
		e.ui.Notify("Revision cancelled", "No feedback given.", nil)
		return
	}
	current, err := set.Content(index)
	if err != nil {
		e.ui.Notify("Revision failed", err.Error(), nil)
		return
	}
	revised, err := e.revise(ctx, current, feedback)
	if err != nil {
		e.ui.Notify("Revision failed", err.Error(), nil)
		return
	}
	if err := set.Replace(ctx, index, revised); err != nil {
		e.ui.Notify("Revision failed", err.Error(), nil)
		return
	}
	e.ui.Notify("Revision applied", set.Label(index), nil)
}

func (e *Engine) uploadChoice(ctx context.Context, set choiceSet) {
	path, err := e.ui.PromptInput("Path to file", "")
	if err != nil || strings.TrimSpace(path) == "" {
		e.ui.Notify("Upload cancelled", "No path given.", nil)
		return
	}
	expanded, err := config.ExpandPath(strings.TrimSpace(path))
	if err != nil {
		e.ui.Notify("Upload failed", err.Error(), nil)
		return
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		e.ui.Notify("Upload failed", err.Error(), nil)
		return
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		e.ui.Notify("Upload failed", "file is empty", nil)
		return
	}
	if err := set.Add(ctx, text); err != nil {
		e.ui.Notify("Upload failed", err.Error(), nil)
	}
}

func listing(set choiceSet) string {
	var b strings.Builder
	for i := 0; i < set.Len(); i++ {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d) %s", i+1, set.Label(i))
	}
	return b.String()
}

func preview(text string) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) > previewRunes {
		return string(runes[:previewRunes]) + "..."
	}
	return flat
}

// nextUploadID returns upload-K, where K is one past the highest upload so far.
func nextUploadID(ids []string) string {
	highest := 0
	for _, id := range ids {
		if n, err := strconv.Atoi(strings.TrimPrefix(id, uploadIDPrefix)); err == nil && strings.HasPrefix(id, uploadIDPrefix) && n > highest {
			highest = n
		}
	}
	return uploadIDPrefix + strconv.Itoa(highest+1)
}
