package hitl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const multilineTerminator = "END"

// Console prompts an operator over a reader/writer pair.
type Console struct {
	in  *bufio.Reader
	out io.Writer

	banner lipgloss.Style
	title  lipgloss.Style
	muted  lipgloss.Style
}

// NewConsole wraps in and out. colorize enables ANSI styling; borders are
// drawn either way.
func NewConsole(in io.Reader, out io.Writer, colorize bool) *Console {
	c := &Console{
		in:     bufio.NewReader(in),
		out:    out,
		banner: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		title:  lipgloss.NewStyle().Bold(true),
		muted:  lipgloss.NewStyle(),
	}
	if colorize {
		c.banner = c.banner.BorderForeground(lipgloss.Color("#5B8DEF"))
		c.title = c.title.Foreground(lipgloss.Color("#5B8DEF"))
		c.muted = c.muted.Foreground(lipgloss.Color("#AAAAAA"))
	}
	return c
}

// Notify prints a bordered banner.
func (c *Console) Notify(title, message string, payload map[string]any) {
	body := c.title.Render(title)
	if message = strings.TrimSpace(message); message != "" {
		body += "\n" + message
	}
	if len(payload) > 0 {
		keys := make([]string, 0, len(payload))
		for key := range payload {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		lines := make([]string, 0, len(keys))
		for _, key := range keys {
			lines = append(lines, fmt.Sprintf("%s: %v", key, payload[key]))
		}
		body += "\n" + c.muted.Render(strings.Join(lines, "\n"))
	}
	fmt.Fprintln(c.out, c.banner.Render(body))
}

func (c *Console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// PromptInput reads one line. Blank input returns def. EOF is an error.
func (c *Console) PromptInput(prompt, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(c.out, "%s [%s]: ", prompt, def)
	} else {
		fmt.Fprintf(c.out, "%s: ", prompt)
	}
	line, err := c.readLine()
	if err != nil {
		return "", err
	}
	if line = strings.TrimSpace(line); line == "" {
		return def, nil
	}
	return line, nil
}

// PromptMultiline implements Interface.
func (c *Console) PromptMultiline(prompt string) (string, error) {
	fmt.Fprintf(c.out, "%s\n%s\n", prompt, c.muted.Render("(finish with a line containing only "+multilineTerminator+")"))
	var lines []string
	for {
		line, err := c.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", err
		}
		if strings.TrimSpace(line) == multilineTerminator {
			break
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

// AskChoice lists options and returns the 0-based index picked. Invalid
// answers re-prompt; blank picks the first option.
func (c *Console) AskChoice(prompt string, options, descriptions []string) (int, error) {
	if len(options) == 0 {
		return 0, errors.New("ask choice: no options")
	}
	fmt.Fprintln(c.out, c.title.Render(prompt))
	for i, option := range options {
		line := fmt.Sprintf("  %d) %s", i+1, option)
		if i < len(descriptions) && descriptions[i] != "" {
			line += " " + c.muted.Render("- "+descriptions[i])
		}
		fmt.Fprintln(c.out, line)
	}
	for {
		answer, err := c.PromptInput("Choice", "1")
		if err != nil {
			return 0, err
		}
		n, convErr := strconv.Atoi(answer)
		if convErr == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Fprintf(c.out, "Enter a number between 1 and %d.\n", len(options))
	}
}

// Confirm asks a yes/no question.
func (c *Console) Confirm(prompt string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	for {
		answer, err := c.PromptInput(fmt.Sprintf("%s (%s)", prompt, hint), "")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(c.out, "Please answer y or n.")
	}
}
