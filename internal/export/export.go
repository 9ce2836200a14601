// Package export compiles drafted scenes into a single markdown manuscript
// following the reading order of the scene tree.
package export

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"loom/internal/project"
	"loom/internal/storage"
	"loom/internal/textutil"
	"loom/internal/workflow"
)

const exportDir = "07_export"

// ErrNothingToExport indicates no scene on the reading path has content.
var ErrNothingToExport = errors.New("no drafted scenes to export")

// Result describes a compiled manuscript.
type Result struct {
	Path     string
	Chapters int
	Skipped  []int
	Words    int
	Chars    int
}

// Compile renders the manuscript for state, saves it under
// 07_export/<sanitized-title>.md, and records ExportPath. Scenes on the
// reading path without content are skipped and reported.
func Compile(state *project.State, store *storage.Store, title string) (*Result, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = strings.TrimSpace(state.Title)
	}
	if title == "" {
		title = "Untitled"
	}
	caser := cases.Title(language.Und)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", caser.String(title))
	result := &Result{Skipped: []int{}}
	for _, node := range state.ReadingOrder() {
		text := ""
		if node.Status == project.SceneDone {
			text = workflow.SceneText(node.ContentPath)
		}
		if text == "" {
			result.Skipped = append(result.Skipped, node.ID)
			continue
		}
		result.Chapters++
		heading := textutil.Ternary(strings.TrimSpace(node.Title) != "", caser.String(strings.TrimSpace(node.Title)), fmt.Sprintf("Scene %d", node.ID))
		fmt.Fprintf(&b, "\n## Chapter %d: %s\n\n%s\n", result.Chapters, heading, text)
		result.Words += len(strings.Fields(text))
		result.Chars += utf8.RuneCountInString(text)
	}
	if result.Chapters == 0 {
		return nil, ErrNothingToExport
	}

	rel := fmt.Sprintf("%s/%s.md", exportDir, textutil.SanitizeFileName(title, "manuscript"))
	path, err := store.SaveText(rel, b.String())
	if err != nil {
		return nil, err
	}
	state.ExportPath = path
	result.Path = path
	return result, nil
}
