// Package assembler builds the per-scene context payload handed to the
// drafter: the global artifacts, the recency block drawn from archived and
// unarchived summaries along the scene's linear path, and the scene's own
// metadata.
package assembler

import (
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"

	"loom/internal/memory"
	"loom/internal/project"
	"loom/internal/storage"
)

// StoryStartMarker is the recency block for a scene with no history.
const StoryStartMarker = "This is the opening of the story. Nothing has happened yet."

// DynamicContextKey is stripped from scene metadata before it enters a
// payload, so a payload that was once stored in meta can never nest itself.
const DynamicContextKey = "dynamic_context"

const recencyPreviewLen = 50

// ErrSceneNotFound indicates the requested scene is not in the tree.
var ErrSceneNotFound = errors.New("scene not found")

// Artifact fallback lists, highest priority first.
var (
	IdeaFiles    = []string{"01_ideation/ideas_selected.txt", "01_ideation/ideas.txt", "01_ideation/01_brainstorm.json"}
	OutlineFiles = []string{"02_outline/outline_selected.md", "02_outline/outline.md", "02_outline/temp/volume_1.md"}
	BibleFiles   = []string{"03_bible/bible_selected.md", "03_bible/bible.md"}
)

// Payload is the drafting context for one scene.
type Payload struct {
	Idea          string
	Outline       string
	Bible         string
	Recency       string
	SceneID       int
	SceneTitle    string
	Preconditions string
	Meta          map[string]any
}

// Debug summarizes a payload for logs.
type Debug struct {
	SceneID        int      `json:"scene_id"`
	IdeaLen        int      `json:"idea_len"`
	OutlineLen     int      `json:"outline_len"`
	BibleLen       int      `json:"bible_len"`
	RecencyLen     int      `json:"recency_len"`
	MetaKeys       []string `json:"meta_keys"`
	RecencyPreview string   `json:"recency_preview"`
}

// Result pairs a payload with its debug view.
type Result struct {
	Payload Payload
	Debug   Debug
}

// Assembler reads artifacts from a store and memory from state.
type Assembler struct {
	state *project.State
	store *storage.Store
}

// New returns an assembler over state and store.
func New(state *project.State, store *storage.Store) *Assembler {
	return &Assembler{state: state, store: store}
}

// Build assembles the payload for sceneID.
func (a *Assembler) Build(sceneID int) (*Result, error) {
	idea, _ := a.store.FirstNonEmpty(IdeaFiles...)
	outline, _ := a.store.FirstNonEmpty(OutlineFiles...)
	bible, _ := a.store.FirstNonEmpty(BibleFiles...)

	node, ok := a.state.FindScene(sceneID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrSceneNotFound, sceneID)
	}

	recency := a.recency(sceneID)

	meta := maps.Clone(node.Meta)
	if meta == nil {
		meta = map[string]any{}
	}
	delete(meta, DynamicContextKey)

	keys := make([]string, 0, len(meta))
	for key := range meta {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	preview := []rune(recency)
	if len(preview) > recencyPreviewLen {
		preview = preview[:recencyPreviewLen]
	}

	return &Result{
		Payload: Payload{
			Idea:          idea,
			Outline:       outline,
			Bible:         bible,
			Recency:       recency,
			SceneID:       node.ID,
			SceneTitle:    node.Title,
			Preconditions: node.Preconditions,
			Meta:          meta,
		},
		Debug: Debug{
			SceneID:        node.ID,
			IdeaLen:        len(idea),
			OutlineLen:     len(outline),
			BibleLen:       len(bible),
			RecencyLen:     len(recency),
			MetaKeys:       keys,
			RecencyPreview: string(preview),
		},
	}, nil
}

func (a *Assembler) recency(sceneID int) string {
	var parts []string

	if len(a.state.ArchivedSummaries) > 0 {
		lines := make([]string, 0, len(a.state.ArchivedSummaries))
		for i, summary := range a.state.ArchivedSummaries {
			lines = append(lines, fmt.Sprintf("Arc %d: %s", i+1, summary))
		}
		parts = append(parts, "Earlier arcs:\n"+strings.Join(lines, "\n"))
	}

	path := memory.LinearPath(a.state, sceneID)
	start := a.state.ArchiveDepth
	end := len(path) - 1
	var recent []string
	for i := start; i < end; i++ {
		node := path[i]
		if summary := strings.TrimSpace(node.Summary); summary != "" {
			recent = append(recent, fmt.Sprintf("Scene %d: %s", node.ID, summary))
		}
	}
	if len(recent) > 0 {
		parts = append(parts, "Recent scenes:\n"+strings.Join(recent, "\n"))
	}

	if len(parts) == 0 {
		return StoryStartMarker
	}
	return strings.Join(parts, "\n\n")
}
