// Package sceneplan parses and checks the scene list produced by the
// scene-plan phase and turns it into scene tree nodes.
package sceneplan

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"loom/internal/project"
	"loom/internal/services/llm"
)

// StringList accepts either a JSON array of strings or a single
// comma-separated string.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = compact(list)
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("expected string or string array: %w", err)
	}
	*s = compact(strings.Split(single, ","))
	return nil
}

func compact(values []string) StringList {
	out := make(StringList, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Entry is one planned scene.
type Entry struct {
	ID            int        `json:"id"`
	Title         string     `json:"title"`
	Summary       string     `json:"summary"`
	Characters    StringList `json:"characters,omitempty"`
	Goal          string     `json:"goal,omitempty"`
	Conflict      string     `json:"conflict,omitempty"`
	Setting       string     `json:"setting,omitempty"`
	Beats         StringList `json:"beats,omitempty"`
	Preconditions string     `json:"preconditions,omitempty"`
	Branches      []Entry    `json:"branches,omitempty"`
	// ExpansionError records why the detail expansion failed, if it did.
	ExpansionError string `json:"expansion_error,omitempty"`
}

// Expansion is the detail card returned for one scene.
type Expansion struct {
	Goal       string     `json:"goal"`
	Conflict   string     `json:"conflict"`
	Characters StringList `json:"characters"`
	Setting    string     `json:"setting"`
	Beats      StringList `json:"beats"`
}

// Empty reports whether the card carries no detail at all.
func (x Expansion) Empty() bool {
	return strings.TrimSpace(x.Goal) == "" && strings.TrimSpace(x.Conflict) == "" &&
		strings.TrimSpace(x.Setting) == "" && len(x.Characters) == 0 && len(x.Beats) == 0
}

// ErrEmptyPlan indicates the model returned no scenes.
var ErrEmptyPlan = errors.New("scene plan is empty")

// Parse decodes a model response into plan entries. Code fences, leading
// prose, and trailing commas are tolerated.
func Parse(text string) ([]Entry, error) {
	var entries []Entry
	if err := llm.DecodeLLMJSON(text, &entries); err != nil {
		return nil, fmt.Errorf("parse scene plan: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrEmptyPlan
	}
	return entries, nil
}

// ParseExpansion decodes a detail card.
func ParseExpansion(text string) (Expansion, error) {
	var exp Expansion
	if err := llm.DecodeLLMJSON(text, &exp); err != nil {
		return Expansion{}, fmt.Errorf("parse scene expansion: %w", err)
	}
	return exp, nil
}

// Apply merges exp into e. Fields already present on e win.
func (e *Entry) Apply(exp Expansion) {
	if e.Goal == "" {
		e.Goal = strings.TrimSpace(exp.Goal)
	}
	if e.Conflict == "" {
		e.Conflict = strings.TrimSpace(exp.Conflict)
	}
	if len(e.Characters) == 0 {
		e.Characters = exp.Characters
	}
	if e.Setting == "" {
		e.Setting = strings.TrimSpace(exp.Setting)
	}
	if len(e.Beats) == 0 {
		e.Beats = exp.Beats
	}
}

// All returns pointers to every entry in plan order, each branch right
// after its parent.
func All(entries []Entry) []*Entry {
	var out []*Entry
	var visit func(list []Entry)
	visit = func(list []Entry) {
		for i := range list {
			out = append(out, &list[i])
			visit(list[i].Branches)
		}
	}
	visit(entries)
	return out
}

// Validate checks id contiguity and the fields drafting depends on. Problems
// are returned as warnings; an empty plan is the only hard failure.
func Validate(entries []Entry) ([]string, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyPlan
	}
	var warnings []string
	present := make(map[int]bool, len(entries))
	for _, entry := range entries {
		if present[entry.ID] {
			warnings = append(warnings, fmt.Sprintf("duplicate scene id %d", entry.ID))
		}
		present[entry.ID] = true
	}
	var missing []int
	for id := 1; id <= len(entries); id++ {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Ints(missing)
		warnings = append(warnings, fmt.Sprintf("missing scene ids: %v", missing))
	}
	for _, entry := range entries {
		if strings.TrimSpace(entry.Goal) == "" {
			warnings = append(warnings, fmt.Sprintf("scene %d missing required field: goal", entry.ID))
		}
		if strings.TrimSpace(entry.Conflict) == "" {
			warnings = append(warnings, fmt.Sprintf("scene %d missing required field: conflict", entry.ID))
		}
		if len(entry.Characters) == 0 {
			warnings = append(warnings, fmt.Sprintf("scene %d missing required field: characters", entry.ID))
		}
	}
	return warnings, nil
}

// Meta renders the entry as scene metadata.
func (e Entry) Meta() map[string]any {
	meta := map[string]any{
		"summary": e.Summary,
	}
	set := func(key, value string) {
		if value != "" {
			meta[key] = value
		}
	}
	set("goal", e.Goal)
	set("conflict", e.Conflict)
	set("setting", e.Setting)
	if len(e.Characters) > 0 {
		meta["characters"] = []string(e.Characters)
	}
	if len(e.Beats) > 0 {
		meta["beats"] = []string(e.Beats)
	}
	return meta
}

// BuildScenes converts entries into pending scene nodes. Planned ids are
// kept when unique; collisions (including branch ids) get fresh ids.
func BuildScenes(state *project.State, entries []Entry) error {
	nextID := state.NextSceneID()
	for _, entry := range entries {
		if entry.ID >= nextID {
			nextID = entry.ID + 1
		}
	}
	assign := func(planned int) int {
		if planned > 0 {
			if _, taken := state.FindScene(planned); !taken {
				return planned
			}
		}
		id := nextID
		nextID++
		return id
	}

	var attach func(parent *int, entry Entry) error
	attach = func(parent *int, entry Entry) error {
		node := project.NewSceneNode(assign(entry.ID), entry.Title)
		node.Meta = entry.Meta()
		node.Preconditions = entry.Preconditions
		var err error
		if parent == nil {
			err = state.AddScene(node)
		} else {
			err = state.AddBranch(*parent, node)
		}
		if err != nil {
			return err
		}
		id := node.ID
		for _, branch := range entry.Branches {
			if err := attach(&id, branch); err != nil {
				return err
			}
		}
		return nil
	}
	for _, entry := range entries {
		if err := attach(nil, entry); err != nil {
			return err
		}
	}
	return nil
}

// Markdown renders the plan for human review.
func Markdown(entries []Entry) string {
	var b strings.Builder
	b.WriteString("# Scene Plan\n")
	var write func(entry Entry, depth int)
	write = func(entry Entry, depth int) {
		heading := strings.Repeat("#", min(depth+2, 6))
		fmt.Fprintf(&b, "\n%s %d. %s\n\n", heading, entry.ID, entry.Title)
		if entry.Summary != "" {
			fmt.Fprintf(&b, "> %s\n\n", entry.Summary)
		}
		if entry.Preconditions != "" {
			fmt.Fprintf(&b, "- Preconditions: %s\n", entry.Preconditions)
		}
		if entry.Goal != "" {
			fmt.Fprintf(&b, "- Goal: %s\n", entry.Goal)
		}
		if entry.Conflict != "" {
			fmt.Fprintf(&b, "- Conflict: %s\n", entry.Conflict)
		}
		if len(entry.Characters) > 0 {
			fmt.Fprintf(&b, "- Characters: %s\n", strings.Join(entry.Characters, ", "))
		}
		if entry.Setting != "" {
			fmt.Fprintf(&b, "- Setting: %s\n", entry.Setting)
		}
		for _, beat := range entry.Beats {
			fmt.Fprintf(&b, "  - %s\n", beat)
		}
		if entry.ExpansionError != "" {
			fmt.Fprintf(&b, "- Expansion failed: %s\n", entry.ExpansionError)
		}
		for _, branch := range entry.Branches {
			write(branch, depth+1)
		}
	}
	for _, entry := range entries {
		write(entry, 0)
	}
	return b.String()
}
