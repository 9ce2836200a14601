package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"loom/internal/fileutil"
)

const stateFileName = "state.json"

// SceneStatus tracks the drafting lifecycle of a scene node.
type SceneStatus string

const (
	ScenePending  SceneStatus = "pending"
	SceneDrafting SceneStatus = "drafting"
	SceneDone     SceneStatus = "done"
)

// ArtifactCandidate is one option offered for a global artifact step.
type ArtifactCandidate struct {
	ID       string  `json:"id"`
	Content  string  `json:"content"`
	Score    float64 `json:"score"`
	Critique string  `json:"critique"`
	Selected bool    `json:"selected"`
}

// SceneCandidate is one drafted branch of a scene, stored on disk.
type SceneCandidate struct {
	ID          string         `json:"id"`
	ContentPath string         `json:"content_path"`
	Summary     string         `json:"summary"`
	Score       float64        `json:"score"`
	Critique    string         `json:"critique"`
	Selected    bool           `json:"selected"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// SceneNode is a unit of generation. Branches hold alternative continuations
// and point back to their owner through ParentID.
type SceneNode struct {
	ID                  int              `json:"id"`
	Title               string           `json:"title"`
	Status              SceneStatus      `json:"status"`
	ContentPath         string           `json:"content_path"`
	Summary             string           `json:"summary"`
	Candidates          []SceneCandidate `json:"candidates"`
	SelectedCandidateID string           `json:"selected_candidate_id,omitempty"`
	Version             int              `json:"version"`
	Meta                map[string]any   `json:"meta"`
	ParentID            *int             `json:"parent_id"`
	Branches            []*SceneNode     `json:"branches"`
	Preconditions       string           `json:"preconditions"`
}

// NewSceneNode returns a pending node with initialized collections.
func NewSceneNode(id int, title string) *SceneNode {
	return &SceneNode{
		ID:      id,
		Title:   title,
		Status:  ScenePending,
		Version: 1,
		Meta:    map[string]any{},
	}
}

// State is the aggregate root of a run.
type State struct {
	RunID string `json:"run_id"`
	// RunDir is derived from the snapshot location on load.
	RunDir string `json:"-"`
	Title  string `json:"title"`
	Phase  Phase  `json:"phase"`

	IdeaPath      string `json:"idea_path"`
	OutlinePath   string `json:"outline_path"`
	BiblePath     string `json:"bible_path"`
	ScenePlanPath string `json:"scene_plan_path"`
	ExportPath    string `json:"export_path"`

	Candidates map[Step][]ArtifactCandidate `json:"candidates"`
	Scenes     []*SceneNode                 `json:"scenes"`

	ArchivedSummaries []string `json:"archived_summaries"`
	// ArchiveDepth counts linear-path positions already folded into
	// ArchivedSummaries. It never decreases.
	ArchiveDepth int `json:"archive_depth"`
	// LastArchivedSceneID mirrors the last archived node id for older readers.
	LastArchivedSceneID int `json:"last_archived_scene_id"`

	Meta      map[string]any `json:"meta"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewState returns an INIT state rooted at runDir.
func NewState(runID, runDir string) *State {
	now := time.Now().UTC()
	return &State{
		RunID:      runID,
		RunDir:     runDir,
		Phase:      PhaseInit,
		Candidates: map[Step][]ArtifactCandidate{},
		Meta:       map[string]any{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// StatePath returns the snapshot location for a run directory.
func StatePath(runDir string) string {
	return filepath.Join(runDir, stateFileName)
}

// CandidatesFor returns the cached candidates for a step.
func (s *State) CandidatesFor(step Step) []ArtifactCandidate {
	if s.Candidates == nil {
		return nil
	}
	return s.Candidates[step]
}

// SetCandidates replaces the cached candidates for a step.
func (s *State) SetCandidates(step Step, candidates []ArtifactCandidate) {
	if s.Candidates == nil {
		s.Candidates = map[Step][]ArtifactCandidate{}
	}
	if len(candidates) == 0 {
		delete(s.Candidates, step)
		return
	}
	s.Candidates[step] = candidates
}

// SelectedCandidate returns the selected candidate for a step, if any.
func (s *State) SelectedCandidate(step Step) (ArtifactCandidate, bool) {
	for _, candidate := range s.CandidatesFor(step) {
		if candidate.Selected {
			return candidate, true
		}
	}
	return ArtifactCandidate{}, false
}

// Save writes the snapshot atomically to run_dir/state.json.
func (s *State) Save() error {
	if s.RunDir == "" {
		return errors.New("save state: run directory not set")
	}
	s.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := fileutil.WriteFileAtomic(StatePath(s.RunDir), data); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// LoadState reads the snapshot from runDir.
func LoadState(runDir string) (*State, error) {
	data, err := os.ReadFile(StatePath(runDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: no state.json in %s", ErrRunNotFound, runDir)
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	state.RunDir = runDir
	if phase, ok := ParsePhase(string(state.Phase)); ok {
		state.Phase = phase
	} else {
		state.Phase = PhaseInit
	}
	if state.Candidates == nil {
		state.Candidates = map[Step][]ArtifactCandidate{}
	}
	if state.Meta == nil {
		state.Meta = map[string]any{}
	}
	state.Walk(func(node *SceneNode) bool {
		if node.Meta == nil {
			node.Meta = map[string]any{}
		}
		if node.Status == "" {
			node.Status = ScenePending
		}
		return true
	})
	return &state, nil
}

// Persister checkpoints state after every mutation.
type Persister interface {
	Save(ctx context.Context, state *State) error
}

// SnapshotPersister writes state.json and, when an index is attached, records
// the checkpoint there too.
type SnapshotPersister struct {
	Index *Index
}

// Save implements Persister. The snapshot is written first; an index failure
// is reported but leaves the snapshot in place.
func (p SnapshotPersister) Save(ctx context.Context, state *State) error {
	if state == nil {
		return errors.New("save state: nil state")
	}
	if err := state.Save(); err != nil {
		return err
	}
	if p.Index == nil {
		return nil
	}
	if err := p.Index.RecordCheckpoint(ctx, state); err != nil {
		return fmt.Errorf("record checkpoint: %w", err)
	}
	return nil
}
