package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"loom/internal/logging"
	"loom/internal/project"
)

// Consolidator folds a batch of scene summaries into one chapter summary.
type Consolidator interface {
	ConsolidateSummaries(ctx context.Context, summaries []string) (string, error)
}

// Manager owns the sliding window over a run's state.
type Manager struct {
	state        *project.State
	persister    project.Persister
	consolidator Consolidator
	logger       *slog.Logger
}

// NewManager binds a manager to state.
func NewManager(state *project.State, persister project.Persister, consolidator Consolidator, logger *slog.Logger) *Manager {
	return &Manager{
		state:        state,
		persister:    persister,
		consolidator: consolidator,
		logger:       logging.NewComponentLogger(logger, "memory"),
	}
}

// LinearPath returns the story so far ending at target, inclusive. Roots
// are sequential: the path starts with the reading-order chain of every root
// before target's own, then descends from that root to target by depth-first
// search. It is empty when target is not in the tree.
func (m *Manager) LinearPath(target int) []*project.SceneNode {
	return LinearPath(m.state, target)
}

// LinearPath is the state-level form of Manager.LinearPath.
func LinearPath(state *project.State, target int) []*project.SceneNode {
	for i, root := range state.Scenes {
		branch := descend(root, target)
		if branch == nil {
			continue
		}
		path := make([]*project.SceneNode, 0, i+len(branch))
		for _, earlier := range state.Scenes[:i] {
			for node := earlier; node != nil; node = node.SelectedBranch() {
				path = append(path, node)
			}
		}
		return append(path, branch...)
	}
	return []*project.SceneNode{}
}

// descend returns the nodes from root to target, or nil when target is not
// below root.
func descend(root *project.SceneNode, target int) []*project.SceneNode {
	if root == nil {
		return nil
	}
	if root.ID == target {
		return []*project.SceneNode{root}
	}
	for _, branch := range root.Branches {
		if rest := descend(branch, target); rest != nil {
			return append([]*project.SceneNode{root}, rest...)
		}
	}
	return nil
}

// Consolidate archives the oldest batch of the window ending at currentID
// once depth - ArchiveDepth reaches windowSize. A scene missing from the tree
// only logs a warning.
func (m *Manager) Consolidate(ctx context.Context, currentID, windowSize, batchSize int) error {
	if windowSize <= 0 || batchSize <= 0 {
		return fmt.Errorf("consolidate: window %d and batch %d must be positive", windowSize, batchSize)
	}
	logger := logging.WithContext(ctx, m.logger)

	path := m.LinearPath(currentID)
	if len(path) == 0 {
		logging.WarnWithContext(logger, "scene not found for memory consolidation", "memory_path_missing",
			logging.SceneID(currentID),
			logging.String(logging.FieldErrorHint, "check the scene tree in state.json"),
			logging.String(logging.FieldImpact, "memory window not advanced"),
		)
		return nil
	}

	depth := len(path)
	cursor := m.state.ArchiveDepth
	if depth-cursor < windowSize {
		return nil
	}

	end := min(cursor+batchSize, depth)
	batch := path[cursor:end]
	summaries := make([]string, 0, len(batch))
	for _, node := range batch {
		if summary := strings.TrimSpace(node.Summary); summary != "" {
			summaries = append(summaries, summary)
			continue
		}
		if node.Status == project.SceneDone {
			logging.WarnWithContext(logger, "done scene has no summary", "memory_summary_missing",
				logging.SceneID(node.ID),
				logging.String(logging.FieldImpact, "scene omitted from archived summary"),
			)
		}
	}
	if len(summaries) == 0 {
		logging.WarnWithContext(logger, "nothing to archive in memory batch", "memory_batch_empty",
			logging.Int("from_depth", cursor),
			logging.Int("to_depth", end-1),
			logging.String(logging.FieldImpact, "archive cursor not advanced"),
			logging.String(logging.FieldErrorHint, "redraft or summarize the listed scenes"),
		)
		return nil
	}

	logger.Info("consolidating memory",
		logging.String(logging.FieldEventType, "memory_consolidate"),
		logging.Int("from_depth", cursor),
		logging.Int("to_depth", end-1),
		logging.Int("first_scene", batch[0].ID),
		logging.Int("last_scene", batch[len(batch)-1].ID),
	)
	chapter, err := m.consolidator.ConsolidateSummaries(ctx, summaries)
	if err != nil {
		return fmt.Errorf("consolidate summaries: %w", err)
	}

	m.state.ArchivedSummaries = append(m.state.ArchivedSummaries, strings.TrimSpace(chapter))
	m.state.ArchiveDepth = cursor + batchSize
	m.state.LastArchivedSceneID = batch[len(batch)-1].ID
	if m.persister != nil {
		if err := m.persister.Save(ctx, m.state); err != nil {
			return fmt.Errorf("persist memory archive: %w", err)
		}
	}
	logger.Info("memory consolidated",
		logging.String(logging.FieldEventType, "memory_archived"),
		logging.Int("archive_count", len(m.state.ArchivedSummaries)),
		logging.Int("archive_depth", m.state.ArchiveDepth),
	)
	return nil
}
