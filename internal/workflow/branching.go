package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"loom/internal/assembler"
	"loom/internal/fileutil"
	"loom/internal/logging"
	"loom/internal/notifications"
	"loom/internal/project"
	"loom/internal/services"
)

const charLenKey = "char_len"

// ProcessScene drafts node and marks it done. With branching enabled it
// drafts num_candidates branches concurrently and promotes one survivor.
func (e *Engine) ProcessScene(ctx context.Context, node *project.SceneNode) error {
	if node == nil {
		return assembler.ErrSceneNotFound
	}
	if e.store == nil || e.assembler == nil {
		return errors.New("process scene: engine has no artifact store")
	}
	ctx = services.WithSceneID(ctx, node.ID)
	logger := logging.WithContext(ctx, e.logger)

	result, err := e.assembler.Build(node.ID)
	if err != nil {
		return fmt.Errorf("assemble context for scene %d: %w", node.ID, err)
	}
	logger.Debug("context assembled",
		logging.Int("idea_len", result.Debug.IdeaLen),
		logging.Int("outline_len", result.Debug.OutlineLen),
		logging.Int("bible_len", result.Debug.BibleLen),
		logging.Int("recency_len", result.Debug.RecencyLen),
		logging.Any("meta_keys", result.Debug.MetaKeys),
		logging.String("recency_preview", result.Debug.RecencyPreview),
	)

	previous := node.Status
	node.Status = project.SceneDrafting

	n := e.cfg.Workflow.NumCandidates
	if !e.cfg.Workflow.BranchingEnabled || n <= 1 {
		err = e.processSingle(ctx, node, result.Payload)
	} else {
		err = e.processBranching(ctx, logger, node, result.Payload, n)
	}
	if err != nil {
		if previous == project.SceneDone {
			previous = project.ScenePending
		}
		node.Status = previous
		return err
	}
	return nil
}

func (e *Engine) processSingle(ctx context.Context, node *project.SceneNode, payload assembler.Payload) error {
	text, err := e.drafter.Draft(ctx, node, payload)
	if err != nil {
		return err
	}
	file := newSceneFile(node.ID, node.Title, "", text)
	path, err := e.writeScene(CanonicalScenePath(node.ID), file)
	if err != nil {
		return err
	}
	restore := markScene(node)
	if node.ContentPath != "" {
		node.Version++
	}
	node.ContentPath = path
	node.Candidates = nil
	node.SelectedCandidateID = ""
	node.Status = project.SceneDone
	if err := e.persist(ctx); err != nil {
		restore()
		return err
	}
	e.publishDrafted(ctx, node, "")
	return nil
}

type branchOutcome struct {
	candidate project.SceneCandidate
	err       error
}

// draftBranches runs n drafts concurrently. Each slot owns its output path.
// The returned survivors keep slot order.
func (e *Engine) draftBranches(ctx context.Context, logger *slog.Logger, node *project.SceneNode, payload assembler.Payload, n int) ([]project.SceneCandidate, error) {
	outcomes := make([]branchOutcome, n)
	var group errgroup.Group
	group.SetLimit(n)
	for slot := 0; slot < n; slot++ {
		id := fmt.Sprintf("v%d", slot+1)
		group.Go(func() error {
			text, err := e.drafter.Draft(ctx, node, payload)
			if err != nil {
				outcomes[slot].err = err
				return nil
			}
			file := newSceneFile(node.ID, node.Title, id, text)
			path, err := e.writeScene(CandidateScenePath(node.ID, id), file)
			if err != nil {
				outcomes[slot].err = err
				return nil
			}
			outcomes[slot].candidate = project.SceneCandidate{
				ID:          id,
				ContentPath: path,
				Meta:        map[string]any{charLenKey: file.CharLen},
			}
			return nil
		})
	}
	_ = group.Wait()

	var survivors []project.SceneCandidate
	var failures []error
	for slot, outcome := range outcomes {
		if outcome.err == nil {
			survivors = append(survivors, outcome.candidate)
			continue
		}
		id := fmt.Sprintf("v%d", slot+1)
		failures = append(failures, fmt.Errorf("%s: %w", id, outcome.err))
		logging.WarnWithContext(logger, "branch candidate failed", "branch_failed",
			logging.CandidateID(id),
			logging.Error(outcome.err),
			logging.String(logging.FieldImpact, "scene continues with the remaining candidates"),
			logging.String(logging.FieldErrorHint, "check provider availability and the llm trace log"),
		)
		e.publish(ctx, notifications.EventBranchFailed, notifications.Payload{
			"scene_id":     node.ID,
			"candidate_id": id,
			"error":        outcome.err.Error(),
		})
	}
	if len(survivors) == 0 {
		return nil, fmt.Errorf("scene %d: %w: %w", node.ID, ErrAllCandidatesFailed, errors.Join(failures...))
	}
	return survivors, nil
}

func (e *Engine) processBranching(ctx context.Context, logger *slog.Logger, node *project.SceneNode, payload assembler.Payload, n int) error {
	survivors, err := e.draftBranches(ctx, logger, node, payload, n)
	if err != nil {
		return err
	}
	node.Candidates = survivors

	index := 0
	if e.cfg.ManualSelection() && e.interactive() {
		set := &sceneChoices{engine: e, logger: logger, node: node, payload: payload, n: n}
		chosen, err := e.choose(ctx, fmt.Sprintf("Scene %d: %s", node.ID, node.Title), set)
		if err != nil {
			return err
		}
		index = chosen
	}
	return e.promote(ctx, logger, node, index)
}

// promote copies the winning draft to the canonical path and marks node done.
func (e *Engine) promote(ctx context.Context, logger *slog.Logger, node *project.SceneNode, index int) error {
	if index < 0 || index >= len(node.Candidates) {
		return ErrNoCandidates
	}
	winner := node.Candidates[index]
	canonical, err := e.store.Abs(CanonicalScenePath(node.ID))
	if err != nil {
		return err
	}
	if err := fileutil.CopyFileVerified(winner.ContentPath, canonical); err != nil {
		return fmt.Errorf("promote %s: %w", winner.ID, err)
	}
	file, err := ReadScene(canonical)
	if err != nil {
		return err
	}
	if err := os.WriteFile(sidecarPath(canonical), []byte(file.markdown()), 0o644); err != nil {
		return fmt.Errorf("write scene sidecar: %w", err)
	}

	restore := markScene(node)
	for i := range node.Candidates {
		node.Candidates[i].Selected = i == index
	}
	if node.ContentPath != "" {
		node.Version++
	}
	node.SelectedCandidateID = winner.ID
	node.ContentPath = canonical
	node.Status = project.SceneDone
	if err := e.persist(ctx); err != nil {
		restore()
		return err
	}
	logger.Info("branch promoted",
		logging.String(logging.FieldEventType, "branch_promoted"),
		logging.CandidateID(winner.ID),
		logging.Int("survivors", len(node.Candidates)),
	)
	e.publishDrafted(ctx, node, winner.ID)
	return nil
}

// markScene captures the fields a draft commits so a failed save can put
// them back. ProcessScene restores Status itself.
func markScene(node *project.SceneNode) func() {
	version, selected, path := node.Version, node.SelectedCandidateID, node.ContentPath
	candidates := append([]project.SceneCandidate(nil), node.Candidates...)
	return func() {
		node.Version, node.SelectedCandidateID, node.ContentPath = version, selected, path
		node.Candidates = candidates
	}
}

func (e *Engine) writeScene(rel string, file SceneFile) (string, error) {
	path, err := e.store.SaveJSON(rel, file)
	if err != nil {
		return "", err
	}
	if _, err := e.store.SaveText(strings.TrimSuffix(rel, ".json")+".md", file.markdown()); err != nil {
		return "", err
	}
	return path, nil
}

func (e *Engine) publishDrafted(ctx context.Context, node *project.SceneNode, candidateID string) {
	e.publish(ctx, notifications.EventSceneDrafted, notifications.Payload{
		"run_id":       e.state.RunID,
		"scene_id":     node.ID,
		"candidate_id": candidateID,
	})
}

func (e *Engine) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := e.notifier.Publish(ctx, event, payload); err != nil {
		e.logger.Debug("notification failed", logging.String(logging.FieldEventType, string(event)), logging.Error(err))
	}
}

type sceneChoices struct {
	engine  *Engine
	logger  *slog.Logger
	node    *project.SceneNode
	payload assembler.Payload
	n       int
}

func (s *sceneChoices) Len() int { return len(s.node.Candidates) }

func (s *sceneChoices) Label(i int) string {
	candidate := s.node.Candidates[i]
	text, _ := s.Content(i)
	return fmt.Sprintf("%s (%v chars): %s", candidate.ID, candidate.Meta[charLenKey], preview(text))
}

func (s *sceneChoices) Content(i int) (string, error) {
	file, err := ReadScene(s.node.Candidates[i].ContentPath)
	if err != nil {
		return "", err
	}
	return file.Content, nil
}

func (s *sceneChoices) Replace(_ context.Context, i int, text string) error {
	candidate := &s.node.Candidates[i]
	file := newSceneFile(s.node.ID, s.node.Title, candidate.ID, text)
	path, err := s.engine.writeScene(CandidateScenePath(s.node.ID, candidate.ID), file)
	if err != nil {
		return err
	}
	candidate.ContentPath = path
	if candidate.Meta == nil {
		candidate.Meta = map[string]any{}
	}
	candidate.Meta[charLenKey] = file.CharLen
	return nil
}

func (s *sceneChoices) Reroll(ctx context.Context) error {
	survivors, err := s.engine.draftBranches(ctx, s.logger, s.node, s.payload, s.n)
	if err != nil {
		return err
	}
	s.node.Candidates = survivors
	return nil
}

func (s *sceneChoices) Add(_ context.Context, text string) error {
	ids := make([]string, len(s.node.Candidates))
	for i, candidate := range s.node.Candidates {
		ids[i] = candidate.ID
	}
	id := nextUploadID(ids)
	file := newSceneFile(s.node.ID, s.node.Title, id, text)
	path, err := s.engine.writeScene(CandidateScenePath(s.node.ID, id), file)
	if err != nil {
		return err
	}
	s.node.Candidates = append(s.node.Candidates, project.SceneCandidate{
		ID:          id,
		ContentPath: path,
		Meta:        map[string]any{charLenKey: file.CharLen},
	})
	return nil
}
