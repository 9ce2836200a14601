package main

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"loom/internal/phase"
	"loom/internal/project"
)

const previewRunes = 60

type runListItem struct {
	RunID        string    `json:"run_id"`
	Title        string    `json:"title"`
	Phase        string    `json:"phase"`
	Scenes       int       `json:"scenes"`
	Drafted      int       `json:"drafted"`
	ArchiveDepth int       `json:"archive_depth"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type sceneRow struct {
	ID         int    `json:"id"`
	ParentID   *int   `json:"parent_id,omitempty"`
	Depth      int    `json:"depth"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	Version    int    `json:"version"`
	Selected   string `json:"selected_candidate,omitempty"`
	Candidates int    `json:"candidates"`
	Summary    string `json:"summary,omitempty"`
}

type checkpointRow struct {
	Phase      string    `json:"phase"`
	Drafted    int       `json:"drafted"`
	Scenes     int       `json:"scenes"`
	RecordedAt time.Time `json:"recorded_at"`
}

type runDetail struct {
	RunID        string            `json:"run_id"`
	RunDir       string            `json:"run_dir"`
	Title        string            `json:"title"`
	Phase        string            `json:"phase"`
	Allowed      []string          `json:"allowed"`
	Actions      []string          `json:"actions"`
	Artifacts    map[string]string `json:"artifacts"`
	ArchiveDepth int               `json:"archive_depth"`
	Archived     int               `json:"archived_summaries"`
	Scenes       []sceneRow        `json:"scenes"`
	Checkpoints  []checkpointRow   `json:"checkpoints,omitempty"`
}

type candidateRow struct {
	ID       string `json:"id"`
	Selected bool   `json:"selected"`
	Chars    int    `json:"chars"`
	Preview  string `json:"preview"`
}

func runListItems(runs []*project.RunSummary) []runListItem {
	items := make([]runListItem, 0, len(runs))
	for _, run := range runs {
		if run == nil {
			continue
		}
		items = append(items, runListItem{
			RunID:        run.RunID,
			Title:        run.Title,
			Phase:        string(run.Phase),
			Scenes:       run.SceneCount,
			Drafted:      run.ScenesDone,
			ArchiveDepth: run.ArchiveDepth,
			UpdatedAt:    run.UpdatedAt,
		})
	}
	return items
}

func buildRunDetail(state *project.State) runDetail {
	detail := runDetail{
		RunID:        state.RunID,
		RunDir:       state.RunDir,
		Title:        state.Title,
		Phase:        string(state.Phase),
		Actions:      phase.Actions(state.Phase),
		ArchiveDepth: state.ArchiveDepth,
		Archived:     len(state.ArchivedSummaries),
		Artifacts:    map[string]string{},
		Scenes:       []sceneRow{},
	}
	for _, p := range phase.Allowed(state.Phase) {
		detail.Allowed = append(detail.Allowed, string(p))
	}
	for key, path := range map[string]string{
		"idea":       state.IdeaPath,
		"outline":    state.OutlinePath,
		"bible":      state.BiblePath,
		"scene_plan": state.ScenePlanPath,
		"export":     state.ExportPath,
	} {
		if path != "" {
			detail.Artifacts[key] = path
		}
	}

	var visit func(nodes []*project.SceneNode, depth int)
	visit = func(nodes []*project.SceneNode, depth int) {
		for _, node := range nodes {
			if node == nil {
				continue
			}
			detail.Scenes = append(detail.Scenes, sceneRow{
				ID:         node.ID,
				ParentID:   node.ParentID,
				Depth:      depth,
				Title:      node.Title,
				Status:     string(node.Status),
				Version:    node.Version,
				Selected:   node.SelectedCandidateID,
				Candidates: len(node.Candidates),
				Summary:    preview(node.Summary),
			})
			visit(node.Branches, depth+1)
		}
	}
	visit(state.Scenes, 0)
	return detail
}

func candidateRows(candidates []project.ArtifactCandidate) []candidateRow {
	rows := make([]candidateRow, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, candidateRow{
			ID:       c.ID,
			Selected: c.Selected,
			Chars:    utf8.RuneCountInString(c.Content),
			Preview:  preview(c.Content),
		})
	}
	return rows
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "…"
}

func renderRunList(items []runListItem) string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.RunID,
			item.Title,
			item.Phase,
			fmt.Sprintf("%d/%d", item.Drafted, item.Scenes),
			item.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return renderTable("Runs", []string{"Run", "Title", "Phase", "Drafted", "Updated"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft})
}

func renderRunDetail(detail runDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run:      %s\n", detail.RunID)
	fmt.Fprintf(&b, "Title:    %s\n", detail.Title)
	fmt.Fprintf(&b, "Phase:    %s\n", detail.Phase)
	fmt.Fprintf(&b, "Next:     %s\n", strings.Join(detail.Allowed, ", "))
	fmt.Fprintf(&b, "Actions:  %s\n", strings.Join(detail.Actions, ", "))
	fmt.Fprintf(&b, "Memory:   %d archived summaries, cursor %d\n", detail.Archived, detail.ArchiveDepth)
	for _, key := range []string{"idea", "outline", "bible", "scene_plan", "export"} {
		if path, ok := detail.Artifacts[key]; ok {
			fmt.Fprintf(&b, "%-9s %s\n", key+":", path)
		}
	}

	if len(detail.Scenes) > 0 {
		rows := make([][]string, 0, len(detail.Scenes))
		for _, scene := range detail.Scenes {
			title := strings.Repeat("  ", scene.Depth) + scene.Title
			rows = append(rows, []string{
				fmt.Sprintf("%d", scene.ID),
				title,
				scene.Status,
				fmt.Sprintf("%d", scene.Version),
				scene.Selected,
				scene.Summary,
			})
		}
		b.WriteString("\n")
		b.WriteString(renderTable("Scenes", []string{"ID", "Title", "Status", "Ver", "Pick", "Summary"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight}))
		b.WriteString("\n")
	}

	if len(detail.Checkpoints) > 0 {
		rows := make([][]string, 0, len(detail.Checkpoints))
		for _, cp := range detail.Checkpoints {
			rows = append(rows, []string{
				cp.RecordedAt.Local().Format("2006-01-02 15:04:05"),
				cp.Phase,
				fmt.Sprintf("%d/%d", cp.Drafted, cp.Scenes),
			})
		}
		b.WriteString("\n")
		b.WriteString(renderTable("Recent checkpoints", []string{"Recorded", "Phase", "Drafted"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight}))
		b.WriteString("\n")
	}
	return b.String()
}

func renderCandidates(step project.Step, rows []candidateRow) string {
	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		table = append(table, []string{row.ID, yesNo(row.Selected), fmt.Sprintf("%d", row.Chars), row.Preview})
	}
	return renderTable(fmt.Sprintf("%s candidates", step), []string{"ID", "Selected", "Chars", "Preview"}, table,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft})
}
