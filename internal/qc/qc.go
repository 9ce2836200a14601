// Package qc reviews drafted scenes: n-gram repetition, a tail cliffhanger
// signal, and adjacent-scene similarity. It also resets done scenes whose
// content has gone missing so drafting can redo them.
package qc

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"loom/internal/config"
	"loom/internal/project"
	"loom/internal/storage"
	"loom/internal/textutil"
	"loom/internal/workflow"
)

// ReportPath is the artifact-relative location of the QC report.
const ReportPath = "06_qc/qc_report.json"

// Verdicts, from best to worst.
const (
	VerdictPass = "PASS"
	VerdictWarn = "WARN"
	VerdictFail = "FAIL"
)

const (
	tailRunes  = 200
	topNGrams  = 10
	headlineN  = 4
	previewLen = 80
)

var ngramSizes = []int{3, 4, 5}

// DefaultTailSignals are phrases that suggest a scene ends on a hook.
var DefaultTailSignals = []string{
	"suddenly", "at that moment", "before", "too late", "impossible",
	"could not believe", "something was wrong", "then", "?", "!",
}

// ErrNeedsRedraft indicates review reset scenes and the run should return
// to drafting.
var ErrNeedsRedraft = errors.New("scenes need redraft")

// NGramCount is one frequent n-gram.
type NGramCount struct {
	NGram string `json:"ngram"`
	Count int    `json:"count"`
}

// NGramStat summarizes repetition for one n.
type NGramStat struct {
	Unique      int          `json:"unique"`
	Total       int          `json:"total_ngrams"`
	RepeatRatio float64      `json:"repeat_ratio"`
	Top         []NGramCount `json:"top"`
}

// Repetition holds token count and per-n statistics keyed by n.
type Repetition struct {
	TokenCount int                  `json:"token_count"`
	NGrams     map[string]NGramStat `json:"ngram"`
}

// RepeatRatio returns the ratio for n, or 0.
func (r Repetition) RepeatRatio(n int) float64 {
	return r.NGrams[strconv.Itoa(n)].RepeatRatio
}

// TailSignal reports hook phrases in the last characters of a scene.
type TailSignal struct {
	HasSignal bool     `json:"tail_has_signal"`
	Hits      []string `json:"hits"`
	Preview   string   `json:"tail_preview"`
}

// SceneReport is the per-scene section of the report.
type SceneReport struct {
	SceneID              int        `json:"scene_id"`
	Title                string     `json:"title"`
	ContentPath          string     `json:"content_path"`
	CharLen              int        `json:"char_len"`
	Repetition           Repetition `json:"repetition"`
	Tail                 TailSignal `json:"cliffhanger"`
	SimilarityToPrevious float64    `json:"similarity_to_previous"`
}

// Overall aggregates the manuscript.
type Overall struct {
	CharLen       int        `json:"char_len"`
	Repetition    Repetition `json:"repetition"`
	PlannedScenes int        `json:"planned_scenes"`
	DraftedScenes int        `json:"drafted_scenes"`
	MaxSimilarity float64    `json:"max_adjacent_similarity"`
}

// Report is written to ReportPath.
type Report struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Verdict     string        `json:"verdict"`
	Warnings    []string      `json:"warnings"`
	Overall     Overall       `json:"overall"`
	Scenes      []SceneReport `json:"scenes"`
	Reset       []int         `json:"reset_scene_ids"`
}

// Run resets done scenes with missing content, measures the remaining
// scenes in reading order, and assigns a verdict from thresholds.
func Run(state *project.State, thresholds config.QC) *Report {
	report := &Report{
		GeneratedAt: time.Now().UTC(),
		Warnings:    []string{},
		Scenes:      []SceneReport{},
		Reset:       ResetMissing(state),
	}

	type drafted struct {
		node *project.SceneNode
		text string
		fp   *textutil.Fingerprint
	}
	var scenes []drafted
	corpus := textutil.NewCorpus()
	for _, node := range state.ReadingOrder() {
		if node.Status != project.SceneDone {
			continue
		}
		text := workflow.SceneText(node.ContentPath)
		if text == "" {
			continue
		}
		fp := textutil.NewFingerprint(text)
		corpus.Add(fp)
		scenes = append(scenes, drafted{node: node, text: text, fp: fp})
	}
	idf := corpus.IDF()

	var all strings.Builder
	for i, scene := range scenes {
		sr := SceneReport{
			SceneID:     scene.node.ID,
			Title:       scene.node.Title,
			ContentPath: scene.node.ContentPath,
			CharLen:     utf8.RuneCountInString(scene.text),
			Repetition:  Measure(scene.text),
			Tail:        Tail(scene.text, DefaultTailSignals),
		}
		if i > 0 {
			sr.SimilarityToPrevious = round4(similarity(scenes[i-1].fp, scene.fp, idf))
		}
		if sr.SimilarityToPrevious > report.Overall.MaxSimilarity {
			report.Overall.MaxSimilarity = sr.SimilarityToPrevious
		}
		if thresholds.SimilarityWarn > 0 && sr.SimilarityToPrevious >= thresholds.SimilarityWarn {
			report.Warnings = append(report.Warnings, fmt.Sprintf("scene %d is %.2f similar to the previous scene", sr.SceneID, sr.SimilarityToPrevious))
		}
		report.Scenes = append(report.Scenes, sr)
		all.WriteString(scene.text)
		all.WriteString("\n\n")
	}

	manuscript := all.String()
	report.Overall.CharLen = utf8.RuneCountInString(strings.TrimSpace(manuscript))
	report.Overall.Repetition = Measure(manuscript)
	report.Overall.PlannedScenes = state.SceneCount()
	report.Overall.DraftedScenes = len(scenes)

	report.Verdict = VerdictPass
	if ratio := report.Overall.Repetition.RepeatRatio(headlineN); thresholds.RepeatRatioWarn > 0 && ratio >= thresholds.RepeatRatioWarn {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%d-gram repeat ratio is high: %.4f", headlineN, ratio))
	}
	if len(report.Reset) > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%d scenes lost their content and were reset to pending", len(report.Reset)))
	}
	if len(report.Warnings) > 0 {
		report.Verdict = VerdictWarn
	}
	if len(scenes) == 0 {
		report.Verdict = VerdictFail
		report.Warnings = append(report.Warnings, "no drafted scenes found")
	}
	return report
}

// Save writes the report and returns its absolute path.
func Save(store *storage.Store, report *Report) (string, error) {
	return store.SaveJSON(ReportPath, report)
}

// ResetMissing sets every done node without readable content back to
// pending and returns the reset ids in tree order.
func ResetMissing(state *project.State) []int {
	reset := []int{}
	state.Walk(func(node *project.SceneNode) bool {
		if node.Status == project.SceneDone && workflow.SceneText(node.ContentPath) == "" {
			node.Status = project.ScenePending
			reset = append(reset, node.ID)
		}
		return true
	})
	return reset
}

// Measure computes repetition statistics for n = 3, 4, 5.
func Measure(text string) Repetition {
	tokens := textutil.Words(text)
	rep := Repetition{TokenCount: len(tokens), NGrams: make(map[string]NGramStat, len(ngramSizes))}
	for _, n := range ngramSizes {
		rep.NGrams[strconv.Itoa(n)] = ngramStat(tokens, n)
	}
	return rep
}

func ngramStat(tokens []string, n int) NGramStat {
	stat := NGramStat{Top: []NGramCount{}}
	if len(tokens) < n {
		return stat
	}
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], " ")]++
	}
	repeated := 0
	for _, c := range counts {
		if c >= 2 {
			repeated += c
		}
	}
	stat.Unique = len(counts)
	stat.Total = len(tokens) - n + 1
	stat.RepeatRatio = round4(float64(repeated) / float64(stat.Total))

	top := make([]NGramCount, 0, len(counts))
	for gram, c := range counts {
		top = append(top, NGramCount{NGram: gram, Count: c})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].NGram < top[j].NGram
	})
	if len(top) > topNGrams {
		top = top[:topNGrams]
	}
	stat.Top = top
	return stat
}

// Tail looks for signals in the last 200 characters of text.
func Tail(text string, signals []string) TailSignal {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) > tailRunes {
		runes = runes[len(runes)-tailRunes:]
	}
	tail := string(runes)
	lowered := strings.ToLower(tail)
	out := TailSignal{Hits: []string{}}
	for _, signal := range signals {
		if strings.Contains(lowered, strings.ToLower(signal)) {
			out.Hits = append(out.Hits, signal)
		}
	}
	out.HasSignal = len(out.Hits) > 0
	preview := []rune(tail)
	if len(preview) > previewLen {
		preview = preview[len(preview)-previewLen:]
	}
	out.Preview = string(preview)
	return out
}

// similarity weights by IDF so vocabulary shared by every scene does not
// dominate. When weighting erases either side, raw frequencies are used.
func similarity(a, b *textutil.Fingerprint, idf map[string]float64) float64 {
	wa, wb := a.WithIDF(idf), b.WithIDF(idf)
	if wa == nil || wb == nil {
		return textutil.CosineSimilarity(a, b)
	}
	return textutil.CosineSimilarity(wa, wb)
}

func round4(v float64) float64 {
	return float64(int64(v*10000+0.5)) / 10000
}
