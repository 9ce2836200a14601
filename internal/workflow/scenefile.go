package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"
)

const sceneDir = "05_drafting/scenes"

// SceneFile is the on-disk record of one drafted scene or branch candidate.
type SceneFile struct {
	SceneID     int       `json:"scene_id"`
	Title       string    `json:"title"`
	CandidateID string    `json:"candidate_id,omitempty"`
	Content     string    `json:"content"`
	CharLen     int       `json:"char_len"`
	CreatedAt   time.Time `json:"created_at"`
}

// CanonicalScenePath returns the artifact-relative path of a scene's
// promoted draft.
func CanonicalScenePath(sceneID int) string {
	return fmt.Sprintf("%s/scene_%03d.json", sceneDir, sceneID)
}

// CandidateScenePath returns the artifact-relative path of a branch draft.
func CandidateScenePath(sceneID int, candidateID string) string {
	return fmt.Sprintf("%s/scene_%03d_%s.json", sceneDir, sceneID, candidateID)
}

func sidecarPath(jsonPath string) string {
	return strings.TrimSuffix(jsonPath, ".json") + ".md"
}

func newSceneFile(sceneID int, title, candidateID, content string) SceneFile {
	return SceneFile{
		SceneID:     sceneID,
		Title:       title,
		CandidateID: candidateID,
		Content:     content,
		CharLen:     utf8.RuneCountInString(content),
		CreatedAt:   time.Now().UTC(),
	}
}

func (f SceneFile) markdown() string {
	return fmt.Sprintf("# Scene %d: %s\n\n%s\n", f.SceneID, f.Title, strings.TrimSpace(f.Content))
}

// ReadScene loads a scene record from an absolute path.
func ReadScene(path string) (SceneFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SceneFile{}, err
	}
	var file SceneFile
	if err := json.Unmarshal(data, &file); err != nil {
		return SceneFile{}, fmt.Errorf("decode scene %s: %w", path, err)
	}
	return file, nil
}

// SceneText returns the prose stored at path, or "" when it is unreadable.
func SceneText(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	file, err := ReadScene(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(file.Content)
}
