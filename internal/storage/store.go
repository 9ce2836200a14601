// Package storage reads and writes run artifacts under run_dir/artifacts.
//
// Paths handed to the store are relative and slash-separated
// ("05_drafting/scenes/scene_001.json"); the store rejects paths that would
// escape the artifact root.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"loom/internal/fileutil"
)

const artifactsDir = "artifacts"

// Store is rooted at a run's artifact directory.
type Store struct {
	root string
}

// New returns a store for runDir, creating the artifact root.
func New(runDir string) (*Store, error) {
	root := filepath.Join(runDir, artifactsDir)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the absolute artifact directory.
func (s *Store) Root() string { return s.root }

// Abs resolves a relative artifact path.
func (s *Store) Abs(rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(strings.ReplaceAll(rel, "\\", "/")))
	if cleaned == "." || filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid artifact path %q", rel)
	}
	return filepath.Join(s.root, cleaned), nil
}

// SaveText writes text atomically and returns the absolute path.
func (s *Store) SaveText(rel, text string) (string, error) {
	path, err := s.Abs(rel)
	if err != nil {
		return "", err
	}
	if err := fileutil.WriteFileAtomic(path, []byte(text)); err != nil {
		return "", fmt.Errorf("save %s: %w", rel, err)
	}
	return path, nil
}

// SaveJSON writes v as indented JSON and returns the absolute path.
func (s *Store) SaveJSON(rel string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", rel, err)
	}
	return s.SaveText(rel, string(data))
}

// ReadText returns the artifact content. A missing file reports fs.ErrNotExist.
func (s *Store) ReadText(rel string) (string, error) {
	path, err := s.Abs(rel)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadJSON decodes the artifact into v.
func (s *Store) ReadJSON(rel string, v any) error {
	text, err := s.ReadText(rel)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("decode %s: %w", rel, err)
	}
	return nil
}

// Exists reports whether the artifact is present.
func (s *Store) Exists(rel string) bool {
	path, err := s.Abs(rel)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// FirstNonEmpty returns the trimmed content of the first candidate that
// exists and is non-empty, along with its relative path. Unreadable files are
// skipped.
func (s *Store) FirstNonEmpty(candidates ...string) (string, string) {
	for _, rel := range candidates {
		text, err := s.ReadText(rel)
		if err != nil {
			continue
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return trimmed, rel
		}
	}
	return "", ""
}

// IsNotExist reports whether err means the artifact is absent.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
