package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const mockPromptEcho = 800

// Mock is a deterministic offline provider. Prompts that ask for a JSON array
// receive a small scene list, prompts that ask for a JSON object receive a
// scene expansion, and everything else is echoed back as placeholder prose.
type Mock struct {
	Scenes int
}

// NewMock returns a mock provider that plans three scenes.
func NewMock() *Mock {
	return &Mock{Scenes: 3}
}

func (m *Mock) Name() string  { return "mock" }
func (m *Mock) Model() string { return "mock" }

// Generate implements Provider.
func (m *Mock) Generate(ctx context.Context, system, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch {
	case strings.Contains(system, "JSON array"):
		return m.scenePlan(), nil
	case strings.Contains(system, "JSON object"):
		return `{"goal":"move the story forward","conflict":"an obstacle resists","characters":["protagonist"],"setting":"unspecified","beats":["open","turn","close"]}`, nil
	}
	runes := []rune(prompt)
	if len(runes) > mockPromptEcho {
		runes = runes[:mockPromptEcho]
	}
	return fmt.Sprintf("[MOCK OUTPUT]\nSYSTEM:\n%s\n\nPROMPT:\n%s\n", system, string(runes)), nil
}

func (m *Mock) scenePlan() string {
	count := m.Scenes
	if count <= 0 {
		count = 1
	}
	type entry struct {
		ID      int    `json:"id"`
		Title   string `json:"title"`
		Summary string `json:"summary"`
	}
	scenes := make([]entry, 0, count)
	for i := 1; i <= count; i++ {
		scenes = append(scenes, entry{
			ID:      i,
			Title:   fmt.Sprintf("Scene %d", i),
			Summary: fmt.Sprintf("Placeholder beat %d.", i),
		})
	}
	data, _ := json.Marshal(scenes)
	return string(data)
}
