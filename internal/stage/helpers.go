package stage

import (
	"context"
	"fmt"
	"strings"

	"loom/internal/project"
	"loom/internal/services"
)

// requireArtifact returns the first non-empty artifact from files, or a
// missing-dependency error naming what is absent.
func requireArtifact(env *Env, phase project.Phase, name string, files []string) (string, error) {
	text, _ := env.Store.FirstNonEmpty(files...)
	if strings.TrimSpace(text) == "" {
		return "", services.Wrap(services.ErrMissingDependency, string(phase), "load "+name,
			fmt.Sprintf("%s not found (looked for %s)", name, strings.Join(files, ", ")), nil)
	}
	return text, nil
}

// generate renders name with vars and calls the provider once.
func generate(ctx context.Context, env *Env, name string, vars map[string]any) (string, error) {
	system, prompt, err := env.Catalog.Render(name, vars)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, name, "render prompt", "", err)
	}
	out, err := env.Provider.Generate(ctx, system, prompt)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, name, "generate", "", err)
	}
	return strings.TrimSpace(out), nil
}

func truncateRunes(text string, limit int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "..."
}
