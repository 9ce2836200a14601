package prompts

import "loom/internal/config"

// Vars is the template data for Render. Templates index it by key, so a key
// that is absent renders as empty rather than failing.
type Vars map[string]any

// ContentVars seeds Vars from the [content] config section.
func ContentVars(content config.Content) Vars {
	tags := make([]string, len(content.Tags))
	copy(tags, content.Tags)
	return Vars{
		"Title":         content.Title,
		"Genre":         content.Genre,
		"Tags":          tags,
		"TargetWords":   content.TargetWords,
		"AvgSceneWords": content.AvgSceneWords,
		"POV":           content.POV,
		"Tone":          content.Tone,
	}
}

// With returns a copy of v with the given key set.
func (v Vars) With(key string, value any) Vars {
	out := make(Vars, len(v)+1)
	for k, val := range v {
		out[k] = val
	}
	out[key] = value
	return out
}

// Merge returns a copy of v overlaid with extra.
func (v Vars) Merge(extra Vars) Vars {
	out := make(Vars, len(v)+len(extra))
	for k, val := range v {
		out[k] = val
	}
	for k, val := range extra {
		out[k] = val
	}
	return out
}
