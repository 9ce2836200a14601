// Package prompts loads the prompt catalog and renders entries with
// text/template.
//
// The default catalog is embedded from prompts.yaml. A user file
// (paths.prompts_file) overrides entries field by field, so a custom catalog
// only needs the entries it changes.
package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultCatalog []byte

// Entry names used by the pipeline.
const (
	Ideation          = "ideation"
	Outline           = "outline"
	Bible             = "bible"
	ScenePlanExtract  = "scene_plan_extract"
	ScenePlanExpand   = "scene_plan_expand"
	ScenePlanAnalysis = "scene_plan_analysis"
	Drafting          = "drafting"
	Revise            = "revise"
	Consolidate       = "consolidate"
	Summarize         = "summarize"
)

const globalSystemKey = "global_system"

// Entry is one catalog item.
type Entry struct {
	System string `yaml:"system"`
	Prompt string `yaml:"prompt"`
}

// Catalog holds parsed templates.
type Catalog struct {
	global  *template.Template
	entries map[string]compiled
}

type compiled struct {
	system *template.Template
	prompt *template.Template
}

type rawCatalog map[string]yaml.Node

var funcs = template.FuncMap{
	"join":  strings.Join,
	"upper": strings.ToUpper,
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Load("")
}

// Load parses the embedded catalog and applies overrides from path when set.
func Load(path string) (*Catalog, error) {
	global, entries, err := decode(defaultCatalog)
	if err != nil {
		return nil, fmt.Errorf("default prompts: %w", err)
	}
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read prompts file: %w", err)
		}
		overrideGlobal, overrides, err := decode(data)
		if err != nil {
			return nil, fmt.Errorf("prompts file %s: %w", path, err)
		}
		if overrideGlobal != "" {
			global = overrideGlobal
		}
		for name, entry := range overrides {
			base := entries[name]
			if entry.System != "" {
				base.System = entry.System
			}
			if entry.Prompt != "" {
				base.Prompt = entry.Prompt
			}
			entries[name] = base
		}
	}
	return compile(global, entries)
}

func decode(data []byte) (string, map[string]Entry, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return "", nil, fmt.Errorf("parse yaml: %w", err)
	}
	var global string
	entries := make(map[string]Entry, len(raw))
	for name, node := range raw {
		if name == globalSystemKey {
			if err := node.Decode(&global); err != nil {
				return "", nil, fmt.Errorf("%s: %w", name, err)
			}
			continue
		}
		var entry Entry
		if err := node.Decode(&entry); err != nil {
			return "", nil, fmt.Errorf("%s: %w", name, err)
		}
		entries[name] = entry
	}
	return global, entries, nil
}

func compile(global string, entries map[string]Entry) (*Catalog, error) {
	catalog := &Catalog{entries: make(map[string]compiled, len(entries))}
	var err error
	if catalog.global, err = parse(globalSystemKey, global); err != nil {
		return nil, err
	}
	for name, entry := range entries {
		if strings.TrimSpace(entry.Prompt) == "" {
			return nil, fmt.Errorf("prompt %q has no prompt text", name)
		}
		var c compiled
		if c.system, err = parse(name+".system", entry.System); err != nil {
			return nil, err
		}
		if c.prompt, err = parse(name+".prompt", entry.Prompt); err != nil {
			return nil, err
		}
		catalog.entries[name] = c
	}
	return catalog, nil
}

func parse(name, text string) (*template.Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	tpl, err := template.New(name).Funcs(funcs).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	return tpl, nil
}

// Names lists the catalog entries in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render executes an entry. The system text is the global system prompt
// followed by the entry's own system text, when either is present.
func (c *Catalog) Render(name string, data any) (system, prompt string, err error) {
	entry, ok := c.entries[name]
	if !ok {
		return "", "", fmt.Errorf("unknown prompt %q", name)
	}
	global, err := execute(c.global, data)
	if err != nil {
		return "", "", err
	}
	own, err := execute(entry.system, data)
	if err != nil {
		return "", "", err
	}
	prompt, err = execute(entry.prompt, data)
	if err != nil {
		return "", "", err
	}
	parts := make([]string, 0, 2)
	for _, part := range []string{global, own} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "\n\n"), prompt, nil
}

func execute(tpl *template.Template, data any) (string, error) {
	if tpl == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tpl.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}
