package notifications

import (
	"fmt"
	"strings"
)

// Event identifies a pipeline milestone worth telling the operator about.
type Event string

const (
	EventPhaseCompleted    Event = "phase_completed"
	EventPhaseFailed       Event = "phase_failed"
	EventMissingDependency Event = "missing_dependency"
	EventSceneDrafted      Event = "scene_drafted"
	EventBranchFailed      Event = "branch_failed"
	EventQCReport          Event = "qc_report"
	EventNeedsRedraft      Event = "needs_redraft"
	EventRollback          Event = "rollback"
	EventRunCompleted      Event = "run_completed"
	EventTest              Event = "test"
)

// Payload carries event details. Keys are event specific.
type Payload map[string]any

func (p Payload) str(key string) string {
	if p == nil {
		return ""
	}
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

// format renders an event. The bool result is false for unknown events.
func format(event Event, payload Payload) (message, bool) {
	run := payload.str("run_id")
	switch event {
	case EventPhaseCompleted:
		return message{
			title: "Loom - Phase Complete",
			body:  fmt.Sprintf("✅ %s finished (run %s)", payload.str("phase"), run),
			tags:  []string{"loom", "phase", "completed"},
		}, true
	case EventPhaseFailed:
		body := fmt.Sprintf("❌ %s failed: %s", payload.str("phase"), payload.str("error"))
		if hint := payload.str("hint"); hint != "" {
			body += "\nNext: " + hint
		}
		return message{
			title:    "Loom - Phase Failed",
			body:     body,
			tags:     []string{"loom", "error", "alert"},
			priority: "high",
		}, true
	case EventMissingDependency:
		return message{
			title:    "Loom - Missing Dependency",
			body:     fmt.Sprintf("⚠️ %s needs %s before it can run", payload.str("phase"), payload.str("dependency")),
			tags:     []string{"loom", "dependency", "warning"},
			priority: "high",
		}, true
	case EventSceneDrafted:
		body := fmt.Sprintf("📝 Scene %s drafted", payload.str("scene_id"))
		if candidate := payload.str("candidate_id"); candidate != "" {
			body += fmt.Sprintf(" (selected %s)", candidate)
		}
		return message{
			title: "Loom - Scene Drafted",
			body:  body,
			tags:  []string{"loom", "scene", "drafted"},
		}, true
	case EventBranchFailed:
		return message{
			title: "Loom - Branch Failed",
			body:  fmt.Sprintf("Branch %s of scene %s failed: %s", payload.str("candidate_id"), payload.str("scene_id"), payload.str("error")),
			tags:  []string{"loom", "branch", "warning"},
		}, true
	case EventQCReport:
		return message{
			title: "Loom - QC " + payload.str("verdict"),
			body:  fmt.Sprintf("🔎 QC verdict %s: %s scenes checked, %s reset", payload.str("verdict"), payload.str("scenes"), payload.str("reset")),
			tags:  []string{"loom", "qc", strings.ToLower(payload.str("verdict"))},
		}, true
	case EventNeedsRedraft:
		return message{
			title:    "Loom - Redraft Needed",
			body:     fmt.Sprintf("↩️ %s scenes lost their content and were reset to pending", payload.str("reset")),
			tags:     []string{"loom", "qc", "redraft"},
			priority: "high",
		}, true
	case EventRollback:
		return message{
			title: "Loom - Rollback",
			body:  fmt.Sprintf("Rolled back from %s to %s", payload.str("from"), payload.str("to")),
			tags:  []string{"loom", "phase", "rollback"},
		}, true
	case EventRunCompleted:
		body := fmt.Sprintf("📚 Run %s complete", run)
		if path := payload.str("export_path"); path != "" {
			body += "\nManuscript: " + path
		}
		return message{
			title:    "Loom - Complete",
			body:     body,
			tags:     []string{"loom", "run", "completed"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Loom - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"loom", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}
