// Package preflight provides readiness checks for the filesystem paths and
// external services a run depends on.
//
// These checks run in two contexts:
//   - The CLI calls Local before driving a run, so a missing runs directory
//     or a broken prompt override fails before any provider call.
//   - "loom preflight" calls RunAll, which adds the network checks (LLM
//     provider, ntfy topic) for the configured features.
//
// Each network check is gated by its config: the mock provider and an empty
// ntfy topic are skipped.
package preflight
