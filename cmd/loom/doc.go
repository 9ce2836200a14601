// Package main hosts the loom CLI entrypoint and command graph.
//
// The Cobra command tree creates and resumes runs, forces or rolls back
// phases, and renders run status and candidate lists. It owns configuration
// resolution, logger setup, and the per-run session wiring (lock, run log,
// provider tracing, index-backed persistence) so the pipeline packages stay
// free of process concerns.
//
// Add behavior in the internal packages first and surface it here through a
// dedicated command or flag.
package main
