// Package logging assembles structured slog loggers and formatting helpers used
// across Loom.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so phase code can automatically
// tag log lines with run IDs, phases, scene IDs, and correlation IDs. OpenRunLog
// tees a logger into the per-run log file kept alongside each run's artifacts.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same shape.
package logging
