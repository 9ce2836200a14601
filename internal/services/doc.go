// Package services defines shared utilities consumed by the phase handlers and
// the generation provider integration.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, phase names, scene IDs, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so failures carry their
//     phase and operation, and Details which turns them into operator hints.
//
// Use these helpers when wiring new phase logic so error handling and
// observability stay uniform across the pipeline.
package services
