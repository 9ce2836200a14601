// Package pipeline drives a run through its phases.
//
// Manager owns the run state, the phase machine, and the handler registry.
// RunPhase executes the current phase and advances on success; RunAuto loops
// until the run is done or a phase fails. Step and Rollback move the run
// explicitly. Failures leave the phase unchanged so a later resume retries
// the same work.
package pipeline
