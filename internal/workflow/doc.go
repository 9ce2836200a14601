// Package workflow runs the generation steps that need an operator or a
// worker pool.
//
// Engine.RunStepWithHITL produces candidates for a global artifact step
// (idea, outline, bible) and lets the operator select, view, revise, reroll,
// or upload before exactly one candidate is marked selected. Headless runs
// take the first candidate.
//
// Engine.ProcessScene drafts one scene node. With branching enabled it fans
// out num_candidates drafts on a bounded errgroup, tolerates partial failure,
// selects one survivor (first survivor in auto mode, operator choice in
// manual mode), and promotes it to the canonical scene path with a verified
// copy. Losing candidates stay on disk. State is only touched after the join.
package workflow
