// Package project owns the aggregate run state: the phase pointer, artifact
// paths, per-step candidates, the scene tree, and the archived memory cursor.
//
// State is snapshotted as a single JSON document (run_dir/state.json) through
// a temp-file rename so a crash never leaves a torn snapshot. Each snapshot is
// also recorded in a SQLite index shared by all runs, which backs listings and
// the checkpoint audit trail. The index is a convenience view; state.json is
// authoritative when the two disagree.
//
// Tree helpers enforce the invariants the rest of the pipeline relies on:
// scene ids are unique across the whole tree and every node's ParentID names
// the node whose branch list holds it.
package project
