// Package phase validates and applies pipeline phase transitions.
//
// The transition table is fixed: each phase may move forward to its successor
// or back to a small set of earlier phases. Machine.TransitionTo rejects
// anything else unless forced, and persists the new phase before returning so
// a crash can never observe a phase that was not checkpointed.
package phase
