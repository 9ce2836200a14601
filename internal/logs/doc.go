// Package logs reads run logs with bounded memory.
//
// Tail returns the last N lines of a file (or everything after a byte offset)
// and Follow polls for appended lines until its context ends. Both back the
// "loom logs" command, which views a run's run.log or its LLM trace.
package logs
