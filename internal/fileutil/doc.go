// Package fileutil provides the file primitives the pipeline relies on for
// crash safety: atomic replace-by-rename writes and integrity-verified copies.
package fileutil
