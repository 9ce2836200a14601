// Package textutil provides the text measures used by review and export:
// Unicode-aware tokenization, term-frequency fingerprints with optional
// IDF weighting, cosine similarity, and filename sanitization.
//
// Words splits prose into lowercase letter/digit runs. Han ideographs are
// emitted one per token so repetition and similarity work on text without
// word separators. Tokenize additionally drops short Latin tokens, which
// carry little signal for similarity.
package textutil
