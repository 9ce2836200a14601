package textutil

// CosineSimilarity compares two fingerprints. Nil inputs score 0.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	small, large := a, b
	if len(small.tokens) > len(large.tokens) {
		small, large = large, small
	}
	var dot float64
	for token, w := range small.tokens {
		dot += w * large.tokens[token]
	}
	return dot / (a.norm * b.norm)
}
