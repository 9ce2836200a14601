package textutil

import (
	"math"
	"strings"
	"testing"
)

func TestWords(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "latin", input: "Hello, World! It's 2 a.m.", want: []string{"hello", "world", "it", "s", "2", "a", "m"}},
		{name: "accents", input: "Café déjà-vu", want: []string{"café", "déjà", "vu"}},
		{name: "han split per rune", input: "他抬头看天", want: []string{"他", "抬", "头", "看", "天"}},
		{name: "mixed", input: "Ana说ok", want: []string{"ana", "说", "ok"}},
		{name: "empty", input: "", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Words(tt.input)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Fatalf("Words(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTokenizeKeepsHanAndLongWords(t *testing.T) {
	got := Tokenize("a to the quick fox 雨")
	want := []string{"the", "quick", "fox", "雨"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
}

func TestNewFingerprint(t *testing.T) {
	if NewFingerprint("") != nil || NewFingerprint("a an it to") != nil {
		t.Fatal("expected nil fingerprint without usable tokens")
	}
	fp := NewFingerprint("hello hello world")
	if fp == nil {
		t.Fatal("expected fingerprint")
	}
	if math.Abs(fp.norm-math.Sqrt(5)) > 1e-9 {
		t.Fatalf("norm = %v, want sqrt(5)", fp.norm)
	}
	if fp.TokenCount() != 2 {
		t.Fatalf("TokenCount = %d, want 2", fp.TokenCount())
	}
	var nilFP *Fingerprint
	if nilFP.TokenCount() != 0 {
		t.Fatal("nil fingerprint must report 0 tokens")
	}
}

func TestCosineSimilarity(t *testing.T) {
	text := "The harbor lights flickered while the ferry waited"
	if got := CosineSimilarity(NewFingerprint(text), NewFingerprint(text)); math.Abs(got-1) > 1e-9 {
		t.Fatalf("identical texts = %v, want 1", got)
	}
	if got := CosineSimilarity(NewFingerprint("apple banana cherry"), NewFingerprint("dog elephant frog")); got != 0 {
		t.Fatalf("disjoint texts = %v, want 0", got)
	}
	a := NewFingerprint("the quick brown fox")
	b := NewFingerprint("the slow brown cat")
	ab, ba := CosineSimilarity(a, b), CosineSimilarity(b, a)
	if ab <= 0 || ab >= 1 || math.Abs(ab-ba) > 1e-12 {
		t.Fatalf("partial overlap = %v/%v, want symmetric in (0,1)", ab, ba)
	}
	if CosineSimilarity(nil, a) != 0 || CosineSimilarity(a, nil) != 0 {
		t.Fatal("nil fingerprints must score 0")
	}
}

func TestIDFDownweightsSharedTerms(t *testing.T) {
	docs := []string{
		"harbor storm harbor lantern",
		"harbor market spice",
		"harbor mountain snow",
	}
	corpus := NewCorpus()
	fps := make([]*Fingerprint, len(docs))
	for i, doc := range docs {
		fps[i] = NewFingerprint(doc)
		corpus.Add(fps[i])
	}
	idf := corpus.IDF()
	if idf["harbor"] >= idf["storm"] {
		t.Fatalf("shared term should weigh less: harbor=%v storm=%v", idf["harbor"], idf["storm"])
	}
	raw := CosineSimilarity(fps[1], fps[2])
	weighted := CosineSimilarity(fps[1].WithIDF(idf), fps[2].WithIDF(idf))
	if weighted >= raw {
		t.Fatalf("IDF should reduce similarity from shared terms: raw=%v weighted=%v", raw, weighted)
	}
	if NewCorpus().IDF() != nil {
		t.Fatal("empty corpus must return nil IDF")
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "The Long Fall", want: "The_Long_Fall"},
		{input: "  What? A/B: Story*  ", want: "What_A-B-_Story"},
		{input: "雨夜", want: "雨夜"},
		{input: "...", want: "untitled"},
		{input: "", want: "untitled"},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.input, "untitled"); got != tt.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
	long := strings.Repeat("a", 200)
	if got := SanitizeFileName(long, "x"); len([]rune(got)) != maxFileNameRunes {
		t.Fatalf("expected cap at %d runes, got %d", maxFileNameRunes, len([]rune(got)))
	}
}

func TestTernary(t *testing.T) {
	if Ternary(true, "a", "b") != "a" || Ternary(false, 1, 2) != 2 {
		t.Fatal("Ternary picked the wrong branch")
	}
}
