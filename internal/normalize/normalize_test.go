package normalize

import "testing"

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"  What is   Velocity? ",
		"what is velocity?",
		"\tWHAT\nIS\nVELOCITY?\n",
		"",
		"   ",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalizeCollapsesEquivalentPhrasings(t *testing.T) {
	a := Normalize("  What is   Velocity? ")
	b := Normalize("what is velocity?")
	if a != b {
		t.Fatalf("equivalent phrasings differ: %q vs %q", a, b)
	}
}

func TestFingerprintStable(t *testing.T) {
	k1 := Fingerprint("what is velocity?", "chapter-3", "en")
	k2 := Fingerprint("what is velocity?", "chapter-3", "en")
	if k1 != k2 {
		t.Fatalf("fingerprint not deterministic")
	}
	if len(k1) != 64 {
		t.Fatalf("expected sha256 hex, got %d chars", len(k1))
	}
}

func TestFingerprintScopeAndLanguageSeparate(t *testing.T) {
	base := Fingerprint("what is velocity?", "chapter-3", "en")
	if base == Fingerprint("what is velocity?", "chapter-4", "en") {
		t.Fatalf("scope not part of the key")
	}
	if base == Fingerprint("what is velocity?", "chapter-3", "es") {
		t.Fatalf("language not part of the key")
	}
	// Field separators keep ("ab","c") and ("a","bc") apart.
	if Fingerprint("ab", "c", "en") == Fingerprint("a", "bc", "en") {
		t.Fatalf("field boundaries ambiguous")
	}
}

func TestFingerprintEmptyQuestionDefined(t *testing.T) {
	k := Fingerprint("", "chapter-3", "en")
	if k == "" || len(k) != 64 {
		t.Fatalf("empty question must hash to a defined key, got %q", k)
	}
}
