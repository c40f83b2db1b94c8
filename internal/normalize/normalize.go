// Package normalize canonicalizes tutor questions so semantically identical
// phrasings share one cache fingerprint.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize trims, lowercases, and collapses runs of whitespace. Idempotent.
func Normalize(text string) string {
	fields := strings.Fields(strings.ToLower(text))
	return strings.Join(fields, " ")
}

// Fingerprint hashes the canonical question together with its scope and
// language. The empty question is legal and hashes like any other value.
func Fingerprint(canonical, scopeID, language string) string {
	h := sha256.New()
	h.Write([]byte(canonical))
	h.Write([]byte{0})
	h.Write([]byte(scopeID))
	h.Write([]byte{0})
	h.Write([]byte(language))
	return hex.EncodeToString(h.Sum(nil))
}
