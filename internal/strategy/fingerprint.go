// AngelaMos | 2026
// fingerprint.go

package strategy

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprintVersion is bumped whenever the generated document shape
// changes incompatibly, invalidating all previously cached documents.
const fingerprintVersion = "v2"

// Fingerprint derives the content-addressed cache key for a request.
// The mode is not part of the key: both modes share one generated
// document and differ only in the scores attached at persistence time.
// Inputs are lowercased and trimmed so cosmetic variations of the same
// request converge on one key.
func Fingerprint(r *GenerateStrategyRequest) string {
	parts := []string{
		fingerprintVersion,
		canon(r.Goal),
		canon(r.Audience),
		canon(r.Industry),
		canon(r.Platform),
		canon(r.ContentType),
		canon(r.Experience),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func canon(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
