package normalize

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint derives the exact-duplicate identity hash of a normalized report:
// SHA-256 over normalized title, ISO event date (or "unknown"), and the
// normalized location key. Reports differing only in case, whitespace, or
// punctuation of the title collide by construction.
func Fingerprint(n Normalized) string {
	h := sha256.New()
	h.Write([]byte(n.Title))
	h.Write([]byte{'\n'})
	h.Write([]byte(n.EventDateISO))
	h.Write([]byte{'\n'})
	h.Write([]byte(n.LocationKey))
	return hex.EncodeToString(h.Sum(nil))
}
