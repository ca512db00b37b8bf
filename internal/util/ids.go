package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewPublicID returns a 16-character hex identifier for captures and
// groups. These ids appear in URLs and asset paths, so they stay short
// and opaque while database ids remain internal.
func NewPublicID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand only fails when the platform randomness source is
		// broken, at which point nothing else works either.
		panic(err)
	}
	return hex.EncodeToString(b)
}
