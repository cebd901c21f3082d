package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

const fingerprintPrefixLen = 8

// Fingerprint hashes an observed field value. Only the hash is persisted.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// FingerprintPrefix is a short form of Fingerprint(text) for log fields.
func FingerprintPrefix(text string) string {
	return Fingerprint(text)[:fingerprintPrefixLen]
}
