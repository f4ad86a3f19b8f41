package config

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// fingerprint hashes a configuration's raw text so the watchdog's
// Reload can tell whether a file whose mtime changed actually has
// different content, without keeping the whole
// previous text around to compare byte-for-byte.
func fingerprint(src string) string {
	sum := blake2b.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}
