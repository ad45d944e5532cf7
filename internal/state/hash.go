package state

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent returns a stable hex-encoded SHA-256 hash for content.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// DocumentVersion returns a short id for one version of a named document.
// The name is included so identical content under different names yields
// different ids.
func DocumentVersion(fileName, content string) string {
	sum := sha256.Sum256([]byte(fileName + "\x00" + content))
	full := hex.EncodeToString(sum[:])
	return full[:8]
}
