// Package checksum computes the version tags handed out as ETags.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Document returns the version of a document's text fields.
func Document(title, content string) string {
	return Sum([]byte(title + "\n" + content))
}
