// Package identity derives opaque client tokens from raw network
// identities. The hash is unsalted on purpose: the same IP must map to
// the same token across requests so "one like per IP per post" holds.
// The tradeoff is that tokens are linkable across posts for one client.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the hex-encoded SHA-256 of the raw identity. Raw
// identities are never stored or compared directly.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
