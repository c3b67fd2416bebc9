package feeds

import (
	"crypto/md5" //nolint:gosec // non-cryptographic id generation
	"encoding/hex"
)

// Identity derives the stable article id from title and link.
// Collisions silently merge two articles during dedup; this is accepted.
func Identity(title, link string) string {
	sum := md5.Sum([]byte(title + link)) //nolint:gosec // non-cryptographic id generation
	return hex.EncodeToString(sum[:])
}
