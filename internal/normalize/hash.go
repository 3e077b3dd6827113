package normalize

import (
	"crypto/sha256"
	"encoding/hex"
)

// hashLen is the number of hex characters kept from the digest. Short
// enough to read in reports, long enough that collisions stay at
// cryptographic-digest probability for any realistic corpus.
const hashLen = 16

// HashSignature returns the stable content hash of a grouping signature.
func HashSignature(signature string) string {
	sum := sha256.Sum256([]byte(signature))
	return hex.EncodeToString(sum[:])[:hashLen]
}
