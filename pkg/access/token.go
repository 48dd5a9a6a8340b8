package access

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// tokenBytes gives 256 bits of entropy; the token value is the credential, so
// the generator must never fall back to a weaker source.
const tokenBytes = 32

// NewToken returns a fresh 64-character lowercase hex token from the
// system CSPRNG.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("access: entropy source failed: %w", err)
	}
	return hex.EncodeToString(b), nil
}
