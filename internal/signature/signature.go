// Package signature verifies webhook authenticity via HMAC-SHA256 over
// the raw request body, rendered as lowercase hex.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the hex-encoded HMAC-SHA256 of body under secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether provided is a valid signature for body under
// secret. A missing or malformed signature is simply invalid; the
// comparison is constant-time.
func Verify(body []byte, provided, secret string) bool {
	if provided == "" {
		return false
	}

	providedMAC, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(providedMAC, mac.Sum(nil))
}
