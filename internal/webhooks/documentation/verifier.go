package webhookdocs

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// ValidSignature checks a hex HMAC-SHA256 signature over the exact raw
// delivery body against the integration's shared secret. The header is
// decoded before comparing so senders may use either hex case.
func ValidSignature(payload []byte, secret, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), provided)
}
