package webhookdocs

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestValidSignature(t *testing.T) {
	body := []byte(`{"event_kind":"encounter_note_signed"}`)
	secret := "whsec_test"

	if !ValidSignature(body, secret, signBody(body, secret)) {
		t.Fatal("valid signature rejected")
	}
	if ValidSignature(body, secret, signBody(body, "other-secret")) {
		t.Fatal("signature from wrong secret accepted")
	}
	if ValidSignature([]byte(`{"event_kind":"tampered"}`), secret, signBody(body, secret)) {
		t.Fatal("signature over different body accepted")
	}
	if ValidSignature(body, secret, "") {
		t.Fatal("empty signature accepted")
	}
	if ValidSignature(body, "", signBody(body, "")) {
		t.Fatal("empty secret accepted")
	}
}

func TestValidSignatureHexCaseInsensitive(t *testing.T) {
	body := []byte(`{"event_kind":"lab_result_reviewed"}`)
	secret := "whsec_test"

	if !ValidSignature(body, secret, strings.ToUpper(signBody(body, secret))) {
		t.Fatal("uppercase hex signature rejected")
	}
	if ValidSignature(body, secret, "not-hex-at-all") {
		t.Fatal("non-hex signature accepted")
	}
	// Truncated digests never match even if their bytes are a prefix.
	if ValidSignature(body, secret, signBody(body, secret)[:32]) {
		t.Fatal("truncated signature accepted")
	}
}
