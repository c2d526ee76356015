// Package webhook validates and resolves inbound GitHub push deliveries.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader is the GitHub header carrying the HMAC signature.
const SignatureHeader = "X-Hub-Signature-256"

// EventHeader is the GitHub header carrying the event type.
const EventHeader = "X-GitHub-Event"

const signaturePrefix = "sha256="

// VerifySignature checks the claimed signature against an HMAC-SHA256 of
// the exact raw body bytes. The body must not be re-serialized before the
// check: whitespace differences would break verification. The comparison
// is constant time.
func VerifySignature(secret string, body []byte, signature string) (bool, string) {
	if secret == "" || signature == "" {
		return false, "missing secret or signature"
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := signaturePrefix + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return false, "invalid signature"
	}
	return true, ""
}

// Sign computes the signature header value for a body, used by tests and
// the local delivery tooling.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
