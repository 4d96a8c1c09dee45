package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"go.uber.org/zap"
)

// SignatureHeader carries the provider's HMAC of the raw request body.
const SignatureHeader = "X-Lengopay-Signature"

// Verifier checks webhook signatures. Verification is a hard gate:
// payloads that fail it are rejected before any field is trusted.
type Verifier struct {
	secret []byte
	logger *zap.Logger
}

// NewVerifier creates a new webhook verifier
func NewVerifier(secret string, logger *zap.Logger) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		logger: logger,
	}
}

// Verify reports whether signature is a valid hex HMAC-SHA256 of body.
func (v *Verifier) Verify(body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		v.logger.Warn("Webhook signature is not valid hex")
		return false
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), provided)
}

// Sign returns the hex HMAC-SHA256 of body. Used by tests and by
// outbound tooling that replays stored payloads.
func (v *Verifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
