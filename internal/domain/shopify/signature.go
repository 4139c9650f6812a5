package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// HeaderHmac carries the webhook signature computed by Shopify.
const HeaderHmac = "X-Shopify-Hmac-Sha256"

// Signature provides HMAC-SHA256 webhook verification for Shopify.
type Signature struct {
	secret string
}

// NewSignature creates a new Signature utility.
func NewSignature(secret string) *Signature {
	return &Signature{secret: secret}
}

// Sign returns base64(HMAC-SHA256(secret, body)).
func (s *Signature) Sign(body []byte) string {
	h := hmac.New(sha256.New, []byte(s.secret))
	h.Write(body)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// VerifyWebhook reports whether providedSignature matches body. An empty
// secret never verifies.
func (s *Signature) VerifyWebhook(body []byte, providedSignature string) bool {
	if s.secret == "" || providedSignature == "" {
		return false
	}
	return hmac.Equal([]byte(s.Sign(body)), []byte(providedSignature))
}
