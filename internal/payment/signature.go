package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// Sign computes the hex HMAC-SHA512 of the exact raw body bytes using
// the shared gateway secret.  Paystack sends the same digest in the
// X-Paystack-Signature header of every webhook delivery.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether the provided signature matches the
// digest of the raw body.  The comparison is constant-time; callers
// must reject the delivery before reading anything from the payload
// when this returns false.
func VerifySignature(secret string, body []byte, signature string) bool {
	expected := Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
