package payment

import "testing"

func TestVerifySignature(t *testing.T) {
	secret := "sk_test_secret"
	body := []byte(`{"event":"charge.success","data":{"reference":"RSVP_0123456789ab"}}`)

	t.Run("accepts own signature", func(t *testing.T) {
		sig := Sign(secret, body)
		if !VerifySignature(secret, body, sig) {
			t.Fatal("valid signature rejected")
		}
	})

	t.Run("rejects wrong secret", func(t *testing.T) {
		sig := Sign("sk_test_other", body)
		if VerifySignature(secret, body, sig) {
			t.Fatal("signature from another secret accepted")
		}
	})

	t.Run("rejects tampered body", func(t *testing.T) {
		sig := Sign(secret, body)
		tampered := append([]byte(nil), body...)
		tampered[len(tampered)-2] = 'c'
		if VerifySignature(secret, tampered, sig) {
			t.Fatal("tampered body accepted")
		}
	})

	t.Run("rejects empty signature", func(t *testing.T) {
		if VerifySignature(secret, body, "") {
			t.Fatal("empty signature accepted")
		}
	})
}
