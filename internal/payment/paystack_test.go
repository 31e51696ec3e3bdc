package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInitializePayment(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody initializeRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]interface{}{
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code":       "abc123",
				"reference":         gotBody.Reference,
			},
		})
	}))
	defer srv.Close()

	c := NewClient("sk_test_x", srv.URL)
	url, err := c.InitializePayment(context.Background(), "ada@example.com", 2500, "RSVP_0123456789ab", "https://app.example.com/cb")
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if url != "https://checkout.paystack.com/abc123" {
		t.Fatalf("url = %s", url)
	}
	if gotAuth != "Bearer sk_test_x" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
	if gotPath != "/transaction/initialize" {
		t.Fatalf("path = %s", gotPath)
	}
	if gotBody.Email != "ada@example.com" || gotBody.Amount != 2500 || gotBody.Reference != "RSVP_0123456789ab" {
		t.Fatalf("request body = %+v", gotBody)
	}
}

func TestInitializePaymentGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  false,
			"message": "Invalid key",
		})
	}))
	defer srv.Close()

	c := NewClient("sk_test_bad", srv.URL)
	if _, err := c.InitializePayment(context.Background(), "ada@example.com", 2500, "RSVP_0123456789ab", ""); err == nil {
		t.Fatal("want error on declined initialization")
	}
}

func TestVerifyTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/verify/RSVP_0123456789ab" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]interface{}{
				"reference": "RSVP_0123456789ab",
				"status":    "success",
				"amount":    2500,
			},
		})
	}))
	defer srv.Close()

	c := NewClient("sk_test_x", srv.URL)
	res, err := c.VerifyTransaction(context.Background(), "RSVP_0123456789ab")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Status != "success" || res.Amount != 2500 || res.Reference != "RSVP_0123456789ab" {
		t.Fatalf("result = %+v", res)
	}
}
