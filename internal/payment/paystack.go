// Package payment contains the Paystack gateway adapter: an outbound
// client for initializing hosted payment sessions and the HMAC-SHA512
// signature check applied to inbound webhook deliveries.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultBaseURL is the production Paystack API endpoint.
const DefaultBaseURL = "https://api.paystack.co"

// Client calls the Paystack REST API.  Every request carries the secret
// key as a bearer token and is bounded by the HTTP client timeout so a
// hung gateway cannot pin a request goroutine indefinitely.
type Client struct {
	secret  string
	baseURL string
	http    *http.Client
}

// NewClient constructs a Client.  An empty baseURL selects the
// production endpoint; tests point it at a local server.
func NewClient(secret, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		secret:  secret,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// InitializeResult carries the fields of a successful transaction
// initialization that the workflow needs.
type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type initializeRequest struct {
	Email       string `json:"email"`
	Amount      uint32 `json:"amount"` // minor units (kobo/cents)
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url"`
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializePayment creates a hosted payment session for the given
// email/amount/reference and returns the authorization URL the caller
// is redirected to.  Amounts are already in minor units.
func (c *Client) InitializePayment(ctx context.Context, email string, amountCents uint32, reference, callbackURL string) (string, error) {
	body, err := json.Marshal(initializeRequest{
		Email:       email,
		Amount:      amountCents,
		Reference:   reference,
		CallbackURL: callbackURL,
	})
	if err != nil {
		return "", err
	}
	var res InitializeResult
	if err := c.post(ctx, "/transaction/initialize", body, &res); err != nil {
		return "", err
	}
	return res.AuthorizationURL, nil
}

// VerifyResult is the subset of a transaction verification response the
// reconciliation sweep cares about.
type VerifyResult struct {
	Reference string `json:"reference"`
	Status    string `json:"status"` // "success", "failed", "abandoned"
	Amount    uint32 `json:"amount"`
}

// VerifyTransaction fetches the gateway-side state of a transaction by
// reference.  It backs the manual verify endpoint for payments whose
// webhook never arrived.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK || !env.Status {
		return nil, fmt.Errorf("paystack verify failed: %s", env.Message)
	}
	var res VerifyResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK || !env.Status {
		return fmt.Errorf("paystack request failed: %s", env.Message)
	}
	return json.Unmarshal(env.Data, out)
}
