package utils

// NewPaymentReference returns an opaque unique payment reference of the
// form RSVP_<12 hex chars>.  The reference correlates a payment session
// with its gateway-side record and the webhook events it emits.
func NewPaymentReference() (string, error) {
    hexPart, err := randomHex(6) // 6 bytes -> 12 hex chars
    if err != nil {
        return "", err
    }
    return "RSVP_" + hexPart, nil
}
