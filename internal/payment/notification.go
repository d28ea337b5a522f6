// Package payment turns gateway notifications into payment signals for the
// booking engine.
package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/app"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Webhook-Signature"

// DeliveryHeader optionally identifies a webhook delivery for dedupe.
const DeliveryHeader = "X-Webhook-Id"

// Notification is the webhook body. Gateways disagree on the status field
// name, so both are accepted.
type Notification struct {
	ID        string         `json:"id"`
	Reference string         `json:"reference"`
	Status    string         `json:"status"`
	Outcome   string         `json:"outcome"`
	Provider  string         `json:"provider"`
	Meta      map[string]any `json:"meta"`
}

// ParseOutcome maps gateway vocabulary onto the three outcomes. ok is false
// for statuses that are not final, such as "pending".
func ParseOutcome(status string) (domain.PaymentOutcome, bool, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "succeeded", "success", "successful", "paid", "completed":
		return domain.PaymentSucceeded, true, nil
	case "failed", "failure", "declined", "reversed":
		return domain.PaymentFailed, true, nil
	case "cancelled", "canceled", "abandoned":
		return domain.PaymentCancelled, true, nil
	case "pending", "ongoing", "processing", "queued":
		return "", false, nil
	default:
		return "", false, domain.ErrInvalidOutcome
	}
}

// ParseNotification decodes a webhook body. A non-final status yields
// ok=false and no signal.
func ParseNotification(body []byte) (Notification, app.PaymentSignal, bool, error) {
	var n Notification
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return Notification{}, app.PaymentSignal{}, false, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(n.Reference) == "" {
		return n, app.PaymentSignal{}, false, domain.ErrInvalidReference
	}
	status := n.Outcome
	if status == "" {
		status = n.Status
	}
	outcome, ok, err := ParseOutcome(status)
	if err != nil || !ok {
		return n, app.PaymentSignal{}, false, err
	}
	return n, app.PaymentSignal{
		Reference: strings.TrimSpace(n.Reference),
		Outcome:   outcome,
		Provider:  n.Provider,
		Meta:      n.Meta,
	}, true, nil
}

// Sign returns the hex signature a sender would put in SignatureHeader.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the header against the body in constant time.
func VerifySignature(secret, body []byte, header string) error {
	if len(secret) == 0 {
		return domain.ErrInvalidSignature
	}
	got, err := hex.DecodeString(strings.TrimSpace(strings.TrimPrefix(header, "sha256=")))
	if err != nil || len(got) == 0 {
		return domain.ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return domain.ErrInvalidSignature
	}
	return nil
}
