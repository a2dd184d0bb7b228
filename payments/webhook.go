package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries the webhook signature: "t=<unix>,v1=<hex hmac>".
const SignatureHeader = "Checkout-Signature"

// Webhook deliveries older than this are rejected to blunt replay.
const signatureTolerance = 5 * time.Minute

var (
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrSignatureExpired = errors.New("webhook signature timestamp outside tolerance")
)

// Event is the provider's webhook envelope. Data.Object stays raw; each
// event type decodes it into its own shape.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// EventCheckoutCompleted signals a finished hosted checkout.
const EventCheckoutCompleted = "checkout.session.completed"

// ComputeSignature returns the hex HMAC-SHA256 of "<unix>.<payload>".
func ComputeSignature(t time.Time, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", t.Unix())
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignPayload builds a full signature header value. Used by tests and by the
// provider on its side of the wire.
func SignPayload(t time.Time, payload []byte, secret string) string {
	return fmt.Sprintf("t=%d,v1=%s", t.Unix(), ComputeSignature(t, payload, secret))
}

// ConstructEvent verifies the signature header against the exact raw payload
// bytes and parses the event. The body must not have been re-encoded before
// this runs.
func ConstructEvent(payload []byte, header, secret string) (Event, error) {
	var event Event

	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return event, err
	}
	if d := time.Since(timestamp); d > signatureTolerance || d < -signatureTolerance {
		return event, ErrSignatureExpired
	}

	expected := ComputeSignature(timestamp, payload, secret)
	valid := false
	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			valid = true
			break
		}
	}
	if !valid {
		return event, ErrInvalidSignature
	}

	if err := json.Unmarshal(payload, &event); err != nil {
		return event, fmt.Errorf("parse webhook payload: %w", err)
	}
	return event, nil
}

func parseSignatureHeader(header string) (time.Time, []string, error) {
	if header == "" {
		return time.Time{}, nil, ErrInvalidSignature
	}

	var timestamp time.Time
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			unix, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return time.Time{}, nil, ErrInvalidSignature
			}
			timestamp = time.Unix(unix, 0)
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp.IsZero() || len(signatures) == 0 {
		return time.Time{}, nil, ErrInvalidSignature
	}
	return timestamp, signatures, nil
}
