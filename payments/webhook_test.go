package payments

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

const testSecret = "whsec_test"

var completedPayload = []byte(`{
	"id": "evt_1",
	"type": "checkout.session.completed",
	"data": {"object": {"id": "cs_123", "payment_status": "paid"}}
}`)

func TestConstructEventValidSignature(t *testing.T) {
	header := SignPayload(time.Now(), completedPayload, testSecret)

	event, err := ConstructEvent(completedPayload, header, testSecret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Type != EventCheckoutCompleted {
		t.Errorf("type = %q", event.Type)
	}
	if event.ID != "evt_1" {
		t.Errorf("id = %q", event.ID)
	}

	var session struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		t.Fatalf("decode object: %v", err)
	}
	if session.ID != "cs_123" {
		t.Errorf("session id = %q", session.ID)
	}
}

func TestConstructEventWrongSecret(t *testing.T) {
	header := SignPayload(time.Now(), completedPayload, "whsec_other")
	_, err := ConstructEvent(completedPayload, header, testSecret)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestConstructEventTamperedPayload(t *testing.T) {
	header := SignPayload(time.Now(), completedPayload, testSecret)
	tampered := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_999"}}}`)
	_, err := ConstructEvent(tampered, header, testSecret)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestConstructEventStaleTimestamp(t *testing.T) {
	header := SignPayload(time.Now().Add(-10*time.Minute), completedPayload, testSecret)
	_, err := ConstructEvent(completedPayload, header, testSecret)
	if !errors.Is(err, ErrSignatureExpired) {
		t.Fatalf("expected ErrSignatureExpired, got %v", err)
	}
}

func TestConstructEventMalformedHeader(t *testing.T) {
	for _, header := range []string{"", "garbage", "t=abc,v1=deadbeef", "v1=deadbeef", "t=12345"} {
		_, err := ConstructEvent(completedPayload, header, testSecret)
		if !errors.Is(err, ErrInvalidSignature) {
			t.Errorf("header %q: expected ErrInvalidSignature, got %v", header, err)
		}
	}
}

func TestConstructEventSecondSignatureAccepted(t *testing.T) {
	now := time.Now()
	good := ComputeSignature(now, completedPayload, testSecret)
	header := SignPayload(now, completedPayload, "whsec_rotated-away") + ",v1=" + good

	if _, err := ConstructEvent(completedPayload, header, testSecret); err != nil {
		t.Fatalf("any matching v1 signature should verify, got %v", err)
	}
}
