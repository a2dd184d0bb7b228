package orders

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"butikk/payments"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func webhookHandler(store *fakeOrders) *Handler {
	sessions := &fakeSessions{sessions: map[string]*payments.CheckoutSession{"cs_1": paidSession("cs_1")}}
	inv := &fakeInventory{stock: map[string]int{"p-1": 5}}
	rc, _, _ := newReconciler(sessions, inv, store)
	return &Handler{Reconciler: rc, WebhookSecret: "whsec_test"}
}

func signedRequest(t *testing.T, payload string) *http.Request {
	t.Helper()
	r := httptest.NewRequest("POST", "/api/payments/webhook", bytes.NewReader([]byte(payload)))
	r.Header.Set(payments.SignatureHeader, payments.SignPayload(time.Now(), []byte(payload), "whsec_test"))
	return r
}

func TestWebhookCreatesOrder(t *testing.T) {
	store := newFakeOrders()
	h := webhookHandler(store)

	payload := `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`
	w := httptest.NewRecorder()
	h.Webhook(w, signedRequest(t, payload), nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "received")
	assert.NotNil(t, store.bySession["cs_1"])
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	store := newFakeOrders()
	h := webhookHandler(store)

	payload := `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`
	r := httptest.NewRequest("POST", "/api/payments/webhook", strings.NewReader(payload))
	r.Header.Set(payments.SignatureHeader, "t=12345,v1=deadbeef")

	w := httptest.NewRecorder()
	h.Webhook(w, r, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.bySession, "unverified payloads must never reach reconciliation")
}

func TestWebhookAcksForeignEventTypes(t *testing.T) {
	store := newFakeOrders()
	h := webhookHandler(store)

	payload := `{"id":"evt_2","type":"invoice.created","data":{"object":{"id":"in_1"}}}`
	w := httptest.NewRecorder()
	h.Webhook(w, signedRequest(t, payload), nil)

	assert.Equal(t, http.StatusOK, w.Code, "unknown event types are acknowledged, not retried")
	assert.Empty(t, store.bySession)
}

func TestWebhookRejectsMalformedObject(t *testing.T) {
	store := newFakeOrders()
	h := webhookHandler(store)

	payload := `{"id":"evt_3","type":"checkout.session.completed","data":{"object":{}}}`
	w := httptest.NewRecorder()
	h.Webhook(w, signedRequest(t, payload), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnsureOrderRequiresSessionID(t *testing.T) {
	h := webhookHandler(newFakeOrders())

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/orders/ensure", strings.NewReader(`{}`))
	h.EnsureOrder(w, r, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnsureOrderUnpaidConflict(t *testing.T) {
	store := newFakeOrders()
	s := paidSession("cs_2")
	s.PaymentStatus = "unpaid"
	sessions := &fakeSessions{sessions: map[string]*payments.CheckoutSession{"cs_2": s}}
	rc, _, _ := newReconciler(sessions, &fakeInventory{stock: map[string]int{}}, store)
	h := &Handler{Reconciler: rc, WebhookSecret: "whsec_test"}

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/orders/ensure", strings.NewReader(`{"sessionId":"cs_2"}`))
	h.EnsureOrder(w, r, nil)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestEnsureOrderIdempotent(t *testing.T) {
	store := newFakeOrders()
	h := webhookHandler(store)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("POST", "/api/orders/ensure", strings.NewReader(`{"sessionId":"cs_1"}`))
		h.EnsureOrder(w, r, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.Len(t, store.bySession, 1)
}
