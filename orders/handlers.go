package orders

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"butikk/models"
	"butikk/payments"
	"butikk/rdx"
	"butikk/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const maxWebhookBody = 1 << 20

// Handler owns the order HTTP surface: the provider webhook, the client
// ensure fallback, and order tracking.
type Handler struct {
	Reconciler    *Reconciler
	Orders        *mongo.Collection
	UserOrders    *mongo.Collection
	Cache         *rdx.Cache
	WebhookSecret string
	ReceiptSecret []byte
	Live          StatusBroadcaster
}

// StatusBroadcaster pushes order status changes to live clients.
type StatusBroadcaster interface {
	OrderStatusChanged(orderID, status string)
}

// Webhook handles provider notifications. The body is read raw because the
// signature covers the exact bytes on the wire.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "Unable to read payload", http.StatusBadRequest)
		return
	}

	event, err := payments.ConstructEvent(body, r.Header.Get(payments.SignatureHeader), h.WebhookSecret)
	if err != nil {
		log.Printf("Webhook: signature rejected: %v", err)
		http.Error(w, "Invalid signature", http.StatusBadRequest)
		return
	}

	if event.Type != payments.EventCheckoutCompleted {
		// Not ours to process; acknowledge so the provider stops retrying.
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"received": true})
		return
	}

	var object struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(event.Data.Object, &object); err != nil || object.ID == "" {
		http.Error(w, "Malformed event object", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 25*time.Second)
	defer cancel()

	// Short lock so concurrent deliveries of the same session queue up on
	// the provider's retry schedule instead of racing. Redis being down
	// falls through to the unique index.
	if h.Cache != nil {
		ok, err := h.Cache.AcquireLock(ctx, "session:"+object.ID, 30*time.Second)
		if err == nil && !ok {
			http.Error(w, "Session busy", http.StatusServiceUnavailable)
			return
		}
		if err == nil {
			defer h.Cache.ReleaseLock(ctx, "session:"+object.ID)
		}
	}

	if _, err := h.Reconciler.HandleSession(ctx, object.ID); err != nil && !errors.Is(err, ErrSessionNotPaid) {
		log.Printf("Webhook: reconciliation for %s failed: %v", object.ID, err)
		http.Error(w, "Reconciliation failed", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"received": true})
}

// EnsureOrder is the client-side fallback: after returning from hosted
// checkout the storefront posts the session id here in case the webhook has
// not landed yet. Safe to call any number of times.
func (h *Handler) EnsureOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var payload struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.SessionID == "" {
		http.Error(w, "sessionId is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 25*time.Second)
	defer cancel()

	order, err := h.Reconciler.HandleSession(ctx, payload.SessionID)
	if errors.Is(err, ErrSessionNotPaid) {
		http.Error(w, "Payment not completed", http.StatusConflict)
		return
	}
	if err != nil {
		log.Printf("EnsureOrder: %v", err)
		http.Error(w, "Could not verify order", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, order)
}

// ListMine returns the caller's orders, newest first.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	skip, limit := utils.ParsePagination(r, 20, 50)
	opts := options.Find().
		SetSort(bson.M{"createdAt": -1}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := h.UserOrders.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		log.Println("ListMine Find error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not retrieve orders")
		return
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		log.Println("ListMine decode error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error reading orders")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"orders": orders, "count": len(orders)})
}

// GetOrder returns one order to its owner or an admin.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	order, ok := h.loadAuthorized(ctx, w, r, ps.ByName("orderid"))
	if !ok {
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, order)
}

// loadAuthorized fetches an order and enforces owner-or-admin access.
func (h *Handler) loadAuthorized(ctx context.Context, w http.ResponseWriter, r *http.Request, orderID string) (*models.Order, bool) {
	var order models.Order
	err := h.Orders.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		http.Error(w, "Order not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		log.Println("GetOrder error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not load order")
		return nil, false
	}

	userID := utils.GetUserIDFromRequest(r)
	if order.UserID != "" && order.UserID == userID {
		return &order, true
	}
	if isAdminRequest(r) {
		return &order, true
	}
	http.Error(w, "Forbidden", http.StatusForbidden)
	return nil, false
}
