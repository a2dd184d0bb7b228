package models

import "time"

// Fulfillment statuses. Only StatusPaid is ever written by reconciliation;
// the rest are admin-driven.
const (
	StatusPaid      = "paid"
	StatusFulfilled = "fulfilled"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCanceled  = "canceled"
)

// statusFlow lists the admin transitions allowed from each status. Canceled
// is reachable from any non-terminal state.
var statusFlow = map[string][]string{
	StatusPaid:      {StatusFulfilled, StatusCanceled},
	StatusFulfilled: {StatusShipped, StatusCanceled},
	StatusShipped:   {StatusDelivered, StatusCanceled},
	StatusDelivered: {},
	StatusCanceled:  {},
}

// ValidStatus reports whether s is a known fulfillment status.
func ValidStatus(s string) bool {
	_, ok := statusFlow[s]
	return ok
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range statusFlow[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderItem is a line-item snapshot taken at payment time. ProductID is empty
// when the provider line item carried no resolvable product reference; the
// item is still recorded.
type OrderItem struct {
	ProductID  string `json:"productId,omitempty" bson:"productId,omitempty"`
	Title      string `json:"title" bson:"title"`
	Quantity   int    `json:"quantity" bson:"quantity"`
	UnitAmount int64  `json:"unitAmount" bson:"unitAmount"` // minor currency unit
	Currency   string `json:"currency" bson:"currency"`
}

// ShippingInfo is the shipping snapshot captured from the checkout session.
type ShippingInfo struct {
	Name       string `json:"name,omitempty" bson:"name,omitempty"`
	Line1      string `json:"line1,omitempty" bson:"line1,omitempty"`
	Line2      string `json:"line2,omitempty" bson:"line2,omitempty"`
	PostalCode string `json:"postalCode,omitempty" bson:"postalCode,omitempty"`
	City       string `json:"city,omitempty" bson:"city,omitempty"`
	Country    string `json:"country,omitempty" bson:"country,omitempty"`
	Method     string `json:"method,omitempty" bson:"method,omitempty"`
	Cost       int64  `json:"cost" bson:"cost"`
}

// Order is keyed by the checkout session id; a unique index on sessionId
// guarantees at most one order per payment session.
type Order struct {
	OrderID   string `json:"orderId" bson:"orderId"`
	SessionID string `json:"sessionId" bson:"sessionId"`
	// UserID is empty for guest checkouts; guests are reachable by Email only.
	UserID string `json:"userId,omitempty" bson:"userId,omitempty"`
	Email  string `json:"email,omitempty" bson:"email,omitempty"`

	Items         []OrderItem   `json:"items" bson:"items"`
	Total         int64         `json:"total" bson:"total"` // minor currency unit
	Currency      string        `json:"currency" bson:"currency"`
	PaymentStatus string        `json:"paymentStatus" bson:"paymentStatus"`
	Status        string        `json:"status" bson:"status"`
	Shipping      *ShippingInfo `json:"shipping,omitempty" bson:"shipping,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}
