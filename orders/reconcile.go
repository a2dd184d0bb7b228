package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"butikk/models"
	"butikk/payments"
	"butikk/tasks"
)

// ErrSessionNotPaid marks a session whose payment has not completed; callers
// acknowledge it without creating anything.
var ErrSessionNotPaid = errors.New("checkout session not paid")

// SessionSource fetches full checkout session detail from the provider.
type SessionSource interface {
	GetCheckoutSession(ctx context.Context, sessionID string) (*payments.CheckoutSession, error)
}

// InventoryStore decrements a single product's stock atomically, flooring at
// zero, and reports the resulting count and availability. A missing product
// returns ErrProductGone.
type InventoryStore interface {
	DecrementStock(ctx context.Context, productID string, qty int) (stock int, available bool, err error)
}

// ErrProductGone means the referenced product document no longer exists.
var ErrProductGone = errors.New("product document not found")

// OrderStore persists orders. Insert reports created=false when an order for
// the same session already exists instead of failing.
type OrderStore interface {
	FindBySession(ctx context.Context, sessionID string) (*models.Order, error)
	Insert(ctx context.Context, o *models.Order) (created bool, err error)
	UpsertUserCopy(ctx context.Context, o *models.Order) error
}

// CartCleaner clears one legacy cart shape for a user.
type CartCleaner interface {
	Name() string
	Clear(ctx context.Context, userID string) error
}

// Notifier sends the confirmation mail.
type Notifier interface {
	OrderConfirmation(o *models.Order) error
}

// Broadcaster pushes live stock updates to connected clients.
type Broadcaster interface {
	StockChanged(productID string, stock int, available bool)
}

// Reconciler turns a paid checkout session into a durable order exactly once
// per session id, plus best-effort side effects.
type Reconciler struct {
	Sessions  SessionSource
	Inventory InventoryStore
	Orders    OrderStore
	Cleaners  []CartCleaner
	Mail      Notifier
	Live      Broadcaster
}

// HandleSession is the reconciliation entry point, shared by the webhook and
// the client-side ensure fallback. Inventory and order-write failures are
// returned so the caller can fail the acknowledgment and let the provider
// retry; retries are safe because the session id is checked (and uniquely
// indexed) before anything is mutated.
func (rc *Reconciler) HandleSession(ctx context.Context, sessionID string) (*models.Order, error) {
	session, err := rc.Sessions.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch session %s: %w", sessionID, err)
	}
	if session.PaymentStatus != "paid" {
		return nil, ErrSessionNotPaid
	}

	existing, err := rc.Orders.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("lookup order for session %s: %w", sessionID, err)
	}
	if existing != nil {
		// Idempotent success: no inventory mutation. Backfill the per-user
		// copy in case an earlier delivery died between the two writes.
		if existing.UserID != "" {
			if err := rc.Orders.UpsertUserCopy(ctx, existing); err != nil {
				log.Printf("Reconcile: user copy backfill for %s failed: %v", existing.OrderID, err)
			}
		}
		return existing, nil
	}

	order := buildOrder(session)

	for _, item := range order.Items {
		if item.ProductID == "" || item.Quantity <= 0 {
			continue
		}
		stock, available, err := rc.Inventory.DecrementStock(ctx, item.ProductID, item.Quantity)
		if errors.Is(err, ErrProductGone) {
			// The catalog entry was deleted after purchase; nothing to
			// decrement, the order still records the line item.
			log.Printf("Reconcile: product %s gone, stock untouched", item.ProductID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("decrement stock for %s: %w", item.ProductID, err)
		}
		if rc.Live != nil {
			rc.Live.StockChanged(item.ProductID, stock, available)
		}
	}

	created, err := rc.Orders.Insert(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("persist order for session %s: %w", sessionID, err)
	}
	if !created {
		// Lost a race with a concurrent delivery; the winner's order stands.
		winner, err := rc.Orders.FindBySession(ctx, sessionID)
		if err != nil || winner == nil {
			return order, nil
		}
		return winner, nil
	}

	if order.UserID != "" {
		if err := rc.Orders.UpsertUserCopy(ctx, order); err != nil {
			// Healed by the backfill on the idempotent path, so this does
			// not fail the delivery.
			log.Printf("Reconcile: user copy for %s failed: %v", order.OrderID, err)
		}
	}

	rc.runPostCommit(order)
	return order, nil
}

// runPostCommit executes the cleanup and notification tasks. Every failure
// is captured and logged; none affects the reconciliation result.
func (rc *Reconciler) runPostCommit(order *models.Order) {
	var list []tasks.Task

	if order.UserID != "" {
		for _, cleaner := range rc.Cleaners {
			c := cleaner
			list = append(list, tasks.Task{
				Name: "clear-cart/" + c.Name(),
				Run: func(ctx context.Context) error {
					return c.Clear(ctx, order.UserID)
				},
			})
		}
	}
	if rc.Mail != nil && order.Email != "" {
		list = append(list, tasks.Task{
			Name: "confirmation-mail",
			Run: func(ctx context.Context) error {
				return rc.Mail.OrderConfirmation(order)
			},
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	tasks.RunAll(ctx, list)
}

// buildOrder maps a paid session into the order document.
func buildOrder(session *payments.CheckoutSession) *models.Order {
	now := time.Now().UTC()
	order := &models.Order{
		OrderID:       session.ID,
		SessionID:     session.ID,
		UserID:        session.ClientReferenceID,
		Email:         session.Email(),
		Total:         session.AmountTotal,
		Currency:      session.Currency,
		PaymentStatus: session.PaymentStatus,
		Status:        models.StatusPaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if order.UserID == "" {
		order.UserID = session.Metadata["userId"]
	}

	for _, li := range session.LineItems.Data {
		item := models.OrderItem{
			ProductID: resolveProductRef(li),
			Title:     li.Description,
			Quantity:  li.Quantity,
			Currency:  li.Currency,
		}
		if li.Price.UnitAmount > 0 {
			item.UnitAmount = li.Price.UnitAmount
		} else if li.Quantity > 0 {
			item.UnitAmount = li.AmountTotal / int64(li.Quantity)
		}
		order.Items = append(order.Items, item)
	}

	if session.ShippingDetails != nil || session.ShippingCost != nil {
		shipping := &models.ShippingInfo{}
		if sd := session.ShippingDetails; sd != nil {
			shipping.Name = sd.Name
			shipping.Line1 = sd.Address.Line1
			shipping.Line2 = sd.Address.Line2
			shipping.PostalCode = sd.Address.PostalCode
			shipping.City = sd.Address.City
			shipping.Country = sd.Address.Country
		}
		if sc := session.ShippingCost; sc != nil {
			shipping.Method = sc.DisplayName
			shipping.Cost = sc.AmountTotal
		}
		order.Shipping = shipping
	}
	return order
}

// resolveProductRef reads the catalog product id attached to the provider's
// price, falling back to the product object's metadata.
func resolveProductRef(li payments.LineItem) string {
	if id := li.Price.Metadata["productId"]; id != "" {
		return id
	}
	return li.Price.Product.Metadata["productId"]
}
