package orders

import (
	"context"
	"errors"
	"sync"
	"testing"

	"butikk/models"
	"butikk/payments"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- in-memory fakes ---

type fakeSessions struct {
	sessions map[string]*payments.CheckoutSession
	err      error
}

func (f *fakeSessions) GetCheckoutSession(_ context.Context, id string) (*payments.CheckoutSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, errors.New("no such session")
	}
	return s, nil
}

type fakeInventory struct {
	mu     sync.Mutex
	stock  map[string]int
	calls  int
	failOn string
}

func (f *fakeInventory) DecrementStock(_ context.Context, productID string, qty int) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if productID == f.failOn {
		return 0, false, errors.New("db unavailable")
	}
	current, ok := f.stock[productID]
	if !ok {
		return 0, false, ErrProductGone
	}
	current -= qty
	if current < 0 {
		current = 0
	}
	f.stock[productID] = current
	return current, current > 0, nil
}

type fakeOrders struct {
	mu        sync.Mutex
	bySession map[string]*models.Order
	userCopy  map[string]*models.Order
	insertErr error
	copyErr   error
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{
		bySession: map[string]*models.Order{},
		userCopy:  map[string]*models.Order{},
	}
}

func (f *fakeOrders) FindBySession(_ context.Context, sessionID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bySession[sessionID], nil
}

func (f *fakeOrders) Insert(_ context.Context, o *models.Order) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return false, f.insertErr
	}
	if _, exists := f.bySession[o.SessionID]; exists {
		return false, nil
	}
	f.bySession[o.SessionID] = o
	return true, nil
}

func (f *fakeOrders) UpsertUserCopy(_ context.Context, o *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.copyErr != nil {
		return f.copyErr
	}
	f.userCopy[o.OrderID] = o
	return nil
}

type fakeCleaner struct {
	name    string
	cleared []string
	err     error
}

func (f *fakeCleaner) Name() string { return f.name }

func (f *fakeCleaner) Clear(_ context.Context, userID string) error {
	f.cleared = append(f.cleared, userID)
	return f.err
}

type fakeMailer struct {
	sent []string
}

func (f *fakeMailer) OrderConfirmation(o *models.Order) error {
	f.sent = append(f.sent, o.OrderID)
	return nil
}

// --- fixtures ---

func paidSession(id string) *payments.CheckoutSession {
	s := &payments.CheckoutSession{
		ID:                id,
		PaymentStatus:     "paid",
		AmountTotal:       29800,
		Currency:          "nok",
		ClientReferenceID: "user-1",
		CustomerEmail:     "kari@example.com",
	}
	s.LineItems.Data = []payments.LineItem{
		{
			Description: "Nordlys mug",
			Quantity:    2,
			AmountTotal: 29800,
			Currency:    "nok",
			Price: payments.PriceRef{
				UnitAmount: 14900,
				Metadata:   map[string]string{"productId": "p-1"},
			},
		},
	}
	return s
}

func newReconciler(sessions *fakeSessions, inv *fakeInventory, store *fakeOrders) (*Reconciler, *fakeCleaner, *fakeMailer) {
	cleaner := &fakeCleaner{name: "carts"}
	mailer := &fakeMailer{}
	rc := &Reconciler{
		Sessions:  sessions,
		Inventory: inv,
		Orders:    store,
		Cleaners:  []CartCleaner{cleaner},
		Mail:      mailer,
	}
	return rc, cleaner, mailer
}

// --- tests ---

func TestHandleSessionCreatesOrder(t *testing.T) {
	sessions := &fakeSessions{sessions: map[string]*payments.CheckoutSession{"cs_1": paidSession("cs_1")}}
	inv := &fakeInventory{stock: map[string]int{"p-1": 5}}
	store := newFakeOrders()
	rc, cleaner, mailer := newReconciler(sessions, inv, store)

	order, err := rc.HandleSession(context.Background(), "cs_1")
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, "cs_1", order.SessionID)
	assert.Equal(t, models.StatusPaid, order.Status)
	assert.Equal(t, "user-1", order.UserID)
	assert.Equal(t, int64(29800), order.Total)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "p-1", order.Items[0].ProductID)
	assert.Equal(t, int64(14900), order.Items[0].UnitAmount)

	assert.Equal(t, 3, inv.stock["p-1"], "stock should drop by the purchased quantity")
	assert.Equal(t, []string{"user-1"}, cleaner.cleared)
	assert.Equal(t, []string{"cs_1"}, mailer.sent)
	assert.NotNil(t, store.userCopy["cs_1"], "logged-in purchase should mirror under the user")
}

func TestHandleSessionIdempotent(t *testing.T) {
	sessions := &fakeSessions{sessions: map[string]*payments.CheckoutSession{"cs_1": paidSession("cs_1")}}
	inv := &fakeInventory{stock: map[string]int{"p-1": 5}}
	store := newFakeOrders()
	rc, _, mailer := newReconciler(sessions, inv, store)

	first, err := rc.HandleSession(context.Background(), "cs_1")
	require.NoError(t, err)
	second, err := rc.HandleSession(context.Background(), "cs_1")
	require.NoError(t, err)

	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, 3, inv.stock["p-1"], "second delivery must not decrement again")
	assert.Equal(t, 1, inv.calls, "inventory must be touched exactly once")
	assert.Len(t, mailer.sent, 1, "confirmation must be sent exactly once")
	assert.Len(t, store.bySession, 1)
}

func TestHandleSessionUnpaid(t *testing.T) {
	s := paidSession("cs_1")
	s.PaymentStatus = "unpaid"
	sessions := &fakeSessions{sessions: map[string]*payments.CheckoutSession{"cs_1": s}}
	store := newFakeOrders()
	rc, _, _ := newReconciler(sessions, &fakeInventory{stock: map[string]int{}}, store)

	_, err := rc.HandleSession(context.Background(), "cs_1")
	require.ErrorIs(t, err, ErrSessionNotPaid)
	assert.Empty(t, store.bySession, "unpaid session must not create an order")
}

func TestHandleSessionStockFloorsAtZero(t *testing.T) {
	sessions := &fakeSessions{sessions: map[string]*payments.CheckoutSession{"cs_1": paidSession("cs_1")}}
	inv := &fakeInventory{stock: map[string]int{"p-1": 1}}
	store := newFakeOrders()
	rc, _, _ := newReconciler(sessions, inv, store)

	order, err := rc.HandleSession(context.Background(), "cs_1")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, 0, inv.stock["p-1"], "oversell decrements to zero, never below")
}

func TestHandleSessionProductGone(t *testing.T) {
	sessions := &fakeSessions{sessions: map[string]*payments.CheckoutSession{"cs_1": paidSession("cs_1")}}
	inv := &fakeInventory{stock: map[string]int{}} // p-1 deleted
	store := newFakeOrders()
	rc, _, _ := newReconciler(sessions, inv, store)

	order, err := rc.HandleSession(context.Background(), "cs_1")
	require.NoError(t, err, "a deleted product must not fail the delivery")
	require.Len(t, order.Items, 1, "the line item is still recorded")
	assert.Len(t, store.bySession, 1)
}

func TestHandleSessionInventoryFailure(t *testing.T) {
	sessions := &fakeSessions{sessions: map[string]*payments.CheckoutSession{"cs_1": paidSession("cs_1")}}
	inv := &fakeInventory{stock: map[string]int{"p-1": 5}, failOn: "p-1"}
	store := newFakeOrders()
	rc, _, _ := newReconciler(sessions, inv, store)

	_, err := rc.HandleSession(context.Background(), "cs_1")
	require.Error(t, err)
	assert.Empty(t, store.bySession, "order must not be written when inventory fails")
}

func TestHandleSessionInsertFailure(t *testing.T) {
	sessions := &fakeSessions{sessions: map[string]*payments.CheckoutSession{"cs_1": paidSession("cs_1")}}
	inv := &fakeInventory{stock: map[string]int{"p-1": 5}}
	store := newFakeOrders()
	store.insertErr = errors.New("write concern failed")
	rc, _, mailer := newReconciler(sessions, inv, store)

	_, err := rc.HandleSession(context.Background(), "cs_1")
	require.Error(t, err)
	assert.Empty(t, mailer.sent, "side effects must not run when the insert fails")
}

func TestHandleSessionGuestCheckout(t *testing.T) {
	s := paidSession("cs_1")
	s.ClientReferenceID = ""
	sessions := &fakeSessions{sessions: map[string]*payments.CheckoutSession{"cs_1": s}}
	inv := &fakeInventory{stock: map[string]int{"p-1": 5}}
	store := newFakeOrders()
	rc, cleaner, mailer := newReconciler(sessions, inv, store)

	order, err := rc.HandleSession(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.Empty(t, order.UserID)
	assert.Empty(t, store.userCopy, "guest order has no per-user mirror")
	assert.Empty(t, cleaner.cleared, "no cart to clear for a guest")
	assert.Equal(t, []string{"cs_1"}, mailer.sent, "guests still get the confirmation mail")
}

func TestHandleSessionCleanerFailureSwallowed(t *testing.T) {
	sessions := &fakeSessions{sessions: map[string]*payments.CheckoutSession{"cs_1": paidSession("cs_1")}}
	inv := &fakeInventory{stock: map[string]int{"p-1": 5}}
	store := newFakeOrders()
	rc, cleaner, _ := newReconciler(sessions, inv, store)
	cleaner.err = errors.New("redis down")

	order, err := rc.HandleSession(context.Background(), "cs_1")
	require.NoError(t, err, "cart cleanup failure must not fail the order")
	require.NotNil(t, order)
}

func TestHandleSessionUserCopyFailureSwallowed(t *testing.T) {
	sessions := &fakeSessions{sessions: map[string]*payments.CheckoutSession{"cs_1": paidSession("cs_1")}}
	inv := &fakeInventory{stock: map[string]int{"p-1": 5}}
	store := newFakeOrders()
	store.copyErr = errors.New("write failed")
	rc, _, _ := newReconciler(sessions, inv, store)

	_, err := rc.HandleSession(context.Background(), "cs_1")
	require.NoError(t, err, "the user mirror is best-effort")

	// the backfill heals the mirror on the next delivery
	store.copyErr = nil
	_, err = rc.HandleSession(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.NotEmpty(t, store.userCopy)
}

func TestBuildOrderUnitAmountFallback(t *testing.T) {
	s := paidSession("cs_1")
	s.LineItems.Data[0].Price.UnitAmount = 0

	order := buildOrder(s)
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(14900), order.Items[0].UnitAmount,
		"unit amount derives from line total when the price carries none")
}

func TestBuildOrderUserIDFromMetadata(t *testing.T) {
	s := paidSession("cs_1")
	s.ClientReferenceID = ""
	s.Metadata = map[string]string{"userId": "user-2"}

	order := buildOrder(s)
	assert.Equal(t, "user-2", order.UserID)
}

func TestResolveProductRefFallsBackToProduct(t *testing.T) {
	li := payments.LineItem{}
	li.Price.Product.Metadata = map[string]string{"productId": "p-7"}
	assert.Equal(t, "p-7", resolveProductRef(li))

	li.Price.Metadata = map[string]string{"productId": "p-8"}
	assert.Equal(t, "p-8", resolveProductRef(li), "price metadata wins")
}
