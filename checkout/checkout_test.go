package checkout

import (
	"context"
	"errors"
	"testing"

	"butikk/models"
)

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		price float64
		want  int64
	}{
		{0, 0},
		{1, 100},
		{149, 14900},
		{19.99, 1999},
		// binary float repr of 0.1+0.2-style values must still round cleanly
		{0.29, 29},
		{1.005, 100}, // 1.005 is stored just under, rounds down
		{2.675, 267},
	}
	for _, c := range cases {
		if got := MinorUnits(c.price); got != c.want {
			t.Errorf("MinorUnits(%v) = %d, want %d", c.price, got, c.want)
		}
	}
}

func TestValidationErrorMessages(t *testing.T) {
	if errInvalidItem.Error() == "" || errOutOfStock.Error() == "" || errUnknownProduct.Error() == "" {
		t.Fatal("validation errors must carry client-facing messages")
	}
}

type stubCart struct {
	items []models.CartItem
	err   error
	user  string
}

func (s *stubCart) Items(_ context.Context, userID string) ([]models.CartItem, error) {
	s.user = userID
	return s.items, s.err
}

func TestCartItemsMapsStoredLines(t *testing.T) {
	src := &stubCart{items: []models.CartItem{
		{ProductID: "p-1", Quantity: 2},
		{ProductID: "p-3", Quantity: 1},
	}}
	h := &Handler{Cart: src}

	items, err := h.cartItems(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("cartItems: %v", err)
	}
	if src.user != "user-1" {
		t.Errorf("looked up cart for %q, want user-1", src.user)
	}
	want := []requestItem{{ProductID: "p-1", Quantity: 2}, {ProductID: "p-3", Quantity: 1}}
	if len(items) != len(want) {
		t.Fatalf("got %d items, want %d", len(items), len(want))
	}
	for i := range want {
		if items[i] != want[i] {
			t.Errorf("item %d = %+v, want %+v", i, items[i], want[i])
		}
	}
}

func TestCartItemsPropagatesLoadError(t *testing.T) {
	h := &Handler{Cart: &stubCart{err: errors.New("find failed")}}
	if _, err := h.cartItems(context.Background(), "user-1"); err == nil {
		t.Fatal("expected cart load error to propagate")
	}
}
