package models

import "testing"

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusPaid, StatusFulfilled, StatusShipped, StatusDelivered, StatusCanceled} {
		if !ValidStatus(s) {
			t.Errorf("%s should be valid", s)
		}
	}
	for _, s := range []string{"", "pending", "PAID", "refunded"} {
		if ValidStatus(s) {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to string }{
		{StatusPaid, StatusFulfilled},
		{StatusPaid, StatusCanceled},
		{StatusFulfilled, StatusShipped},
		{StatusFulfilled, StatusCanceled},
		{StatusShipped, StatusDelivered},
		{StatusShipped, StatusCanceled},
	}
	for _, c := range allowed {
		if !CanTransition(c.from, c.to) {
			t.Errorf("%s -> %s should be allowed", c.from, c.to)
		}
	}

	denied := []struct{ from, to string }{
		{StatusPaid, StatusShipped},
		{StatusPaid, StatusDelivered},
		{StatusFulfilled, StatusDelivered},
		{StatusShipped, StatusFulfilled},
		{StatusDelivered, StatusCanceled}, // delivered is terminal
		{StatusDelivered, StatusPaid},
		{StatusCanceled, StatusPaid},
		{StatusCanceled, StatusCanceled},
		{StatusPaid, StatusPaid},
	}
	for _, c := range denied {
		if CanTransition(c.from, c.to) {
			t.Errorf("%s -> %s should be rejected", c.from, c.to)
		}
	}
}
