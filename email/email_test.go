package email

import (
	"strings"
	"testing"

	"butikk/config"
	"butikk/models"
)

type captureSender struct {
	to      string
	subject string
	body    string
	calls   int
}

func (c *captureSender) Send(to, subject, body string) error {
	c.to, c.subject, c.body = to, subject, body
	c.calls++
	return nil
}

func TestNewFallsBackToLogSender(t *testing.T) {
	s := New(config.SMTP{})
	if _, ok := s.(logSender); !ok {
		t.Fatalf("empty host should yield the log sender, got %T", s)
	}
	if err := s.Send("kari@example.com", "test", "body"); err != nil {
		t.Fatalf("log sender must never fail: %v", err)
	}
}

func TestOrderConfirmation(t *testing.T) {
	capture := &captureSender{}
	m := &Mailer{Sender: capture}

	order := &models.Order{
		OrderID:  "cs_1",
		Email:    "kari@example.com",
		Currency: "nok",
		Total:    29800,
		Items: []models.OrderItem{
			{Title: "Nordlys mug", Quantity: 2, UnitAmount: 14900, Currency: "nok"},
		},
		Shipping: &models.ShippingInfo{
			Name: "Kari Nordmann", Line1: "Storgata 1",
			PostalCode: "0155", City: "Oslo", Country: "NO",
		},
	}
	if err := m.OrderConfirmation(order); err != nil {
		t.Fatal(err)
	}

	if capture.to != "kari@example.com" {
		t.Errorf("to = %q", capture.to)
	}
	if !strings.Contains(capture.subject, "cs_1") {
		t.Errorf("subject should carry the order id, got %q", capture.subject)
	}
	for _, want := range []string{"Nordlys mug", "NOK 298.00", "Kari Nordmann", "Oslo"} {
		if !strings.Contains(capture.body, want) {
			t.Errorf("body missing %q:\n%s", want, capture.body)
		}
	}
}

func TestOrderConfirmationSkipsWithoutEmail(t *testing.T) {
	capture := &captureSender{}
	m := &Mailer{Sender: capture}

	if err := m.OrderConfirmation(&models.Order{OrderID: "cs_2"}); err != nil {
		t.Fatal(err)
	}
	if capture.calls != 0 {
		t.Error("no address means nothing to send")
	}
}
