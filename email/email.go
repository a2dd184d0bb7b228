package email

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"butikk/config"
	"butikk/models"
)

// Sender delivers a plain-text email.
type Sender interface {
	Send(to, subject, body string) error
}

// New returns an SMTP sender, or a log-only sender when no SMTP host is
// configured so local development never needs a mail relay.
func New(cfg config.SMTP) Sender {
	if cfg.Host == "" {
		return logSender{}
	}
	return &smtpSender{
		addr: cfg.Host + ":" + cfg.Port,
		from: cfg.From,
	}
}

type smtpSender struct {
	addr string
	from string
}

func (s *smtpSender) Send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		body,
	}, "\r\n")
	return smtp.SendMail(s.addr, nil, s.from, []string{to}, []byte(msg))
}

type logSender struct{}

func (logSender) Send(to, subject, _ string) error {
	log.Printf("email (not configured): to=%s subject=%q", to, subject)
	return nil
}

// Mailer formats storefront notification emails on top of a Sender.
type Mailer struct {
	Sender Sender
}

// OrderConfirmation sends the post-payment confirmation for an order.
func (m *Mailer) OrderConfirmation(order *models.Order) error {
	if order.Email == "" {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order %s.\n\n", order.OrderID)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "  %d x %s  %s %.2f\n",
			item.Quantity, item.Title,
			strings.ToUpper(item.Currency), float64(item.UnitAmount*int64(item.Quantity))/100)
	}
	fmt.Fprintf(&b, "\nTotal: %s %.2f\n", strings.ToUpper(order.Currency), float64(order.Total)/100)
	if s := order.Shipping; s != nil && s.Name != "" {
		fmt.Fprintf(&b, "\nShipping to:\n%s\n%s\n%s %s\n%s\n",
			s.Name, s.Line1, s.PostalCode, s.City, s.Country)
	}

	subject := "Order confirmation " + order.OrderID
	return m.Sender.Send(order.Email, subject, b.String())
}
