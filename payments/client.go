package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"butikk/config"
)

// Client talks to the hosted-checkout provider's REST API. All mutating
// calls are form-encoded with bearer auth, the way the provider expects.
type Client struct {
	APIBase       string
	SecretKey     string
	WebhookSecret string
	HTTPClient    *http.Client
}

func NewClient(cfg config.Payments) *Client {
	return &Client{
		APIBase:       strings.TrimRight(cfg.APIBase, "/"),
		SecretKey:     cfg.SecretKey,
		WebhookSecret: cfg.WebhookSecret,
		HTTPClient:    &http.Client{Timeout: 15 * time.Second},
	}
}

// apiError is the provider's error envelope.
type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.APIBase+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("payments: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("payments: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("payments: %s %s: %s", method, path, apiErr.Error.Message)
		}
		return fmt.Errorf("payments: %s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// ProductRef is the provider-side product object, expanded inside session
// line items.
type ProductRef struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

// PriceRef is the provider-side price object with its product expanded.
type PriceRef struct {
	ID         string            `json:"id"`
	UnitAmount int64             `json:"unit_amount"`
	Currency   string            `json:"currency"`
	Metadata   map[string]string `json:"metadata"`
	Product    ProductRef        `json:"product"`
}

// LineItem is one purchased line of a checkout session.
type LineItem struct {
	Description string   `json:"description"`
	Quantity    int      `json:"quantity"`
	AmountTotal int64    `json:"amount_total"`
	Currency    string   `json:"currency"`
	Price       PriceRef `json:"price"`
}

// Address mirrors the provider's address shape.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

// CheckoutSession is the full session detail, fetched with line items
// expanded. The webhook payload alone never carries enough to build an
// order, so reconciliation always re-fetches this.
type CheckoutSession struct {
	ID                string            `json:"id"`
	URL               string            `json:"url"`
	Status            string            `json:"status"`
	PaymentStatus     string            `json:"payment_status"`
	AmountTotal       int64             `json:"amount_total"`
	Currency          string            `json:"currency"`
	ClientReferenceID string            `json:"client_reference_id"`
	CustomerEmail     string            `json:"customer_email"`
	Metadata          map[string]string `json:"metadata"`

	CustomerDetails struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"customer_details"`

	ShippingDetails *struct {
		Name    string  `json:"name"`
		Address Address `json:"address"`
	} `json:"shipping_details"`

	ShippingCost *struct {
		AmountTotal int64  `json:"amount_total"`
		DisplayName string `json:"display_name"`
	} `json:"shipping_cost"`

	LineItems struct {
		Data []LineItem `json:"data"`
	} `json:"line_items"`
}

// Email returns the buyer email from whichever field the provider filled.
func (s *CheckoutSession) Email() string {
	if s.CustomerDetails.Email != "" {
		return s.CustomerDetails.Email
	}
	return s.CustomerEmail
}

// CreateProduct provisions a provider product and returns its id.
func (c *Client) CreateProduct(ctx context.Context, name, description string, images []string, metadata map[string]string) (string, error) {
	form := url.Values{}
	form.Set("name", name)
	if description != "" {
		form.Set("description", description)
	}
	for i, img := range images {
		form.Set(fmt.Sprintf("images[%d]", i), img)
	}
	addMetadata(form, metadata)

	var created struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/products", form, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// CreatePrice provisions a price for a provider product. unitAmount is in
// the minor currency unit.
func (c *Client) CreatePrice(ctx context.Context, productID string, unitAmount int64, currency string, metadata map[string]string) (string, error) {
	form := url.Values{}
	form.Set("product", productID)
	form.Set("unit_amount", strconv.FormatInt(unitAmount, 10))
	form.Set("currency", currency)
	addMetadata(form, metadata)

	var created struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/prices", form, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// ArchiveProduct deactivates a provider product. Used best-effort when the
// catalog entry is deleted.
func (c *Client) ArchiveProduct(ctx context.Context, productID string) error {
	form := url.Values{}
	form.Set("active", "false")
	return c.do(ctx, http.MethodPost, "/v1/products/"+productID, form, nil)
}

// SessionLineItem describes one line of a session to create. Either PriceID
// or the ad hoc price fields must be set.
type SessionLineItem struct {
	PriceID  string
	Quantity int

	// ad hoc pricing for products without a provisioned provider price
	Name       string
	UnitAmount int64
	Currency   string
	ProductID  string // carried as metadata for reconciliation
}

// SessionParams are the inputs for CreateCheckoutSession.
type SessionParams struct {
	LineItems         []SessionLineItem
	SuccessURL        string
	CancelURL         string
	ClientReferenceID string
	CustomerEmail     string
	Metadata          map[string]string
}

// CreateCheckoutSession opens a hosted checkout session and returns it; the
// caller redirects the buyer to its URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, params SessionParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	if params.ClientReferenceID != "" {
		form.Set("client_reference_id", params.ClientReferenceID)
	}
	if params.CustomerEmail != "" {
		form.Set("customer_email", params.CustomerEmail)
	}
	addMetadata(form, params.Metadata)

	for i, li := range params.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[quantity]", strconv.Itoa(li.Quantity))
		if li.PriceID != "" {
			form.Set(prefix+"[price]", li.PriceID)
			continue
		}
		form.Set(prefix+"[price_data][currency]", li.Currency)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(li.UnitAmount, 10))
		form.Set(prefix+"[price_data][product_data][name]", li.Name)
		if li.ProductID != "" {
			form.Set(prefix+"[price_data][product_data][metadata][productId]", li.ProductID)
		}
	}

	var session CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetCheckoutSession fetches the full session detail with line items and
// their prices/products expanded.
func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	path := "/v1/checkout/sessions/" + url.PathEscape(sessionID) +
		"?expand[]=line_items&expand[]=line_items.data.price.product"
	var session CheckoutSession
	if err := c.do(ctx, http.MethodGet, path, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func addMetadata(form url.Values, metadata map[string]string) {
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}
}
