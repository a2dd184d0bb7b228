package checkout

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"net/http"
	"time"

	"butikk/models"
	"butikk/payments"
	"butikk/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CartSource loads a user's stored cart lines. The cart handler satisfies it.
type CartSource interface {
	Items(ctx context.Context, userID string) ([]models.CartItem, error)
}

// Handler opens hosted checkout sessions from either the stored cart
// (logged-in users) or an explicit items payload (guests).
type Handler struct {
	Cart     CartSource
	Products *mongo.Collection
	Pay      *payments.Client
	BaseURL  string
	Currency string
}

type requestItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CreateSession builds provider line items and returns the hosted checkout
// URL the storefront redirects to.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)

	var payload struct {
		Email string        `json:"email,omitempty"`
		Items []requestItem `json:"items,omitempty"`
	}
	if r.Body != nil {
		// body is optional for logged-in users; decode errors on an empty
		// body are not fatal
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}

	wanted := payload.Items
	if userID != "" && len(wanted) == 0 {
		stored, err := h.cartItems(ctx, userID)
		if err != nil {
			log.Println("CreateSession cart load error:", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Could not load cart")
			return
		}
		wanted = stored
	}
	if len(wanted) == 0 {
		http.Error(w, "Nothing to check out", http.StatusBadRequest)
		return
	}

	lineItems, err := h.buildLineItems(ctx, wanted)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	params := payments.SessionParams{
		LineItems:         lineItems,
		SuccessURL:        h.BaseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:         h.BaseURL + "/cart",
		ClientReferenceID: userID,
		CustomerEmail:     payload.Email,
	}
	if userID != "" {
		params.Metadata = map[string]string{"userId": userID}
	}

	session, err := h.Pay.CreateCheckoutSession(ctx, params)
	if err != nil {
		log.Println("CreateSession provider error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create checkout session")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"sessionId": session.ID,
		"url":       session.URL,
	})
}

func (h *Handler) cartItems(ctx context.Context, userID string) ([]requestItem, error) {
	stored, err := h.Cart.Items(ctx, userID)
	if err != nil {
		return nil, err
	}
	items := make([]requestItem, 0, len(stored))
	for _, it := range stored {
		items = append(items, requestItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return items, nil
}

// buildLineItems resolves requested items against the catalog. Products with
// a provisioned provider price use it directly; the rest fall back to ad hoc
// pricing with the catalog id carried as metadata so reconciliation can
// resolve the reference.
func (h *Handler) buildLineItems(ctx context.Context, wanted []requestItem) ([]payments.SessionLineItem, error) {
	lineItems := make([]payments.SessionLineItem, 0, len(wanted))
	for _, item := range wanted {
		if item.ProductID == "" || item.Quantity < 1 {
			return nil, errInvalidItem
		}

		var product models.Product
		err := h.Products.FindOne(ctx, bson.M{"productId": item.ProductID}).Decode(&product)
		if err != nil {
			return nil, errUnknownProduct
		}
		if !product.Available || product.Stock < item.Quantity {
			return nil, errOutOfStock
		}

		li := payments.SessionLineItem{Quantity: item.Quantity}
		if product.PayPriceID != "" {
			li.PriceID = product.PayPriceID
		} else {
			li.Name = product.TitleFor(models.DefaultLocale)
			li.UnitAmount = MinorUnits(product.Price)
			li.Currency = h.Currency
			li.ProductID = product.ProductID
		}
		lineItems = append(lineItems, li)
	}
	return lineItems, nil
}

// MinorUnits converts a major-unit price to the provider's minor unit.
func MinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}

var (
	errInvalidItem    = validationError("Each item needs a productId and a positive quantity")
	errUnknownProduct = validationError("Unknown product in cart")
	errOutOfStock     = validationError("Not enough stock for a requested item")
)

type validationError string

func (e validationError) Error() string { return string(e) }
