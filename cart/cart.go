package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"butikk/models"
	"butikk/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Handler serves the authenticated cart endpoints. Items are keyed per user
// by product id and carry a denormalized display snapshot.
type Handler struct {
	Carts    *mongo.Collection
	Products *mongo.Collection
}

// GetCart returns all cart items for the user.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	cursor, err := h.Carts.Find(ctx, bson.M{"userId": userID}, options.Find().SetSort(bson.M{"addedAt": 1}))
	if err != nil {
		log.Println("GetCart Find error:", err)
		http.Error(w, "Could not retrieve cart", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	items := []models.CartItem{}
	if err := cursor.All(ctx, &items); err != nil {
		log.Println("GetCart decode error:", err)
		http.Error(w, "Error reading cart data", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, items)
}

// AddToCart increments quantity if the item exists, or inserts a new item
// with a snapshot taken from the product document.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payload struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if payload.ProductID == "" || payload.Quantity < 1 {
		http.Error(w, "Missing or invalid fields", http.StatusBadRequest)
		return
	}

	var product models.Product
	err := h.Products.FindOne(ctx, bson.M{"productId": payload.ProductID}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Println("AddToCart product lookup error:", err)
		http.Error(w, "Could not look up product", http.StatusInternalServerError)
		return
	}
	if !product.Available {
		http.Error(w, "Product is out of stock", http.StatusConflict)
		return
	}

	thumb := ""
	if len(product.Images) > 0 {
		thumb = product.Images[0]
	}
	filter := bson.M{"userId": userID, "productId": payload.ProductID}
	update := bson.M{
		"$inc": bson.M{"quantity": payload.Quantity},
		"$setOnInsert": bson.M{
			"title":     product.TitleFor(models.DefaultLocale),
			"price":     product.Price,
			"thumbnail": thumb,
			"addedAt":   time.Now(),
		},
	}
	if _, err := h.Carts.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		log.Println("AddToCart UpdateOne error:", err)
		http.Error(w, "Failed to add to cart", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

// UpdateItem sets the quantity of one cart line.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Quantity < 1 {
		http.Error(w, "Quantity must be at least 1", http.StatusBadRequest)
		return
	}

	res, err := h.Carts.UpdateOne(ctx,
		bson.M{"userId": userID, "productId": ps.ByName("productid")},
		bson.M{"$set": bson.M{"quantity": payload.Quantity}})
	if err != nil {
		log.Println("UpdateItem error:", err)
		http.Error(w, "Failed to update cart", http.StatusInternalServerError)
		return
	}
	if res.MatchedCount == 0 {
		http.Error(w, "Item not in cart", http.StatusNotFound)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// RemoveItem deletes one cart line.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if _, err := h.Carts.DeleteOne(ctx, bson.M{"userId": userID, "productId": ps.ByName("productid")}); err != nil {
		log.Println("RemoveItem error:", err)
		http.Error(w, "Failed to remove item", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// ClearCart removes every item for the user.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if _, err := h.Carts.DeleteMany(ctx, bson.M{"userId": userID}); err != nil {
		log.Println("ClearCart error:", err)
		http.Error(w, "Failed to clear cart", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// Items loads the cart lines for checkout.
func (h *Handler) Items(ctx context.Context, userID string) ([]models.CartItem, error) {
	cursor, err := h.Carts.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []models.CartItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}
