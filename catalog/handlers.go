package catalog

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"butikk/models"
	"butikk/rdx"
	"butikk/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const detailCacheTTL = 2 * time.Minute

// Handler serves the public catalog endpoints.
type Handler struct {
	Lister   *Lister
	Products *mongo.Collection
	Cache    *rdx.Cache
}

// ListProducts is the listing endpoint: filters, search, sort and cursor
// pagination as one page of locale-resolved summaries.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	params := ParseListParams(r)
	page, err := h.Lister.List(ctx, params)
	if err != nil {
		log.Println("ListProducts error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not list products")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, page)
}

// GetProduct returns one product with its title/description resolved for the
// requested locale. Details are cached briefly; stock-changing writes
// invalidate the entry.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	productID := ps.ByName("productid")
	locale := r.URL.Query().Get("locale")
	if !utils.Contains(models.Locales, locale) {
		locale = models.DefaultLocale
	}

	var product models.Product
	cacheKey := "product:" + productID
	if h.Cache == nil || !h.Cache.GetJSON(ctx, cacheKey, &product) {
		err := h.Products.FindOne(ctx, bson.M{"productId": productID}).Decode(&product)
		if errors.Is(err, mongo.ErrNoDocuments) {
			http.Error(w, "Product not found", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Println("GetProduct error:", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Could not load product")
			return
		}
		if h.Cache != nil {
			h.Cache.SetJSON(ctx, cacheKey, product, detailCacheTTL)
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"productId":   product.ProductID,
		"title":       product.TitleFor(locale),
		"description": product.DescriptionFor(locale),
		"category":    product.Category,
		"brand":       product.Brand,
		"price":       product.Price,
		"stock":       product.Stock,
		"available":   product.Available,
		"images":      product.Images,
		"tags":        product.Tags,
		"createdAt":   product.CreatedAt,
	})
}
