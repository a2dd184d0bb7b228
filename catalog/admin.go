package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"butikk/filemgr"
	"butikk/models"
	"butikk/payments"
	"butikk/rdx"
	"butikk/utils"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// StockBroadcaster pushes stock changes to live storefront clients.
type StockBroadcaster interface {
	StockChanged(productID string, stock int, available bool)
}

// Admin serves the back-office product endpoints.
type Admin struct {
	Products  *mongo.Collection
	Pay       *payments.Client
	Cache     *rdx.Cache
	Live      StockBroadcaster
	UploadDir string
	Currency  string
}

// CreateProduct handles the multipart create form. The provider product and
// price are provisioned first so their cross references land in the catalog
// document.
func (a *Admin) CreateProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 25*time.Second)
	defer cancel()

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Unable to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	title := r.FormValue("title")
	if len(title) == 0 || len(title) > 200 {
		http.Error(w, "Title must be between 1 and 200 characters", http.StatusBadRequest)
		return
	}
	price, err := strconv.ParseFloat(r.FormValue("price"), 64)
	if err != nil || price <= 0 {
		http.Error(w, "Invalid price value. Must be a positive number.", http.StatusBadRequest)
		return
	}
	stock, err := strconv.Atoi(r.FormValue("stock"))
	if err != nil || stock < 0 {
		http.Error(w, "Invalid stock value. Must be a non-negative integer.", http.StatusBadRequest)
		return
	}
	category := r.FormValue("category")
	if category == "" {
		http.Error(w, "Category is required", http.StatusBadRequest)
		return
	}

	product := models.Product{
		ProductID:   uuid.NewString(),
		Title:       title,
		Description: r.FormValue("description"),
		Category:    category,
		Brand:       r.FormValue("brand"),
		Price:       price,
		Stock:       stock,
		Tags:        utils.SplitCSV(r.FormValue("tags")),
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	product.TitleI18n = localeValues(r, "title")
	product.DescI18n = localeValues(r, "description")
	product.RefreshDerived()

	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		name, err := filemgr.SaveProductImage(file, header, a.UploadDir)
		if err != nil {
			http.Error(w, "Error saving image: "+err.Error(), http.StatusBadRequest)
			return
		}
		product.Images = []string{name}
	} else if err != http.ErrMissingFile {
		http.Error(w, "Error retrieving image: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := a.provision(ctx, &product); err != nil {
		log.Println("CreateProduct provider error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to provision payment product")
		return
	}

	if _, err := a.Products.InsertOne(ctx, product); err != nil {
		log.Println("CreateProduct insert error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, product)
}

// provision creates the provider-side product and price and records their
// ids on the catalog document.
func (a *Admin) provision(ctx context.Context, product *models.Product) error {
	metadata := map[string]string{"productId": product.ProductID}
	payProductID, err := a.Pay.CreateProduct(ctx, product.Title, product.Description, nil, metadata)
	if err != nil {
		return err
	}
	payPriceID, err := a.Pay.CreatePrice(ctx, payProductID, minorUnits(product.Price), a.Currency, metadata)
	if err != nil {
		return err
	}
	product.PayProductID = payProductID
	product.PayPriceID = payPriceID
	return nil
}

// UpdateProduct applies a partial JSON edit. A price change provisions a new
// provider price, since provider prices are immutable.
func (a *Admin) UpdateProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 25*time.Second)
	defer cancel()

	productID := ps.ByName("productid")
	var product models.Product
	err := a.Products.FindOne(ctx, bson.M{"productId": productID}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Println("UpdateProduct load error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not load product")
		return
	}

	var patch struct {
		Title       *string            `json:"title"`
		Description *string            `json:"description"`
		TitleI18n   map[string]string  `json:"title_i18n"`
		DescI18n    map[string]string  `json:"desc_i18n"`
		Category    *string            `json:"category"`
		Brand       *string            `json:"brand"`
		Price       *float64           `json:"price"`
		Stock       *int               `json:"stock"`
		Tags        *[]string          `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	priceChanged := false
	if patch.Title != nil {
		product.Title = *patch.Title
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}
	if patch.TitleI18n != nil {
		product.TitleI18n = patch.TitleI18n
	}
	if patch.DescI18n != nil {
		product.DescI18n = patch.DescI18n
	}
	if patch.Category != nil {
		product.Category = *patch.Category
	}
	if patch.Brand != nil {
		product.Brand = *patch.Brand
	}
	if patch.Tags != nil {
		product.Tags = *patch.Tags
	}
	if patch.Price != nil {
		if *patch.Price <= 0 {
			http.Error(w, "Price must be positive", http.StatusBadRequest)
			return
		}
		priceChanged = product.Price != *patch.Price
		product.Price = *patch.Price
	}
	if patch.Stock != nil {
		if *patch.Stock < 0 {
			http.Error(w, "Stock must be non-negative", http.StatusBadRequest)
			return
		}
		product.Stock = *patch.Stock
	}
	product.RefreshDerived()
	product.UpdatedAt = time.Now().UTC()

	if priceChanged && product.PayProductID != "" {
		metadata := map[string]string{"productId": product.ProductID}
		payPriceID, err := a.Pay.CreatePrice(ctx, product.PayProductID, minorUnits(product.Price), a.Currency, metadata)
		if err != nil {
			log.Println("UpdateProduct reprice error:", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update payment price")
			return
		}
		product.PayPriceID = payPriceID
	}

	if _, err := a.Products.ReplaceOne(ctx, bson.M{"productId": productID}, product); err != nil {
		log.Println("UpdateProduct replace error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}

	if a.Cache != nil {
		a.Cache.Invalidate(ctx, "product:"+productID)
	}
	if patch.Stock != nil && a.Live != nil {
		a.Live.StockChanged(productID, product.Stock, product.Available)
	}

	utils.RespondWithJSON(w, http.StatusOK, product)
}

// GetProduct returns the raw stored product, i18n maps included, for the
// back-office edit form. The public catalog endpoint resolves locales instead.
func (a *Admin) GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var product models.Product
	err := a.Products.FindOne(ctx, bson.M{"productId": ps.ByName("productid")}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Println("GetProduct (admin) error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not load product")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, product)
}

// DeleteProduct removes the catalog document; archiving the provider
// product and removing stored images are best-effort.
func (a *Admin) DeleteProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 25*time.Second)
	defer cancel()

	productID := ps.ByName("productid")
	var product models.Product
	err := a.Products.FindOne(ctx, bson.M{"productId": productID}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Println("DeleteProduct load error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not load product")
		return
	}

	if _, err := a.Products.DeleteOne(ctx, bson.M{"productId": productID}); err != nil {
		log.Println("DeleteProduct delete error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}

	if product.PayProductID != "" {
		if err := a.Pay.ArchiveProduct(ctx, product.PayProductID); err != nil {
			log.Println("DeleteProduct archive error:", err)
		}
	}
	filemgr.RemoveProductImages(a.UploadDir, product.Images)
	if a.Cache != nil {
		a.Cache.Invalidate(ctx, "product:"+productID)
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// localeValues collects per-locale form fields like title_nb, description_en.
func localeValues(r *http.Request, prefix string) map[string]string {
	values := map[string]string{}
	for _, locale := range models.Locales {
		if v := r.FormValue(prefix + "_" + locale); v != "" {
			values[locale] = v
		}
	}
	if len(values) == 0 {
		return nil
	}
	return values
}

func minorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}
