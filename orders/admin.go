package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"butikk/globals"
	"butikk/models"
	"butikk/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func isAdminRequest(r *http.Request) bool {
	roles, _ := r.Context().Value(globals.RoleKey).([]string)
	return utils.Contains(roles, "admin")
}

// AdminList returns orders for the back office, optionally filtered by
// fulfillment status.
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if status := r.URL.Query().Get("status"); status != "" {
		if !models.ValidStatus(status) {
			http.Error(w, "Unknown status", http.StatusBadRequest)
			return
		}
		filter["status"] = status
	}

	skip, limit := utils.ParsePagination(r, 20, 100)
	total, err := h.Orders.CountDocuments(ctx, filter)
	if err != nil {
		log.Println("AdminList count error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not count orders")
		return
	}

	opts := options.Find().
		SetSort(bson.M{"createdAt": -1}).
		SetSkip(skip).
		SetLimit(limit)
	cursor, err := h.Orders.Find(ctx, filter, opts)
	if err != nil {
		log.Println("AdminList find error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not list orders")
		return
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		log.Println("AdminList decode error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error reading orders")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"orders": orders, "total": total})
}

// AdminGet returns one order for the back office.
func (h *Handler) AdminGet(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var order models.Order
	err := h.Orders.FindOne(ctx, bson.M{"orderId": ps.ByName("orderid")}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Println("AdminGet error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not load order")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, order)
}

// UpdateStatus moves an order along the fulfillment progression. Illegal
// transitions are rejected; the machine allows
// paid → fulfilled → shipped → delivered, with canceled reachable from any
// non-terminal state.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || !models.ValidStatus(payload.Status) {
		http.Error(w, "Unknown status", http.StatusBadRequest)
		return
	}

	orderID := ps.ByName("orderid")
	var order models.Order
	err := h.Orders.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Println("UpdateStatus load error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not load order")
		return
	}

	if !models.CanTransition(order.Status, payload.Status) {
		http.Error(w, "Invalid status transition", http.StatusBadRequest)
		return
	}

	update := bson.M{"$set": bson.M{"status": payload.Status, "updatedAt": time.Now().UTC()}}
	if _, err := h.Orders.UpdateOne(ctx, bson.M{"orderId": orderID}, update); err != nil {
		log.Println("UpdateStatus update error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not update order")
		return
	}
	if order.UserID != "" {
		if _, err := h.UserOrders.UpdateOne(ctx, bson.M{"orderId": orderID, "userId": order.UserID}, update); err != nil {
			log.Println("UpdateStatus mirror update error:", err)
		}
	}

	if h.Live != nil {
		h.Live.OrderStatusChanged(orderID, payload.Status)
	}

	order.Status = payload.Status
	utils.RespondWithJSON(w, http.StatusOK, order)
}
