package admin

import (
	"context"
	"log"
	"net/http"
	"time"

	"butikk/db"
	"butikk/models"
	"butikk/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

// Handler serves back-office overview endpoints.
type Handler struct {
	Store *db.Store
}

// Dashboard returns the counters the back-office landing page shows:
// catalog size, orders broken down by status and new contact messages.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	products, err := h.Store.ProductsCollection.CountDocuments(ctx, bson.M{})
	if err != nil {
		log.Println("Dashboard product count error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not load dashboard")
		return
	}

	ordersByStatus, total, err := h.orderCounts(ctx)
	if err != nil {
		log.Println("Dashboard order count error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not load dashboard")
		return
	}

	newMessages, err := h.Store.MessagesCollection.CountDocuments(ctx, bson.M{"status": models.MessageNew})
	if err != nil {
		log.Println("Dashboard message count error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not load dashboard")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"products":       products,
		"orders":         total,
		"ordersByStatus": ordersByStatus,
		"newMessages":    newMessages,
	})
}

func (h *Handler) orderCounts(ctx context.Context) (map[string]int64, int64, error) {
	cur, err := h.Store.OrdersCollection.Aggregate(ctx, bson.A{
		bson.M{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
	})
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, 0, err
	}

	counts := map[string]int64{}
	var total int64
	for _, row := range rows {
		counts[row.Status] = row.Count
		total += row.Count
	}
	return counts, total, nil
}
