package contact

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"butikk/email"
	"butikk/models"
	"butikk/utils"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Handler serves the public contact form and the admin inbox.
type Handler struct {
	Messages *mongo.Collection
	Mail     email.Sender
}

type submitPayload struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Topic   string `json:"topic"`
	OrderID string `json:"orderId"`
	Body    string `json:"body"`
}

// Submit stores an incoming contact message with status "new".
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var payload submitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	payload.Name = strings.TrimSpace(payload.Name)
	payload.Body = strings.TrimSpace(payload.Body)

	switch {
	case payload.Name == "" || len(payload.Name) > 120:
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	case !utils.ValidEmail(payload.Email):
		http.Error(w, "A valid email address is required", http.StatusBadRequest)
		return
	case !utils.Contains(models.MessageTopics, payload.Topic):
		http.Error(w, "Unknown topic", http.StatusBadRequest)
		return
	case payload.Body == "" || len(payload.Body) > 5000:
		http.Error(w, "Message body must be between 1 and 5000 characters", http.StatusBadRequest)
		return
	}

	msg := models.ContactMessage{
		MessageID: uuid.NewString(),
		Name:      payload.Name,
		Email:     payload.Email,
		Topic:     payload.Topic,
		OrderID:   payload.OrderID,
		Body:      payload.Body,
		Status:    models.MessageNew,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := h.Messages.InsertOne(ctx, msg); err != nil {
		log.Println("contact insert error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to store message")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"messageId": msg.MessageID})
}

// AdminList returns the inbox, newest first, optionally filtered by status.
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if status := r.URL.Query().Get("status"); status != "" {
		if !models.ValidMessageStatus(status) {
			http.Error(w, "Unknown status", http.StatusBadRequest)
			return
		}
		filter["status"] = status
	}
	skip, limit := utils.ParsePagination(r, 20, 100)

	total, err := h.Messages.CountDocuments(ctx, filter)
	if err != nil {
		log.Println("contact count error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list messages")
		return
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	cur, err := h.Messages.Find(ctx, filter, opts)
	if err != nil {
		log.Println("contact find error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list messages")
		return
	}
	defer cur.Close(ctx)

	messages := []models.ContactMessage{}
	if err := cur.All(ctx, &messages); err != nil {
		log.Println("contact decode error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list messages")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"messages": messages, "total": total})
}

// UpdateStatus moves a message between inbox states.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var payload struct {
		Status    string `json:"status"`
		AdminNote string `json:"adminNote"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if !models.ValidMessageStatus(payload.Status) {
		http.Error(w, "Unknown status", http.StatusBadRequest)
		return
	}

	update := bson.M{"status": payload.Status}
	if payload.AdminNote != "" {
		update["adminNote"] = payload.AdminNote
	}
	res, err := h.Messages.UpdateOne(ctx,
		bson.M{"messageId": ps.ByName("messageid")},
		bson.M{"$set": update})
	if err != nil {
		log.Println("contact status error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update message")
		return
	}
	if res.MatchedCount == 0 {
		http.Error(w, "Message not found", http.StatusNotFound)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": payload.Status})
}

// Respond records an admin reply and emails it to the sender. The email is
// best-effort; the reply is stored either way.
func (h *Handler) Respond(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	var payload struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	payload.Body = strings.TrimSpace(payload.Body)
	if payload.Body == "" {
		http.Error(w, "Reply body is required", http.StatusBadRequest)
		return
	}

	messageID := ps.ByName("messageid")
	var msg models.ContactMessage
	err := h.Messages.FindOne(ctx, bson.M{"messageId": messageID}).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		http.Error(w, "Message not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Println("contact load error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load message")
		return
	}

	now := time.Now().UTC()
	respondedBy := utils.GetUsernameFromRequest(r)
	_, err = h.Messages.UpdateOne(ctx,
		bson.M{"messageId": messageID},
		bson.M{"$set": bson.M{
			"status":      models.MessageResponded,
			"response":    payload.Body,
			"respondedAt": now,
			"respondedBy": respondedBy,
		}})
	if err != nil {
		log.Println("contact respond error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to store reply")
		return
	}

	if h.Mail != nil {
		subject := "Re: your message about " + msg.Topic
		if err := h.Mail.Send(msg.Email, subject, payload.Body); err != nil {
			log.Println("contact reply email error:", err)
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": models.MessageResponded})
}
