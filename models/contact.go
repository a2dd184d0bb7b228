package models

import "time"

// Contact message statuses.
const (
	MessageNew       = "new"
	MessageRead      = "read"
	MessageResponded = "responded"
	MessageArchived  = "archived"
)

// MessageTopics are the accepted values for the contact form topic field.
var MessageTopics = []string{"order", "product", "shipping", "other"}

// ValidMessageStatus reports whether s is a known contact message status.
func ValidMessageStatus(s string) bool {
	switch s {
	case MessageNew, MessageRead, MessageResponded, MessageArchived:
		return true
	}
	return false
}

// ContactMessage is a message submitted through the storefront contact form.
type ContactMessage struct {
	MessageID string `json:"messageId" bson:"messageId"`
	Name      string `json:"name" bson:"name"`
	Email     string `json:"email" bson:"email"`
	Topic     string `json:"topic" bson:"topic"`
	OrderID   string `json:"orderId,omitempty" bson:"orderId,omitempty"`
	Body      string `json:"body" bson:"body"`
	Status    string `json:"status" bson:"status"`

	AdminNote   string     `json:"adminNote,omitempty" bson:"adminNote,omitempty"`
	Response    string     `json:"response,omitempty" bson:"response,omitempty"`
	RespondedAt *time.Time `json:"respondedAt,omitempty" bson:"respondedAt,omitempty"`
	RespondedBy string     `json:"respondedBy,omitempty" bson:"respondedBy,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}
