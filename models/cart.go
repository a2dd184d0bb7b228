package models

import "time"

// CartItem is one line of a user's cart. Title, price and thumbnail are
// denormalized so the cart renders without joining products.
type CartItem struct {
	UserID    string    `json:"userId" bson:"userId"`
	ProductID string    `json:"productId" bson:"productId"`
	Title     string    `json:"title" bson:"title"`
	Price     float64   `json:"price" bson:"price"` // unit price, major unit
	Thumbnail string    `json:"thumbnail,omitempty" bson:"thumbnail,omitempty"`
	Quantity  int       `json:"quantity" bson:"quantity"`
	AddedAt   time.Time `json:"addedAt" bson:"addedAt"`
}
