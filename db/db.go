package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store bundles the Mongo client and every collection the storefront uses.
// It is constructed once in main and handed to the handlers that need it.
type Store struct {
	Client *mongo.Client

	ProductsCollection *mongo.Collection
	OrdersCollection   *mongo.Collection
	// UserOrdersCollection mirrors orders under the owning user, standing in
	// for a per-user subcollection layout.
	UserOrdersCollection *mongo.Collection
	CartCollection       *mongo.Collection
	MessagesCollection   *mongo.Collection
	UserCollection       *mongo.Collection
}

// Connect establishes the Mongo connection and resolves all collections.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, err
	}

	database := client.Database(dbName)
	return &Store{
		Client:               client,
		ProductsCollection:   database.Collection("products"),
		OrdersCollection:     database.Collection("orders"),
		UserOrdersCollection: database.Collection("userorders"),
		CartCollection:       database.Collection("carts"),
		MessagesCollection:   database.Collection("messages"),
		UserCollection:       database.Collection("users"),
	}, nil
}

// EnsureIndexes creates the indexes reconciliation and listing rely on. The
// unique sessionId index is what makes duplicate order creation a no-op.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.OrdersCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"sessionId": 1},
		Options: options.Index().SetUnique(true).SetName("unique_sessionId"),
	})
	if err != nil {
		return err
	}

	productIdxs := []mongo.IndexModel{
		{Keys: bson.M{"category": 1}, Options: options.Index().SetName("category")},
		{Keys: bson.M{"createdAt": -1}, Options: options.Index().SetName("createdAt_desc")},
	}
	if _, err := s.ProductsCollection.Indexes().CreateMany(ctx, productIdxs); err != nil {
		return err
	}

	_, err = s.CartCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "productId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("unique_user_product"),
	})
	if err != nil {
		return err
	}

	userIdxs := []mongo.IndexModel{
		{Keys: bson.M{"username": 1}, Options: options.Index().SetUnique(true).SetName("unique_username")},
		{Keys: bson.M{"email": 1}, Options: options.Index().SetUnique(true).SetName("unique_email")},
	}
	_, err = s.UserCollection.Indexes().CreateMany(ctx, userIdxs)
	return err
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}

// IsDuplicateKeyError reports whether err is a Mongo unique-index violation.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if we, ok := err.(mongo.WriteException); ok {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return mongo.IsDuplicateKeyError(err)
}
