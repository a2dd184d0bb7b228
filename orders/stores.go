package orders

import (
	"context"
	"errors"

	"butikk/db"
	"butikk/models"
	"butikk/rdx"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoInventory implements InventoryStore on the products collection.
type MongoInventory struct {
	Products *mongo.Collection
}

// DecrementStock subtracts qty from one product's stock in a single
// document operation, flooring at zero and deriving the availability flag
// from the result. Each product is its own atomic scope; there is no
// cross-document transaction spanning an order's items.
func (m *MongoInventory) DecrementStock(ctx context.Context, productID string, qty int) (int, bool, error) {
	pipeline := bson.A{
		bson.M{"$set": bson.M{
			"stock": bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{"$stock", qty}}}},
		}},
		bson.M{"$set": bson.M{
			"available": bson.M{"$gt": bson.A{"$stock", 0}},
		}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated struct {
		Stock     int  `bson:"stock"`
		Available bool `bson:"available"`
	}
	err := m.Products.FindOneAndUpdate(ctx, bson.M{"productId": productID}, pipeline, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, ErrProductGone
	}
	if err != nil {
		return 0, false, err
	}
	return updated.Stock, updated.Available, nil
}

// MongoOrders implements OrderStore over the orders collection and its
// per-user mirror.
type MongoOrders struct {
	Orders     *mongo.Collection
	UserOrders *mongo.Collection
}

func (m *MongoOrders) FindBySession(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := m.Orders.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Insert writes the order; a unique-index collision on sessionId means a
// concurrent delivery won and is reported as created=false, not an error.
func (m *MongoOrders) Insert(ctx context.Context, o *models.Order) (bool, error) {
	_, err := m.Orders.InsertOne(ctx, o)
	if db.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (m *MongoOrders) UpsertUserCopy(ctx context.Context, o *models.Order) error {
	filter := bson.M{"orderId": o.OrderID, "userId": o.UserID}
	_, err := m.UserOrders.ReplaceOne(ctx, filter, o, options.Replace().SetUpsert(true))
	return err
}

// --- Legacy cart shapes ---
//
// Carts have lived in three places over time; reconciliation cleanup clears
// all of them, each failure swallowed independently.

// CollectionCartCleaner clears the current carts collection.
type CollectionCartCleaner struct {
	Carts *mongo.Collection
}

func (c *CollectionCartCleaner) Name() string { return "carts-collection" }

func (c *CollectionCartCleaner) Clear(ctx context.Context, userID string) error {
	_, err := c.Carts.DeleteMany(ctx, bson.M{"userId": userID})
	return err
}

// LegacyUserCartCleaner unsets the embedded cart array on the user document.
type LegacyUserCartCleaner struct {
	Users *mongo.Collection
}

func (c *LegacyUserCartCleaner) Name() string { return "user-doc-cart" }

func (c *LegacyUserCartCleaner) Clear(ctx context.Context, userID string) error {
	_, err := c.Users.UpdateOne(ctx, bson.M{"userId": userID}, bson.M{"$unset": bson.M{"cart": ""}})
	return err
}

// RedisCartCleaner drops the cached cart key.
type RedisCartCleaner struct {
	Cache *rdx.Cache
}

func (c *RedisCartCleaner) Name() string { return "redis-cart" }

func (c *RedisCartCleaner) Clear(ctx context.Context, userID string) error {
	return c.Cache.Conn.Del(ctx, "cart:"+userID).Err()
}
