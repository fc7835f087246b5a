package repositories

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shashiranjanraj/storefront/app/models"
)

// CartRepo stores carts with optimistic versioning.
type CartRepo struct {
	coll *mongo.Collection
}

func NewCartRepo(db *mongo.Database) *CartRepo {
	return &CartRepo{coll: db.Collection(CartsCollection)}
}

func (r *CartRepo) FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	var c models.Cart
	if err := r.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&c); err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

// Save inserts a new cart (version 1) or updates an existing one when its
// stored version still equals c.Version.
func (r *CartRepo) Save(ctx context.Context, c *models.Cart) error {
	c.UpdatedAt = now()

	if c.ID.IsZero() {
		c.Version = 1
		res, err := r.coll.InsertOne(ctx, c)
		if err != nil {
			// A concurrent first add created the cart.
			if errors.Is(mapErr(err), ErrDuplicate) {
				return ErrConflict
			}
			return fmt.Errorf("carts: insert: %w", err)
		}
		c.ID = res.InsertedID.(primitive.ObjectID)
		return nil
	}

	return r.cas(ctx, c, bson.M{
		"cartItems":  c.CartItems,
		"totalPrice": c.TotalPrice,
		"updatedAt":  c.UpdatedAt,
	})
}

func (r *CartRepo) ClearForOrder(ctx context.Context, c *models.Cart, orderID primitive.ObjectID) error {
	c.UpdatedAt = now()
	if err := r.cas(ctx, c, bson.M{
		"cartItems":   []models.CartItem{},
		"totalPrice":  0.0,
		"lastOrderId": orderID,
		"updatedAt":   c.UpdatedAt,
	}); err != nil {
		return err
	}
	c.Clear()
	c.LastOrderID = &orderID
	return nil
}

func (r *CartRepo) cas(ctx context.Context, c *models.Cart, set bson.M) error {
	set["version"] = c.Version + 1
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": c.ID, "version": c.Version},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("carts: update: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrConflict
	}
	c.Version++
	return nil
}

func (r *CartRepo) HasLastOrder(ctx context.Context, userID, orderID primitive.ObjectID) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"userId": userID, "lastOrderId": orderID})
	if err != nil {
		return false, fmt.Errorf("carts: count: %w", err)
	}
	return n > 0, nil
}
