package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartVariant is the variant snapshot stored on a cart line.
type CartVariant struct {
	Size  string  `bson:"size,omitempty"  json:"size,omitempty"`
	Color string  `bson:"color,omitempty" json:"color,omitempty"`
	Price float64 `bson:"price"           json:"price"`
}

type CartItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Variant   CartVariant        `bson:"variant"   json:"variant"`
	Quantity  int                `bson:"quantity"  json:"quantity"`
	Subtotal  float64            `bson:"subtotal"  json:"subtotal"`
}

// Cart is the single cart of a user. Version increments on every write and
// guards against lost updates.
type Cart struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty"         json:"_id"`
	UserID      primitive.ObjectID  `bson:"userId"                json:"userId"`
	CartItems   []CartItem          `bson:"cartItems"             json:"cartItems"`
	TotalPrice  float64             `bson:"totalPrice"            json:"totalPrice"`
	Version     int64               `bson:"version"               json:"-"`
	LastOrderID *primitive.ObjectID `bson:"lastOrderId,omitempty" json:"-"`
	UpdatedAt   time.Time           `bson:"updatedAt"             json:"updatedAt"`
}

// NewCart returns an empty cart for userID.
func NewCart(userID primitive.ObjectID) *Cart {
	return &Cart{UserID: userID, CartItems: []CartItem{}}
}

// Find returns the index of the line for (productID, size, color), or -1.
func (c *Cart) Find(productID primitive.ObjectID, size, color string) int {
	for i, it := range c.CartItems {
		if it.ProductID == productID && it.Variant.Size == size && it.Variant.Color == color {
			return i
		}
	}
	return -1
}

// Remove splices line i out of the cart.
func (c *Cart) Remove(i int) {
	c.CartItems = append(c.CartItems[:i], c.CartItems[i+1:]...)
	c.Recalculate()
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.CartItems = []CartItem{}
	c.TotalPrice = 0
}

// Recalculate restores totalPrice == sum(subtotal).
func (c *Cart) Recalculate() {
	subs := make([]float64, len(c.CartItems))
	for i, it := range c.CartItems {
		subs[i] = it.Subtotal
	}
	c.TotalPrice = Sum(subs...)
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool { return c == nil || len(c.CartItems) == 0 }
