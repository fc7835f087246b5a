package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "Pending"
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []OrderStatus{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

// Valid reports whether s is one of the five statuses.
func (s OrderStatus) Valid() bool { return slices.Contains(Statuses, s) }

// Cancellable reports whether the customer may still cancel.
func (s OrderStatus) Cancellable() bool {
	return s == StatusPending || s == StatusProcessing
}

// OrderLine is a cart line frozen at checkout.
type OrderLine struct {
	ProductID primitive.ObjectID `bson:"productId"         json:"productId"`
	Name      string             `bson:"name"              json:"name"`
	Size      string             `bson:"size,omitempty"    json:"size,omitempty"`
	Color     string             `bson:"color,omitempty"   json:"color,omitempty"`
	Price     float64            `bson:"price"             json:"price"`
	Quantity  int                `bson:"quantity"          json:"quantity"`
	Subtotal  float64            `bson:"subtotal"          json:"subtotal"`
	Product   *ProductSummary    `bson:"product,omitempty" json:"product,omitempty"`
}

type StatusChange struct {
	Status    OrderStatus         `bson:"status"              json:"status"`
	ChangedAt time.Time           `bson:"changedAt"           json:"changedAt"`
	ChangedBy *primitive.ObjectID `bson:"changedBy,omitempty" json:"changedBy,omitempty"`
}

// Order is a confirmed purchase. Drafts (Confirmed == false) exist only
// between checkout steps and are never returned to clients.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"             json:"_id"`
	UserID          primitive.ObjectID `bson:"userId"                    json:"userId"`
	ProductsOrdered []OrderLine        `bson:"productsOrdered"           json:"productsOrdered"`
	TotalPrice      float64            `bson:"totalPrice"                json:"totalPrice"`
	Status          OrderStatus        `bson:"status"                    json:"status"`
	StatusHistory   []StatusChange     `bson:"statusHistory"             json:"statusHistory"`
	DeliveryDetails *DeliveryDetails   `bson:"deliveryDetails,omitempty" json:"deliveryDetails,omitempty"`
	Confirmed       bool               `bson:"confirmed"                 json:"-"`
	CreatedAt       time.Time          `bson:"createdAt"                 json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"                 json:"updatedAt"`
}

// Contains reports whether the order includes productID.
func (o *Order) Contains(productID primitive.ObjectID) bool {
	for _, l := range o.ProductsOrdered {
		if l.ProductID == productID {
			return true
		}
	}
	return false
}
