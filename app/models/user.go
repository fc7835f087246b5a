package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a customer or admin account.
type User struct {
	ID                  primitive.ObjectID   `bson:"_id,omitempty"                 json:"_id"`
	Username            string               `bson:"username"                      json:"username"`
	Email               string               `bson:"email"                         json:"email"`
	Password            string               `bson:"password"                      json:"-"`
	IsAdmin             bool                 `bson:"isAdmin"                       json:"isAdmin"`
	ProfilePicture      string               `bson:"profilePicture,omitempty"      json:"profilePicture,omitempty"`
	Wishlist            []primitive.ObjectID `bson:"wishlist"                      json:"wishlist"`
	EmailVerified       bool                 `bson:"emailVerified"                 json:"emailVerified"`
	ConfirmationCode    string               `bson:"confirmationCode,omitempty"    json:"-"`
	ConfirmationExpires time.Time            `bson:"confirmationExpires,omitempty" json:"-"`
	// ConfirmAttempts counts wrong codes entered against the current code.
	ConfirmAttempts     int                  `bson:"confirmAttempts,omitempty"     json:"-"`
	CreatedAt           time.Time            `bson:"createdAt"                     json:"createdAt"`
}

// DeliveryDetails is the shipping address a user saved.
type DeliveryDetails struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"    json:"-"`
	UserID     primitive.ObjectID `bson:"userId,omitempty" json:"-"`
	FullName   string             `bson:"fullName"         json:"fullName"   validate:"required,max=100"`
	Phone      string             `bson:"phone"            json:"phone"      validate:"required,max=30"`
	Address    string             `bson:"address"          json:"address"    validate:"required,max=200"`
	City       string             `bson:"city"             json:"city"       validate:"required,max=100"`
	PostalCode string             `bson:"postalCode"       json:"postalCode" validate:"required,max=20"`
	Country    string             `bson:"country"          json:"country"    validate:"required,max=100"`
}
