package migrations

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/shashiranjanraj/storefront/app/repositories"
)

func init() {
	Register("20260101000000_users",
		unique(repositories.UsersCollection, bson.D{{Key: "email", Value: 1}}),
		unique(repositories.UsersCollection, bson.D{{Key: "username", Value: 1}}),
		unique(repositories.DeliveryCollection, bson.D{{Key: "userId", Value: 1}}),
	)
	Register("20260101000001_carts",
		unique(repositories.CartsCollection, bson.D{{Key: "userId", Value: 1}}),
	)
	Register("20260101000002_orders",
		plain(repositories.OrdersCollection, bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}),
		plain(repositories.OrdersCollection, bson.D{{Key: "confirmed", Value: 1}, {Key: "createdAt", Value: 1}}),
		plain(repositories.OrdersCollection, bson.D{{Key: "status", Value: 1}}),
	)
	Register("20260101000003_products",
		plain(repositories.ProductsCollection, bson.D{{Key: "isActive", Value: 1}, {Key: "isFeatured", Value: 1}}),
		plain(repositories.ProductsCollection, bson.D{{Key: "createdAt", Value: -1}}),
	)
	Register("20260101000004_reviews",
		unique(repositories.ReviewsCollection, bson.D{{Key: "userId", Value: 1}, {Key: "orderId", Value: 1}, {Key: "productId", Value: 1}}),
		plain(repositories.ReviewsCollection, bson.D{{Key: "productId", Value: 1}, {Key: "createdAt", Value: -1}}),
	)
}
