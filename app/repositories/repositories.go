// Package repositories persists the storefront documents in MongoDB.
//
// Services depend on the interfaces below; the Mongo types implement them.
// Storage outcomes are reported with the sentinel errors so services never
// inspect driver errors.
package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/pkg/database"
)

var (
	ErrNotFound  = errors.New("repositories: not found")
	ErrConflict  = errors.New("repositories: concurrent modification")
	ErrDuplicate = errors.New("repositories: duplicate key")
)

// Collection names.
const (
	ProductsCollection = "products"
	CartsCollection    = "carts"
	OrdersCollection   = "orders"
	ReviewsCollection  = "reviews"
	UsersCollection    = "users"
	DeliveryCollection = "delivery_details"
)

// ─── Interfaces ───────────────────────────────────────────────────────────────

// ProductFilter selects products for listings.
type ProductFilter struct {
	ActiveOnly bool
	Featured   *bool
	Query      string
	Page       int
	Limit      int
}

type ProductRepository interface {
	Create(ctx context.Context, p *models.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error)
	Find(ctx context.Context, f ProductFilter) ([]models.Product, int64, error)
	All(ctx context.Context) ([]models.Product, error)
	Replace(ctx context.Context, p *models.Product) error
	SetFlag(ctx context.Context, id primitive.ObjectID, field string, value bool) (*models.Product, error)
	AddImages(ctx context.Context, id primitive.ObjectID, urls []string) (*models.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type CartRepository interface {
	FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	// Save writes the cart when its version is unchanged and bumps it.
	Save(ctx context.Context, c *models.Cart) error
	// ClearForOrder empties the cart and stamps lastOrderId, with the same
	// version check as Save.
	ClearForOrder(ctx context.Context, c *models.Cart, orderID primitive.ObjectID) error
	HasLastOrder(ctx context.Context, userID, orderID primitive.ObjectID) (bool, error)
}

type OrderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	Confirm(ctx context.Context, id primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	FindAll(ctx context.Context, status models.OrderStatus, page, limit int) ([]models.Order, int64, error)
	FindDelivered(ctx context.Context, orderID, userID, productID primitive.ObjectID) (*models.Order, error)
	// UpdateStatus moves the order from one status to another; ErrConflict
	// when the order is no longer in from.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from models.OrderStatus, change models.StatusChange) (*models.Order, error)
	FindDrafts(ctx context.Context, before time.Time) ([]models.Order, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, r *models.Review) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Review, error)
	FindByProduct(ctx context.Context, productID primitive.ObjectID) ([]models.Review, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Review, error)
	FindReported(ctx context.Context) ([]models.Review, error)
	// SaveVotes stores votes and counters when updatedAt still equals prev.
	SaveVotes(ctx context.Context, r *models.Review, prev time.Time) error
	SetReply(ctx context.Context, id primitive.ObjectID, reply models.Reply) (*models.Review, error)
	SetHidden(ctx context.Context, id primitive.ObjectID, hidden bool) (*models.Review, error)
	// AddReport appends a report; ErrDuplicate when userID already reported.
	AddReport(ctx context.Context, id primitive.ObjectID, rep models.Report) (*models.Review, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByLogin(ctx context.Context, identifier string) (*models.User, error)
	List(ctx context.Context, page, limit int) ([]models.User, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error)
	// IncConfirmAttempts atomically counts a wrong confirmation code and
	// returns the new total.
	IncConfirmAttempts(ctx context.Context, id primitive.ObjectID) (int, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddToWishlist(ctx context.Context, id, productID primitive.ObjectID) (*models.User, error)
	RemoveFromWishlist(ctx context.Context, id, productID primitive.ObjectID) (*models.User, error)
}

type DeliveryRepository interface {
	FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.DeliveryDetails, error)
	Upsert(ctx context.Context, d *models.DeliveryDetails) error
}

type DashboardRepository interface {
	Stats(ctx context.Context, since time.Time) (*models.DashboardStats, error)
}

// ─── Wiring ───────────────────────────────────────────────────────────────────

// Set bundles the Mongo repositories.
type Set struct {
	Products  *ProductRepo
	Carts     *CartRepo
	Orders    *OrderRepo
	Reviews   *ReviewRepo
	Users     *UserRepo
	Delivery  *DeliveryRepo
	Dashboard *DashboardRepo
}

func NewSet(db *mongo.Database) *Set {
	return &Set{
		Products:  NewProductRepo(db),
		Carts:     NewCartRepo(db),
		Orders:    NewOrderRepo(db),
		Reviews:   NewReviewRepo(db),
		Users:     NewUserRepo(db),
		Delivery:  NewDeliveryRepo(db),
		Dashboard: NewDashboardRepo(db),
	}
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// now is truncated to what Mongo stores so compare-and-swap on timestamps
// matches after a round trip.
func now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case database.IsNotFound(err):
		return ErrNotFound
	case database.IsDuplicateKey(err):
		return ErrDuplicate
	}
	return err
}

func paging(page, limit int) (skip, lim int64) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return int64((page - 1) * limit), int64(limit)
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func returnAfter() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}
