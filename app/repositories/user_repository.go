package repositories

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shashiranjanraj/storefront/app/models"
)

// UserRepo handles database operations for users. Email and username are
// unique indexes; violating either yields ErrDuplicate.
type UserRepo struct {
	coll *mongo.Collection
}

func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{coll: db.Collection(UsersCollection)}
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	u.CreatedAt = now()
	if u.Wishlist == nil {
		u.Wishlist = []primitive.ObjectID{}
	}
	res, err := r.coll.InsertOne(ctx, u)
	if err != nil {
		if err := mapErr(err); errors.Is(err, ErrDuplicate) {
			return err
		}
		return fmt.Errorf("users: insert: %w", err)
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// FindByLogin looks a user up by email or username.
func (r *UserRepo) FindByLogin(ctx context.Context, identifier string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": identifier},
		bson.M{"username": identifier},
	}})
}

func (r *UserRepo) List(ctx context.Context, page, limit int) ([]models.User, int64, error) {
	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("users: count: %w", err)
	}
	skip, lim := paging(page, limit)
	users, err := findAll[models.User](ctx, r.coll, bson.M{},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetSkip(skip).SetLimit(lim))
	if err != nil {
		return nil, 0, fmt.Errorf("users: list: %w", err)
	}
	return users, total, nil
}

// Update applies $set and returns the updated user.
func (r *UserRepo) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	return r.update(ctx, id, bson.M{"$set": set})
}

func (r *UserRepo) IncConfirmAttempts(ctx context.Context, id primitive.ObjectID) (int, error) {
	u, err := r.update(ctx, id, bson.M{"$inc": bson.M{"confirmAttempts": 1}})
	if err != nil {
		return 0, err
	}
	return u.ConfirmAttempts, nil
}

func (r *UserRepo) update(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.User, error) {
	var u models.User
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, returnAfter()).Decode(&u); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *UserRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("users: delete: %w", err)
	}
	return nil
}

func (r *UserRepo) AddToWishlist(ctx context.Context, id, productID primitive.ObjectID) (*models.User, error) {
	return r.update(ctx, id, bson.M{"$addToSet": bson.M{"wishlist": productID}})
}

func (r *UserRepo) RemoveFromWishlist(ctx context.Context, id, productID primitive.ObjectID) (*models.User, error) {
	return r.update(ctx, id, bson.M{"$pull": bson.M{"wishlist": productID}})
}

// ─── Delivery details ─────────────────────────────────────────────────────────

// DeliveryRepo stores one address per user.
type DeliveryRepo struct {
	coll *mongo.Collection
}

func NewDeliveryRepo(db *mongo.Database) *DeliveryRepo {
	return &DeliveryRepo{coll: db.Collection(DeliveryCollection)}
}

func (r *DeliveryRepo) FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.DeliveryDetails, error) {
	var d models.DeliveryDetails
	if err := r.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&d); err != nil {
		return nil, mapErr(err)
	}
	return &d, nil
}

func (r *DeliveryRepo) Upsert(ctx context.Context, d *models.DeliveryDetails) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"userId": d.UserID},
		bson.M{"$set": bson.M{
			"fullName":   d.FullName,
			"phone":      d.Phone,
			"address":    d.Address,
			"city":       d.City,
			"postalCode": d.PostalCode,
			"country":    d.Country,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("delivery: upsert: %w", err)
	}
	return nil
}
