package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shashiranjanraj/storefront/app/models"
)

// ReviewRepo stores reviews. The unique (userId, orderId, productId) index
// turns a second review of the same purchase into ErrDuplicate.
type ReviewRepo struct {
	coll *mongo.Collection
}

func NewReviewRepo(db *mongo.Database) *ReviewRepo {
	return &ReviewRepo{coll: db.Collection(ReviewsCollection)}
}

func (r *ReviewRepo) Create(ctx context.Context, rv *models.Review) error {
	t := now()
	rv.CreatedAt, rv.UpdatedAt = t, t
	if rv.Votes == nil {
		rv.Votes = []models.Vote{}
	}
	if rv.Reports == nil {
		rv.Reports = []models.Report{}
	}
	res, err := r.coll.InsertOne(ctx, rv)
	if err != nil {
		if err := mapErr(err); errors.Is(err, ErrDuplicate) {
			return err
		}
		return fmt.Errorf("reviews: insert: %w", err)
	}
	rv.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *ReviewRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Review, error) {
	var rv models.Review
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rv); err != nil {
		return nil, mapErr(err)
	}
	return &rv, nil
}

func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
}

// FindByProduct returns the visible reviews of a product.
func (r *ReviewRepo) FindByProduct(ctx context.Context, productID primitive.ObjectID) ([]models.Review, error) {
	return findAll[models.Review](ctx, r.coll, bson.M{"productId": productID, "hidden": false}, newestFirst())
}

func (r *ReviewRepo) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Review, error) {
	return findAll[models.Review](ctx, r.coll, bson.M{"userId": userID}, newestFirst())
}

func (r *ReviewRepo) FindReported(ctx context.Context) ([]models.Review, error) {
	return findAll[models.Review](ctx, r.coll, bson.M{"reported": true}, newestFirst())
}

func (r *ReviewRepo) SaveVotes(ctx context.Context, rv *models.Review, prev time.Time) error {
	rv.UpdatedAt = now()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": rv.ID, "updatedAt": prev},
		bson.M{"$set": bson.M{
			"votes":           rv.Votes,
			"helpfulVotes":    rv.HelpfulVotes,
			"notHelpfulVotes": rv.NotHelpfulVotes,
			"updatedAt":       rv.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("reviews: save votes: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrConflict
	}
	return nil
}

func (r *ReviewRepo) SetReply(ctx context.Context, id primitive.ObjectID, reply models.Reply) (*models.Review, error) {
	reply.RepliedAt = now()
	return r.update(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"reply": reply, "updatedAt": reply.RepliedAt}})
}

func (r *ReviewRepo) SetHidden(ctx context.Context, id primitive.ObjectID, hidden bool) (*models.Review, error) {
	return r.update(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"hidden": hidden, "updatedAt": now()}})
}

func (r *ReviewRepo) AddReport(ctx context.Context, id primitive.ObjectID, rep models.Report) (*models.Review, error) {
	rep.ReportedAt = now()
	rv, err := r.update(ctx,
		bson.M{"_id": id, "reports.userId": bson.M{"$ne": rep.UserID}},
		bson.M{
			"$push": bson.M{"reports": rep},
			"$set":  bson.M{"reported": true, "updatedAt": rep.ReportedAt},
		},
	)
	if errors.Is(err, ErrNotFound) {
		if _, ferr := r.FindByID(ctx, id); ferr == nil {
			return nil, ErrDuplicate
		}
	}
	return rv, err
}

func (r *ReviewRepo) update(ctx context.Context, filter, update bson.M) (*models.Review, error) {
	var rv models.Review
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, returnAfter()).Decode(&rv); err != nil {
		return nil, mapErr(err)
	}
	return &rv, nil
}

func (r *ReviewRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("reviews: delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
