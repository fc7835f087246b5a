package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shashiranjanraj/storefront/app/models"
)

// OrderRepo stores orders. Every read except FindDrafts ignores
// unconfirmed checkout drafts.
type OrderRepo struct {
	coll *mongo.Collection
}

func NewOrderRepo(db *mongo.Database) *OrderRepo {
	return &OrderRepo{coll: db.Collection(OrdersCollection)}
}

func (r *OrderRepo) Create(ctx context.Context, o *models.Order) error {
	t := now()
	o.CreatedAt, o.UpdatedAt = t, t
	res, err := r.coll.InsertOne(ctx, o)
	if err != nil {
		return fmt.Errorf("orders: insert: %w", mapErr(err))
	}
	o.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *OrderRepo) Confirm(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"confirmed": true}})
	if err != nil {
		return fmt.Errorf("orders: confirm: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *OrderRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("orders: delete: %w", err)
	}
	return nil
}

func (r *OrderRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	out, err := r.aggregate(ctx, bson.M{"_id": id, "confirmed": true}, 0, 1)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

func (r *OrderRepo) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return r.aggregate(ctx, bson.M{"userId": userID, "confirmed": true}, 0, 0)
}

func (r *OrderRepo) FindAll(ctx context.Context, status models.OrderStatus, page, limit int) ([]models.Order, int64, error) {
	filter := bson.M{"confirmed": true}
	if status != "" {
		filter["status"] = status
	}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("orders: count: %w", err)
	}
	skip, lim := paging(page, limit)
	items, err := r.aggregate(ctx, filter, skip, lim)
	return items, total, err
}

// aggregate returns matching orders newest first, each line carrying the
// current product name and images.
func (r *OrderRepo) aggregate(ctx context.Context, match bson.M, skip, limit int64) ([]models.Order, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
	}
	if skip > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: skip}})
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	pipeline = append(pipeline, productLookup("productsOrdered")...)

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("orders: aggregate: %w", err)
	}
	out := []models.Order{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("orders: decode: %w", err)
	}
	return out, nil
}

// productLookup joins products into every element of the lines array as
// `product: {_id, name, images}`. Lines whose product is gone get none.
func productLookup(lines string) []bson.D {
	return []bson.D{
		{{Key: "$lookup", Value: bson.M{
			"from":         ProductsCollection,
			"localField":   lines + ".productId",
			"foreignField": "_id",
			"as":           "_products",
		}}},
		{{Key: "$addFields", Value: bson.M{
			lines: bson.M{"$map": bson.M{
				"input": "$" + lines,
				"as":    "line",
				"in": bson.M{"$let": bson.M{
					"vars": bson.M{"p": bson.M{"$arrayElemAt": bson.A{
						bson.M{"$filter": bson.M{
							"input": "$_products",
							"cond":  bson.M{"$eq": bson.A{"$$this._id", "$$line.productId"}},
						}}, 0,
					}}},
					"in": bson.M{"$mergeObjects": bson.A{"$$line", bson.M{
						"product": bson.M{"$cond": bson.A{
							bson.M{"$ifNull": bson.A{"$$p", false}},
							bson.M{"_id": "$$p._id", "name": "$$p.name", "images": "$$p.images"},
							"$$REMOVE",
						}},
					}}},
				}},
			}},
		}}},
		{{Key: "$project", Value: bson.M{"_products": 0}}},
	}
}

func (r *OrderRepo) FindDelivered(ctx context.Context, orderID, userID, productID primitive.ObjectID) (*models.Order, error) {
	var o models.Order
	err := r.coll.FindOne(ctx, bson.M{
		"_id":                       orderID,
		"userId":                    userID,
		"status":                    models.StatusDelivered,
		"confirmed":                 true,
		"productsOrdered.productId": productID,
	}).Decode(&o)
	if err != nil {
		return nil, mapErr(err)
	}
	return &o, nil
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, from models.OrderStatus, change models.StatusChange) (*models.Order, error) {
	change.ChangedAt = now()
	var o models.Order
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "confirmed": true, "status": from},
		bson.M{
			"$set":  bson.M{"status": change.Status, "updatedAt": change.ChangedAt},
			"$push": bson.M{"statusHistory": change},
		},
		returnAfter(),
	).Decode(&o)
	if err != nil {
		if mapErr(err) == ErrNotFound {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("orders: update status: %w", err)
	}
	return &o, nil
}

func (r *OrderRepo) FindDrafts(ctx context.Context, before time.Time) ([]models.Order, error) {
	out, err := findAll[models.Order](ctx, r.coll,
		bson.M{"confirmed": false, "createdAt": bson.M{"$lt": before}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}).SetLimit(500),
	)
	if err != nil {
		return nil, fmt.Errorf("orders: find drafts: %w", err)
	}
	return out, nil
}
