package repositories

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shashiranjanraj/storefront/app/models"
)

// ProductRepo stores products.
type ProductRepo struct {
	coll *mongo.Collection
}

func NewProductRepo(db *mongo.Database) *ProductRepo {
	return &ProductRepo{coll: db.Collection(ProductsCollection)}
}

func (r *ProductRepo) Create(ctx context.Context, p *models.Product) error {
	t := now()
	p.CreatedAt, p.UpdatedAt = t, t
	if p.Images == nil {
		p.Images = []string{}
	}
	res, err := r.coll.InsertOne(ctx, p)
	if err != nil {
		return fmt.Errorf("products: insert: %w", mapErr(err))
	}
	p.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *ProductRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var p models.Product
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *ProductRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	return findAll[models.Product](ctx, r.coll, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *ProductRepo) Find(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	filter := bson.M{}
	if f.ActiveOnly {
		filter["isActive"] = true
	}
	if f.Featured != nil {
		filter["isFeatured"] = *f.Featured
	}
	if f.Query != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Query), Options: "i"}
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("products: count: %w", err)
	}
	skip, limit := paging(f.Page, f.Limit)
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	items, err := findAll[models.Product](ctx, r.coll, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("products: find: %w", err)
	}
	return items, total, nil
}

func (r *ProductRepo) All(ctx context.Context) ([]models.Product, error) {
	return findAll[models.Product](ctx, r.coll, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (r *ProductRepo) Replace(ctx context.Context, p *models.Product) error {
	p.UpdatedAt = now()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return fmt.Errorf("products: replace: %w", mapErr(err))
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetFlag sets isActive or isFeatured.
func (r *ProductRepo) SetFlag(ctx context.Context, id primitive.ObjectID, field string, value bool) (*models.Product, error) {
	if field != "isActive" && field != "isFeatured" {
		return nil, fmt.Errorf("products: unknown flag %q", field)
	}
	return r.update(ctx, id, bson.M{"$set": bson.M{field: value, "updatedAt": now()}})
}

func (r *ProductRepo) AddImages(ctx context.Context, id primitive.ObjectID, urls []string) (*models.Product, error) {
	return r.update(ctx, id, bson.M{
		"$push": bson.M{"images": bson.M{"$each": urls}},
		"$set":  bson.M{"updatedAt": now()},
	})
}

func (r *ProductRepo) update(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.Product, error) {
	var p models.Product
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, returnAfter()).Decode(&p); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *ProductRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("products: delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
