package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shashiranjanraj/storefront/app/models"
)

// LowStockThreshold is the variant quantity at or below which a variant is
// reported as low stock.
const LowStockThreshold = 5

// DashboardRepo runs the admin aggregations.
type DashboardRepo struct {
	orders   *mongo.Collection
	products *mongo.Collection
	users    *mongo.Collection
}

func NewDashboardRepo(db *mongo.Database) *DashboardRepo {
	return &DashboardRepo{
		orders:   db.Collection(OrdersCollection),
		products: db.Collection(ProductsCollection),
		users:    db.Collection(UsersCollection),
	}
}

var notCancelled = bson.M{"confirmed": true, "status": bson.M{"$ne": models.StatusCancelled}}

func (r *DashboardRepo) Stats(ctx context.Context, since time.Time) (*models.DashboardStats, error) {
	s := &models.DashboardStats{OrdersByStatus: map[string]int64{}}

	var err error
	if s.TotalOrders, err = r.orders.CountDocuments(ctx, bson.M{"confirmed": true}); err != nil {
		return nil, fmt.Errorf("dashboard: count orders: %w", err)
	}
	if s.TotalUsers, err = r.users.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, fmt.Errorf("dashboard: count users: %w", err)
	}
	if s.TotalProducts, err = r.products.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, fmt.Errorf("dashboard: count products: %w", err)
	}

	steps := []struct {
		name string
		run  func(context.Context, *models.DashboardStats) error
	}{
		{"revenue", r.revenue},
		{"status", r.byStatus},
		{"low stock", r.lowStock},
		{"top products", r.topProducts},
		{"daily sales", func(ctx context.Context, s *models.DashboardStats) error { return r.dailySales(ctx, s, since) }},
		{"recent orders", r.recent},
	}
	for _, st := range steps {
		if err := st.run(ctx, s); err != nil {
			return nil, fmt.Errorf("dashboard: %s: %w", st.name, err)
		}
	}
	return s, nil
}

func aggregate[T any](ctx context.Context, coll *mongo.Collection, pipeline mongo.Pipeline) ([]T, error) {
	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *DashboardRepo) revenue(ctx context.Context, s *models.DashboardStats) error {
	rows, err := aggregate[struct {
		Total float64 `bson:"total"`
	}](ctx, r.orders, mongo.Pipeline{
		{{Key: "$match", Value: notCancelled}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$totalPrice"}}}},
	})
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		s.TotalRevenue = models.Round2(rows[0].Total)
	}
	return nil
}

func (r *DashboardRepo) byStatus(ctx context.Context, s *models.DashboardStats) error {
	rows, err := aggregate[struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}](ctx, r.orders, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"confirmed": true}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return err
	}
	for _, st := range models.Statuses {
		s.OrdersByStatus[string(st)] = 0
	}
	for _, row := range rows {
		s.OrdersByStatus[row.Status] = row.Count
	}
	return nil
}

func (r *DashboardRepo) lowStock(ctx context.Context, s *models.DashboardStats) (err error) {
	s.LowStock, err = aggregate[models.LowStockItem](ctx, r.products, mongo.Pipeline{
		{{Key: "$unwind", Value: "$variants"}},
		{{Key: "$match", Value: bson.M{"variants.quantity": bson.M{"$lte": LowStockThreshold}}}},
		{{Key: "$project", Value: bson.M{
			"_id":       0,
			"productId": "$_id",
			"name":      1,
			"size":      "$variants.size",
			"color":     "$variants.color",
			"quantity":  "$variants.quantity",
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "quantity", Value: 1}}}},
		{{Key: "$limit", Value: 20}},
	})
	return err
}

func (r *DashboardRepo) topProducts(ctx context.Context, s *models.DashboardStats) (err error) {
	s.TopProducts, err = aggregate[models.TopProduct](ctx, r.orders, mongo.Pipeline{
		{{Key: "$match", Value: notCancelled}},
		{{Key: "$unwind", Value: "$productsOrdered"}},
		{{Key: "$group", Value: bson.M{
			"_id":     "$productsOrdered.productId",
			"name":    bson.M{"$first": "$productsOrdered.name"},
			"units":   bson.M{"$sum": "$productsOrdered.quantity"},
			"revenue": bson.M{"$sum": "$productsOrdered.subtotal"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "units", Value: -1}}}},
		{{Key: "$limit", Value: 5}},
	})
	return err
}

func (r *DashboardRepo) dailySales(ctx context.Context, s *models.DashboardStats, since time.Time) (err error) {
	match := bson.M{"confirmed": true, "status": bson.M{"$ne": models.StatusCancelled}, "createdAt": bson.M{"$gte": since}}
	s.DailySales, err = aggregate[models.DailySales](ctx, r.orders, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":     bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$createdAt"}},
			"orders":  bson.M{"$sum": 1},
			"revenue": bson.M{"$sum": "$totalPrice"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	})
	return err
}

func (r *DashboardRepo) recent(ctx context.Context, s *models.DashboardStats) (err error) {
	s.RecentOrders, err = findAll[models.Order](ctx, r.orders, bson.M{"confirmed": true},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(5))
	return err
}
