package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// DashboardStats is the admin overview.
type DashboardStats struct {
	TotalOrders    int64            `json:"totalOrders"`
	TotalRevenue   float64          `json:"totalRevenue"`
	OrdersByStatus map[string]int64 `json:"ordersByStatus"`
	TotalUsers     int64            `json:"totalUsers"`
	TotalProducts  int64            `json:"totalProducts"`
	LowStock       []LowStockItem   `json:"lowStock"`
	TopProducts    []TopProduct     `json:"topProducts"`
	DailySales     []DailySales     `json:"dailySales"`
	RecentOrders   []Order          `json:"recentOrders"`
}

type LowStockItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Name      string             `bson:"name"      json:"name"`
	Size      string             `bson:"size"      json:"size,omitempty"`
	Color     string             `bson:"color"     json:"color,omitempty"`
	Quantity  int                `bson:"quantity"  json:"quantity"`
}

type TopProduct struct {
	ProductID primitive.ObjectID `bson:"_id"      json:"productId"`
	Name      string             `bson:"name"     json:"name"`
	UnitsSold int                `bson:"units"    json:"unitsSold"`
	Revenue   float64            `bson:"revenue"  json:"revenue"`
}

type DailySales struct {
	Date    string  `bson:"_id"     json:"date"`
	Orders  int     `bson:"orders"  json:"orders"`
	Revenue float64 `bson:"revenue" json:"revenue"`
}
