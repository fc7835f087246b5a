package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Variant is one purchasable size/color combination of a product.
type Variant struct {
	Size     string  `bson:"size,omitempty"  json:"size,omitempty"  validate:"omitempty,max=20"`
	Color    string  `bson:"color,omitempty" json:"color,omitempty" validate:"omitempty,max=30"`
	Price    float64 `bson:"price"           json:"price"           validate:"gt=0"`
	Quantity int     `bson:"quantity"        json:"quantity"        validate:"gte=0"`
}

// Matches reports whether v is the variant identified by size and color.
func (v Variant) Matches(size, color string) bool {
	return v.Size == size && v.Color == color
}

// Product is a catalog entry.
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name        string             `bson:"name"          json:"name"`
	Description string             `bson:"description"   json:"description"`
	Images      []string           `bson:"images"        json:"images"`
	Variants    []Variant          `bson:"variants"      json:"variants"`
	IsActive    bool               `bson:"isActive"      json:"isActive"`
	IsFeatured  bool               `bson:"isFeatured"    json:"isFeatured"`
	CreatedAt   time.Time          `bson:"createdAt"     json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"     json:"updatedAt"`
}

var (
	ErrNoVariants       = errors.New("a product needs at least one variant")
	ErrVariantUnlabeled = errors.New("each variant needs a size or a color")
	ErrVariantDuplicate = errors.New("variants must have distinct size/color combinations")
)

// Variant returns the variant matching size and color exactly.
func (p *Product) Variant(size, color string) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].Matches(size, color) {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// CheckVariants enforces the rules struct tags cannot express.
func (p *Product) CheckVariants() error {
	if len(p.Variants) == 0 {
		return ErrNoVariants
	}
	seen := make(map[[2]string]bool, len(p.Variants))
	for _, v := range p.Variants {
		if v.Size == "" && v.Color == "" {
			return ErrVariantUnlabeled
		}
		k := [2]string{v.Size, v.Color}
		if seen[k] {
			return ErrVariantDuplicate
		}
		seen[k] = true
	}
	return nil
}

// ProductSummary is the slice of a product joined into orders and wishlists.
type ProductSummary struct {
	ID     primitive.ObjectID `bson:"_id"    json:"_id"`
	Name   string             `bson:"name"   json:"name"`
	Images []string           `bson:"images" json:"images"`
}
