package seeders

import (
	"context"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
)

func init() {
	Register("catalog", SeedCatalog)
}

var sampleCatalog = []models.Product{
	{
		Name:        "Classic Tee",
		Description: "Heavyweight cotton t-shirt.",
		Variants: []models.Variant{
			{Size: "S", Color: "Black", Price: 19.99, Quantity: 25},
			{Size: "M", Color: "Black", Price: 19.99, Quantity: 40},
			{Size: "M", Color: "Red", Price: 19.99, Quantity: 10},
			{Size: "L", Color: "White", Price: 21.50, Quantity: 15},
		},
		IsFeatured: true,
	},
	{
		Name:        "Canvas Tote",
		Description: "Everyday tote bag.",
		Variants:    []models.Variant{{Color: "Natural", Price: 14, Quantity: 60}},
	},
	{
		Name:        "Wool Beanie",
		Description: "Ribbed merino beanie.",
		Variants: []models.Variant{
			{Size: "One", Color: "Grey", Price: 24, Quantity: 4},
			{Size: "One", Color: "Navy", Price: 24, Quantity: 12},
		},
		IsFeatured: true,
	},
}

// SeedCatalog inserts the sample products into an empty catalog.
func SeedCatalog(ctx context.Context, d Deps) error {
	_, total, err := d.Products.Find(ctx, repositories.ProductFilter{Page: 1, Limit: 1})
	if err != nil || total > 0 {
		return err
	}
	for _, p := range sampleCatalog {
		p.IsActive = true
		p.Images = []string{}
		p.Variants = append([]models.Variant(nil), p.Variants...)
		if err := d.Products.Create(ctx, &p); err != nil {
			return err
		}
	}
	return nil
}
