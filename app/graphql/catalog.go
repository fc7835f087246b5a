// Package graphql exposes the public catalog as a read-only GraphQL schema:
//
//	{ products(featured: true, limit: 5) { total items { id name variants { size price } } } }
//	{ product(id: "...") { name reviews { averageRating count } } }
package graphql

import (
	"context"
	"net/http"
	"time"

	"github.com/graphql-go/graphql"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/apperr"
	gql "github.com/shashiranjanraj/storefront/pkg/graphql"
)

// Catalog is the product read side. *services.ProductService implements it.
type Catalog interface {
	List(ctx context.Context, f repositories.ProductFilter) (*services.ProductPage, error)
	Get(ctx context.Context, id primitive.ObjectID, admin bool) (*models.Product, error)
}

// Reviews is the review read side. *services.ReviewService implements it.
type Reviews interface {
	ListProductReviews(ctx context.Context, productID primitive.ObjectID) (*services.ProductReviews, error)
}

// NewSchema builds the catalog schema. Archived products and hidden
// reviews are never visible through it.
func NewSchema(catalog Catalog, reviews Reviews) (graphql.Schema, error) {
	variantType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Variant",
		Fields: graphql.Fields{
			"size":     &graphql.Field{Type: graphql.String},
			"color":    &graphql.Field{Type: graphql.String},
			"price":    &graphql.Field{Type: graphql.Float},
			"quantity": &graphql.Field{Type: graphql.Int},
		},
	})

	replyType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Reply",
		Fields: graphql.Fields{
			"text":      &graphql.Field{Type: graphql.String},
			"repliedAt": &graphql.Field{Type: graphql.String, Resolve: timeField(func(s any) time.Time { return s.(*models.Reply).RepliedAt })},
		},
	})

	reviewType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Review",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.ID, Resolve: func(p graphql.ResolveParams) (any, error) { return p.Source.(models.Review).ID.Hex(), nil }},
			"username":        &graphql.Field{Type: graphql.String},
			"rating":          &graphql.Field{Type: graphql.Int},
			"comment":         &graphql.Field{Type: graphql.String},
			"images":          &graphql.Field{Type: graphql.NewList(graphql.String)},
			"tags":            &graphql.Field{Type: graphql.NewList(graphql.String)},
			"helpfulVotes":    &graphql.Field{Type: graphql.Int},
			"notHelpfulVotes": &graphql.Field{Type: graphql.Int},
			"reply":           &graphql.Field{Type: replyType},
			"createdAt":       &graphql.Field{Type: graphql.String, Resolve: timeField(func(s any) time.Time { return s.(models.Review).CreatedAt })},
		},
	})

	summaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ReviewSummary",
		Fields: graphql.Fields{
			"count":         &graphql.Field{Type: graphql.Int},
			"averageRating": &graphql.Field{Type: graphql.Float},
			"reviews":       &graphql.Field{Type: graphql.NewList(reviewType)},
		},
	})

	loadReviews := func(ctx context.Context, id primitive.ObjectID) (any, error) {
		return reviews.ListProductReviews(ctx, id)
	}

	productType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Product",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.ID, Resolve: func(p graphql.ResolveParams) (any, error) { return product(p.Source).ID.Hex(), nil }},
			"name":        &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"images":      &graphql.Field{Type: graphql.NewList(graphql.String)},
			"variants":    &graphql.Field{Type: graphql.NewList(variantType)},
			"isFeatured":  &graphql.Field{Type: graphql.Boolean},
			"createdAt":   &graphql.Field{Type: graphql.String, Resolve: timeField(func(s any) time.Time { return product(s).CreatedAt })},
			"reviews": &graphql.Field{
				Type: summaryType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return loadReviews(p.Context, product(p.Source).ID)
				},
			},
		},
	})

	pageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ProductPage",
		Fields: graphql.Fields{
			"items": &graphql.Field{Type: graphql.NewList(productType)},
			"total": &graphql.Field{Type: graphql.Int},
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"products": &graphql.Field{
				Type: pageType,
				Args: graphql.FieldConfigArgument{
					"featured": &graphql.ArgumentConfig{Type: graphql.Boolean},
					"q":        &graphql.ArgumentConfig{Type: graphql.String},
					"page":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
					"limit":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					f := repositories.ProductFilter{Page: p.Args["page"].(int), Limit: p.Args["limit"].(int)}
					if v, ok := p.Args["featured"].(bool); ok {
						f.Featured = &v
					}
					if v, ok := p.Args["q"].(string); ok {
						f.Query = v
					}
					return catalog.List(p.Context, f)
				},
			},
			"product": &graphql.Field{
				Type: productType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, err := services.ParseID(p.Args["id"].(string), "product")
					if err != nil {
						return nil, err
					}
					pr, err := catalog.Get(p.Context, id, false)
					if apperr.Is(err, http.StatusNotFound) {
						return nil, nil
					}
					return pr, err
				},
			},
			"productReviews": &graphql.Field{
				Type: summaryType,
				Args: graphql.FieldConfigArgument{
					"productId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, err := services.ParseID(p.Args["productId"].(string), "product")
					if err != nil {
						return nil, err
					}
					return loadReviews(p.Context, id)
				},
			},
		},
	})

	return gql.NewSchema(query)
}

// product accepts both shapes graphql-go hands to nested resolvers.
func product(src any) *models.Product {
	switch p := src.(type) {
	case *models.Product:
		return p
	case models.Product:
		return &p
	}
	return &models.Product{}
}

func timeField(get func(src any) time.Time) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		t := get(p.Source)
		if t.IsZero() {
			return nil, nil
		}
		return t.UTC().Format(time.RFC3339), nil
	}
}
