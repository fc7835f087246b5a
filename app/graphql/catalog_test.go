package graphql_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	catalog "github.com/shashiranjanraj/storefront/app/graphql"
	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/apperr"
	gql "github.com/shashiranjanraj/storefront/pkg/graphql"
)

type fakeCatalog struct {
	products []models.Product
	last     repositories.ProductFilter
}

func (f *fakeCatalog) List(_ context.Context, flt repositories.ProductFilter) (*services.ProductPage, error) {
	f.last = flt
	return &services.ProductPage{Items: f.products, Total: int64(len(f.products))}, nil
}

func (f *fakeCatalog) Get(_ context.Context, id primitive.ObjectID, _ bool) (*models.Product, error) {
	for i := range f.products {
		if f.products[i].ID == id {
			return &f.products[i], nil
		}
	}
	return nil, apperr.NotFound("Product not found")
}

type fakeReviews struct{}

func (fakeReviews) ListProductReviews(context.Context, primitive.ObjectID) (*services.ProductReviews, error) {
	return &services.ProductReviews{
		Count:         1,
		AverageRating: 4,
		Reviews:       []models.Review{{ID: primitive.NewObjectID(), Username: "Anonymous", Rating: 4, Comment: "nice"}},
	}, nil
}

func serve(t *testing.T, c *fakeCatalog, query string) map[string]any {
	t.Helper()
	schema, err := catalog.NewSchema(c, fakeReviews{})
	require.NoError(t, err)

	body, _ := json.Marshal(gql.Request{Query: query})
	rec := httptest.NewRecorder()
	gql.Handler(schema).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestProductsQuery(t *testing.T) {
	id := primitive.NewObjectID()
	c := &fakeCatalog{products: []models.Product{{
		ID:        id,
		Name:      "Tee",
		Variants:  []models.Variant{{Size: "M", Price: 12.5, Quantity: 3}},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}}

	out := serve(t, c, `{ products(featured: true, q: "tee", limit: 5) { total items { id name createdAt variants { size price } } } }`)
	require.Nil(t, out["errors"])

	page := out["data"].(map[string]any)["products"].(map[string]any)
	assert.EqualValues(t, 1, page["total"])
	item := page["items"].([]any)[0].(map[string]any)
	assert.Equal(t, id.Hex(), item["id"])
	assert.Equal(t, "2026-01-02T03:04:05Z", item["createdAt"])
	assert.Equal(t, 12.5, item["variants"].([]any)[0].(map[string]any)["price"])

	assert.Equal(t, "tee", c.last.Query)
	assert.Equal(t, 5, c.last.Limit)
	require.NotNil(t, c.last.Featured)
	assert.True(t, *c.last.Featured)
}

func TestProductQueryWithReviews(t *testing.T) {
	id := primitive.NewObjectID()
	c := &fakeCatalog{products: []models.Product{{ID: id, Name: "Mug"}}}

	out := serve(t, c, `{ product(id: "`+id.Hex()+`") { name reviews { count averageRating reviews { username rating } } } }`)
	require.Nil(t, out["errors"])
	p := out["data"].(map[string]any)["product"].(map[string]any)
	assert.Equal(t, "Mug", p["name"])
	reviews := p["reviews"].(map[string]any)
	assert.EqualValues(t, 1, reviews["count"])
	assert.Equal(t, "Anonymous", reviews["reviews"].([]any)[0].(map[string]any)["username"])

	missing := serve(t, c, `{ product(id: "`+primitive.NewObjectID().Hex()+`") { name } }`)
	assert.Nil(t, missing["data"].(map[string]any)["product"])

	bad := serve(t, c, `{ product(id: "nope") { name } }`)
	assert.NotNil(t, bad["errors"])
}

func TestHandlerRejectsEmptyQuery(t *testing.T) {
	schema, err := catalog.NewSchema(&fakeCatalog{}, fakeReviews{})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	gql.Handler(schema).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graphql", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	gql.Handler(schema).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graphql?query="+url.QueryEscape("{ products { total } }"), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
