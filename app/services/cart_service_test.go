package services_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/apperr"
)

type cartFixture struct {
	carts    *fakeCarts
	products *fakeProducts
	svc      *services.CartService
	user     primitive.ObjectID
	product  primitive.ObjectID
}

// newCartFixture stocks product P with variant {M, Red, 100, stock 10}.
func newCartFixture() *cartFixture {
	f := &cartFixture{carts: newFakeCarts(), products: newFakeProducts(), user: primitive.NewObjectID()}
	f.product = f.products.add(models.Product{
		Name:     "P",
		IsActive: true,
		Variants: []models.Variant{
			{Size: "M", Color: "Red", Price: 100, Quantity: 10},
			{Size: "L", Color: "Red", Price: 19.99, Quantity: 3},
		},
	})
	f.svc = services.NewCartService(f.carts, f.products)
	return f
}

func assertTotal(t *testing.T, c *models.Cart) {
	t.Helper()
	subs := make([]float64, len(c.CartItems))
	for i, it := range c.CartItems {
		subs[i] = it.Subtotal
	}
	assert.Equal(t, models.Sum(subs...), c.TotalPrice)
}

func TestCartExampleScenario(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture()

	c, err := f.svc.AddToCart(ctx, f.user, f.product, "M", "Red", 2)
	require.NoError(t, err)
	require.Len(t, c.CartItems, 1)
	assert.Equal(t, 200.0, c.CartItems[0].Subtotal)
	assert.Equal(t, 200.0, c.TotalPrice)

	_, err = f.svc.UpdateCartQuantity(ctx, f.user, f.product, "M", "Red", 15)
	assert.True(t, apperr.Is(err, http.StatusBadRequest))

	stored := f.carts.get(f.user)
	assert.Equal(t, 2, stored.CartItems[0].Quantity)
	assert.Equal(t, 200.0, stored.TotalPrice)
}

func TestAddToCartMergesLines(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture()

	_, err := f.svc.AddToCart(ctx, f.user, f.product, "M", "Red", 2)
	require.NoError(t, err)
	_, err = f.svc.AddToCart(ctx, f.user, f.product, "L", "Red", 3)
	require.NoError(t, err)
	c, err := f.svc.AddToCart(ctx, f.user, f.product, "M", "Red", 1)
	require.NoError(t, err)

	require.Len(t, c.CartItems, 2)
	assert.Equal(t, 3, c.CartItems[0].Quantity)
	assert.Equal(t, 300.0, c.CartItems[0].Subtotal)
	assert.Equal(t, 59.97, c.CartItems[1].Subtotal)
	assert.Equal(t, 359.97, c.TotalPrice)
	assertTotal(t, c)
}

func TestAddToCartRejections(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture()
	archived := f.products.add(models.Product{Name: "Old", Variants: []models.Variant{{Size: "S", Price: 5, Quantity: 5}}})

	cases := []struct {
		name        string
		product     primitive.ObjectID
		size, color string
		qty         int
		status      int
	}{
		{"over stock", f.product, "M", "Red", 11, http.StatusBadRequest},
		{"zero quantity", f.product, "M", "Red", 0, http.StatusBadRequest},
		{"missing variant", f.product, "XL", "Red", 1, http.StatusNotFound},
		{"missing product", primitive.NewObjectID(), "M", "Red", 1, http.StatusNotFound},
		{"archived product", archived, "S", "", 1, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.AddToCart(ctx, f.user, tc.product, tc.size, tc.color, tc.qty)
			assert.True(t, apperr.Is(err, tc.status), "got %v", err)
		})
	}
	assert.Nil(t, f.carts.get(f.user))
}

func TestAddToCartCountsExistingQuantityAgainstStock(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture()

	_, err := f.svc.AddToCart(ctx, f.user, f.product, "L", "Red", 2)
	require.NoError(t, err)
	_, err = f.svc.AddToCart(ctx, f.user, f.product, "L", "Red", 2)
	assert.True(t, apperr.Is(err, http.StatusBadRequest))
}

func TestUpdateAndRemove(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture()

	_, err := f.svc.UpdateCartQuantity(ctx, f.user, f.product, "M", "Red", 1)
	assert.True(t, apperr.Is(err, http.StatusNotFound), "no cart yet")

	_, err = f.svc.AddToCart(ctx, f.user, f.product, "M", "Red", 2)
	require.NoError(t, err)
	_, err = f.svc.AddToCart(ctx, f.user, f.product, "L", "Red", 1)
	require.NoError(t, err)

	c, err := f.svc.UpdateCartQuantity(ctx, f.user, f.product, "M", "Red", 5)
	require.NoError(t, err)
	assert.Equal(t, 500.0, c.CartItems[0].Subtotal)
	assertTotal(t, c)

	_, err = f.svc.UpdateCartQuantity(ctx, f.user, f.product, "L", "Blue", 1)
	assert.True(t, apperr.Is(err, http.StatusNotFound))

	c, err = f.svc.RemoveCartItem(ctx, f.user, f.product, "M", "Red")
	require.NoError(t, err)
	require.Len(t, c.CartItems, 1)
	assert.Equal(t, 19.99, c.TotalPrice)

	_, err = f.svc.RemoveCartItem(ctx, f.user, f.product, "M", "Red")
	assert.True(t, apperr.Is(err, http.StatusNotFound))

	c, err = f.svc.ClearCart(ctx, f.user)
	require.NoError(t, err)
	assert.Empty(t, c.CartItems)
	assert.Zero(t, c.TotalPrice)
}

func TestClearCartWithoutCart(t *testing.T) {
	f := newCartFixture()
	c, err := f.svc.ClearCart(context.Background(), f.user)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestCartRetriesOnVersionConflict(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture()

	f.carts.conflicts = 2
	c, err := f.svc.AddToCart(ctx, f.user, f.product, "M", "Red", 1)
	require.NoError(t, err)
	assert.Equal(t, 100.0, c.TotalPrice)

	f.carts.conflicts = 100
	_, err = f.svc.AddToCart(ctx, f.user, f.product, "M", "Red", 1)
	assert.True(t, apperr.Is(err, http.StatusConflict))
	assert.Equal(t, 1, f.carts.get(f.user).CartItems[0].Quantity)
}

func TestGetCartReturnsEmptyCart(t *testing.T) {
	f := newCartFixture()
	c, err := f.svc.GetCart(context.Background(), f.user)
	require.NoError(t, err)
	assert.Equal(t, f.user, c.UserID)
	assert.Empty(t, c.CartItems)
}
