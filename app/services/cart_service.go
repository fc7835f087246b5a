package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/apperr"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
)

// CartService mutates the per-user cart. Every write is a version checked
// read-modify-write, retried on conflict.
type CartService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
}

func NewCartService(carts repositories.CartRepository, products repositories.ProductRepository) *CartService {
	return &CartService{carts: carts, products: products}
}

// GetCart returns the user's cart, or an empty one.
func (s *CartService) GetCart(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	c, err := s.carts.FindByUser(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.NewCart(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cart: load: %w", err)
	}
	return c, nil
}

func (s *CartService) AddToCart(ctx context.Context, userID, productID primitive.ObjectID, size, color string, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, apperr.BadRequest("Quantity must be at least 1")
	}
	product, variant, err := s.variant(ctx, productID, size, color)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, apperr.BadRequest("Product is not available")
	}

	return s.mutate(ctx, userID, "add", true, func(c *models.Cart) error {
		i := c.Find(productID, size, color)
		total := quantity
		if i >= 0 {
			total += c.CartItems[i].Quantity
		}
		if total > variant.Quantity {
			return apperr.BadRequest("Only %d left in stock", variant.Quantity)
		}

		line := models.CartItem{
			ProductID: productID,
			Variant:   models.CartVariant{Size: size, Color: color, Price: variant.Price},
			Quantity:  total,
			Subtotal:  models.LineTotal(variant.Price, total),
		}
		if i >= 0 {
			c.CartItems[i] = line
		} else {
			c.CartItems = append(c.CartItems, line)
		}
		return nil
	})
}

func (s *CartService) UpdateCartQuantity(ctx context.Context, userID, productID primitive.ObjectID, size, color string, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, apperr.BadRequest("Quantity must be at least 1")
	}
	_, variant, err := s.variant(ctx, productID, size, color)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, userID, "update", false, func(c *models.Cart) error {
		i := c.Find(productID, size, color)
		if i < 0 {
			return apperr.NotFound("Item not found in cart")
		}
		if quantity > variant.Quantity {
			return apperr.BadRequest("Only %d left in stock", variant.Quantity)
		}
		c.CartItems[i].Variant.Price = variant.Price
		c.CartItems[i].Quantity = quantity
		c.CartItems[i].Subtotal = models.LineTotal(variant.Price, quantity)
		return nil
	})
}

func (s *CartService) RemoveCartItem(ctx context.Context, userID, productID primitive.ObjectID, size, color string) (*models.Cart, error) {
	return s.mutate(ctx, userID, "remove", false, func(c *models.Cart) error {
		i := c.Find(productID, size, color)
		if i < 0 {
			return apperr.NotFound("Item not found in cart")
		}
		c.Remove(i)
		return nil
	})
}

func (s *CartService) ClearCart(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	c, err := s.mutate(ctx, userID, "clear", false, func(c *models.Cart) error {
		c.Clear()
		return nil
	})
	if apperr.Is(err, http.StatusNotFound) {
		return models.NewCart(userID), nil
	}
	return c, err
}

func (s *CartService) variant(ctx context.Context, productID primitive.ObjectID, size, color string) (*models.Product, *models.Variant, error) {
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, nil, notFound(err, "Product not found", "cart: load product")
	}
	v, ok := p.Variant(size, color)
	if !ok {
		return nil, nil, apperr.NotFound("Variant not found")
	}
	return p, v, nil
}

// mutate loads the cart, applies fn, restores the total and saves with a
// version check. A cart that does not exist is created when create is set
// and is a 404 otherwise.
func (s *CartService) mutate(ctx context.Context, userID primitive.ObjectID, op string, create bool, fn func(*models.Cart) error) (*models.Cart, error) {
	for attempt := 1; attempt <= maxRetries; attempt++ {
		c, err := s.carts.FindByUser(ctx, userID)
		switch {
		case errors.Is(err, repositories.ErrNotFound) && create:
			c = models.NewCart(userID)
		case errors.Is(err, repositories.ErrNotFound):
			return nil, apperr.NotFound("Cart not found")
		case err != nil:
			return nil, fmt.Errorf("cart: load: %w", err)
		}

		if err := fn(c); err != nil {
			return nil, err
		}
		c.Recalculate()

		err = s.carts.Save(ctx, c)
		if errors.Is(err, repositories.ErrConflict) {
			metrics.CartConflicts.Inc()
			logger.WithCtx(ctx).Debug("cart: version conflict, retrying", "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cart: save: %w", err)
		}
		metrics.CartMutations.WithLabelValues(op).Inc()
		return c, nil
	}
	return nil, apperr.Conflict("Cart was modified concurrently, please retry")
}
