package controllers

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
)

// CartService is implemented by *services.CartService.
type CartService interface {
	GetCart(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	AddToCart(ctx context.Context, userID, productID primitive.ObjectID, size, color string, quantity int) (*models.Cart, error)
	UpdateCartQuantity(ctx context.Context, userID, productID primitive.ObjectID, size, color string, quantity int) (*models.Cart, error)
	RemoveCartItem(ctx context.Context, userID, productID primitive.ObjectID, size, color string) (*models.Cart, error)
	ClearCart(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
}

type CartController struct {
	carts CartService
}

func NewCartController(carts CartService) *CartController {
	return &CartController{carts: carts}
}

type cartLineRequest struct {
	ProductID string `json:"productId" validate:"required,len=24,hexadecimal"`
	Size      string `json:"size"      validate:"max=20"`
	Color     string `json:"color"     validate:"max=30"`
	Quantity  int    `json:"quantity"  validate:"required,min=1"`
}

type cartOp func(ctx context.Context, userID, productID primitive.ObjectID, size, color string, quantity int) (*models.Cart, error)

func (h *CartController) Show(c *ctx.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	cart, err := h.carts.GetCart(c.Context(), uid)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(cart)
}

func (h *CartController) Add(c *ctx.Context)    { h.line(c, h.carts.AddToCart) }
func (h *CartController) Update(c *ctx.Context) { h.line(c, h.carts.UpdateCartQuantity) }

func (h *CartController) line(c *ctx.Context, op cartOp) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var in cartLineRequest
	if !c.BindJSON(&in) {
		return
	}
	pid, err := services.ParseID(in.ProductID, "product")
	if err != nil {
		c.Fail(err)
		return
	}
	cart, err := op(c.Context(), uid, pid, in.Size, in.Color, in.Quantity)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(cart)
}

// RemoveItem reads the line from ?productId=&size=&color=.
func (h *CartController) RemoveItem(c *ctx.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	pid, err := services.ParseID(c.Query("productId"), "product")
	if err != nil {
		c.Fail(err)
		return
	}
	cart, err := h.carts.RemoveCartItem(c.Context(), uid, pid, c.Query("size"), c.Query("color"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(cart)
}

func (h *CartController) Clear(c *ctx.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	cart, err := h.carts.ClearCart(c.Context(), uid)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(cart)
}
