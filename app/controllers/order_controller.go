package controllers

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
)

// OrderService is implemented by *services.OrderService.
type OrderService interface {
	CreateOrder(ctx context.Context, userID primitive.ObjectID) (*models.Order, error)
	GetOrders(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	GetAllOrders(ctx context.Context, status models.OrderStatus, page, limit int) ([]models.Order, int64, error)
	GetOrder(ctx context.Context, orderID, requesterID primitive.ObjectID, isAdmin bool) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID primitive.ObjectID, status models.OrderStatus, adminID primitive.ObjectID) (*models.Order, error)
	CancelOrder(ctx context.Context, orderID, userID primitive.ObjectID) (*models.Order, error)
}

type OrderController struct {
	orders OrderService
}

func NewOrderController(orders OrderService) *OrderController {
	return &OrderController{orders: orders}
}

// Checkout turns the caller's cart into an order.
func (h *OrderController) Checkout(c *ctx.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	o, err := h.orders.CreateOrder(c.Context(), uid)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(o)
}

func (h *OrderController) Mine(c *ctx.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := h.orders.GetOrders(c.Context(), uid)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(list)
}

// All lists every order for admins; ?status= filters.
func (h *OrderController) All(c *ctx.Context) {
	page, limit := paging(c)
	list, total, err := h.orders.GetAllOrders(c.Context(), models.OrderStatus(c.Query("status")), page, limit)
	if err != nil {
		c.Fail(err)
		return
	}
	paginated(c, list, page, limit, total)
}

func (h *OrderController) Show(c *ctx.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "order")
	if !ok {
		return
	}
	o, err := h.orders.GetOrder(c.Context(), id, uid, c.IsAdmin())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(o)
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *OrderController) UpdateStatus(c *ctx.Context) {
	admin, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "order")
	if !ok {
		return
	}
	var in statusRequest
	if !c.BindJSON(&in) {
		return
	}
	o, err := h.orders.UpdateOrderStatus(c.Context(), id, models.OrderStatus(in.Status), admin)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(o)
}

func (h *OrderController) Cancel(c *ctx.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "order")
	if !ok {
		return
	}
	o, err := h.orders.CancelOrder(c.Context(), id, uid)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(o)
}
