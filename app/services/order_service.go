package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/jobs"
	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/apperr"
	"github.com/shashiranjanraj/storefront/pkg/event"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/mail"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
)

// OrderService turns carts into orders and drives the status lifecycle.
//
// Checkout is two-phase: the order is inserted unconfirmed, the cart is
// cleared with a version check and stamped with the order id, then the
// order is confirmed. ReconcileDrafts settles drafts left behind by a crash
// between those steps.
type OrderService struct {
	orders   repositories.OrderRepository
	carts    repositories.CartRepository
	products repositories.ProductRepository
	delivery repositories.DeliveryRepository
	users    repositories.UserRepository
	tx       Transactor
	events   event.Publisher
	jobs     JobDispatcher
}

// OrderDeps lists the collaborators of OrderService.
type OrderDeps struct {
	Orders   repositories.OrderRepository
	Carts    repositories.CartRepository
	Products repositories.ProductRepository
	Delivery repositories.DeliveryRepository
	Users    repositories.UserRepository
	Tx       Transactor
	Events   event.Publisher
	Jobs     JobDispatcher
}

func NewOrderService(d OrderDeps) *OrderService {
	if d.Tx == nil {
		d.Tx = NoTx{}
	}
	if d.Events == nil {
		d.Events = event.Nop{}
	}
	return &OrderService{
		orders:   d.Orders,
		carts:    d.Carts,
		products: d.Products,
		delivery: d.Delivery,
		users:    d.Users,
		tx:       d.Tx,
		events:   d.Events,
		jobs:     d.Jobs,
	}
}

// ─── Checkout ─────────────────────────────────────────────────────────────────

// CreateOrder checks out the user's cart. The cart is untouched on failure.
func (s *OrderService) CreateOrder(ctx context.Context, userID primitive.ObjectID) (*models.Order, error) {
	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("orders: load cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, apperr.NotFound("Cart is empty")
	}

	lines, err := s.snapshot(ctx, cart)
	if err != nil {
		return nil, err
	}
	subs := make([]float64, len(lines))
	for i, l := range lines {
		subs[i] = l.Subtotal
	}

	o := &models.Order{
		UserID:          userID,
		ProductsOrdered: lines,
		TotalPrice:      models.Sum(subs...),
		Status:          models.StatusPending,
		StatusHistory:   []models.StatusChange{{Status: models.StatusPending, ChangedAt: time.Now().UTC(), ChangedBy: &userID}},
	}
	if d, err := s.delivery.FindByUser(ctx, userID); err == nil {
		o.DeliveryDetails = d
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("orders: load delivery details: %w", err)
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o.ID = primitive.NilObjectID
		if err := s.orders.Create(ctx, o); err != nil {
			return fmt.Errorf("orders: create draft: %w", err)
		}

		if err := s.carts.ClearForOrder(ctx, cart, o.ID); err != nil {
			if derr := s.orders.Delete(ctx, o.ID); derr != nil {
				logger.WithCtx(ctx).Error("orders: drop draft", "order_id", o.ID.Hex(), "error", derr)
			}
			if errors.Is(err, repositories.ErrConflict) {
				return apperr.Conflict("Cart changed during checkout, please review it and retry")
			}
			return fmt.Errorf("orders: clear cart: %w", err)
		}

		if err := s.orders.Confirm(ctx, o.ID); err != nil {
			// The cart already points at the order; reconciliation confirms it.
			logger.WithCtx(ctx).Warn("orders: confirm deferred to reconciliation", "order_id", o.ID.Hex(), "error", err)
			return nil
		}
		o.Confirmed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	logger.WithCtx(ctx).Info("order placed", "order_id", o.ID.Hex(), "total", o.TotalPrice)
	s.events.Publish(ctx, event.NewOrder, o)
	s.notify(ctx, o, "order_placed", "Order #"+o.ID.Hex()+" received")
	return o, nil
}

// snapshot freezes the cart lines, validating each against the catalog.
func (s *OrderService) snapshot(ctx context.Context, cart *models.Cart) ([]models.OrderLine, error) {
	ids := make([]primitive.ObjectID, 0, len(cart.CartItems))
	for _, it := range cart.CartItems {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("orders: load products: %w", err)
	}
	names := make(map[primitive.ObjectID]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}

	lines := make([]models.OrderLine, 0, len(cart.CartItems))
	for _, it := range cart.CartItems {
		name, ok := names[it.ProductID]
		if !ok {
			return nil, apperr.BadRequest("Product %s is no longer available", it.ProductID.Hex())
		}
		if it.Variant.Price <= 0 || it.Quantity <= 0 {
			return nil, apperr.BadRequest("Invalid cart item for %s", name)
		}
		lines = append(lines, models.OrderLine{
			ProductID: it.ProductID,
			Name:      name,
			Size:      it.Variant.Size,
			Color:     it.Variant.Color,
			Price:     it.Variant.Price,
			Quantity:  it.Quantity,
			Subtotal:  models.LineTotal(it.Variant.Price, it.Quantity),
		})
	}
	return lines, nil
}

// ─── Reads ────────────────────────────────────────────────────────────────────

func (s *OrderService) GetOrders(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	out, err := s.orders.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("orders: list: %w", err)
	}
	return out, nil
}

// GetAllOrders lists every order, optionally filtered by status.
func (s *OrderService) GetAllOrders(ctx context.Context, status models.OrderStatus, page, limit int) ([]models.Order, int64, error) {
	if status != "" && !status.Valid() {
		return nil, 0, apperr.BadRequest("Invalid status")
	}
	out, total, err := s.orders.FindAll(ctx, status, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("orders: list all: %w", err)
	}
	return out, total, nil
}

// GetOrder returns one order to its owner or an admin.
func (s *OrderService) GetOrder(ctx context.Context, orderID, requesterID primitive.ObjectID, isAdmin bool) (*models.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "Order not found", "orders: load")
	}
	if !isAdmin && o.UserID != requesterID {
		return nil, apperr.Forbidden("Not authorized to view this order")
	}
	return o, nil
}

// ─── Status ───────────────────────────────────────────────────────────────────

// UpdateOrderStatus overwrites the order's status with any valid one. The
// write is conditional on the status read here; a lost race answers 409.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID primitive.ObjectID, status models.OrderStatus, adminID primitive.ObjectID) (*models.Order, error) {
	if !status.Valid() {
		return nil, apperr.BadRequest("Invalid status")
	}
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "Order not found", "orders: load")
	}
	updated, err := s.orders.UpdateStatus(ctx, orderID, o.Status, models.StatusChange{Status: status, ChangedBy: &adminID})
	if errors.Is(err, repositories.ErrConflict) {
		return nil, apperr.Conflict("Order status changed concurrently, reload and retry")
	}
	if err != nil {
		return nil, fmt.Errorf("orders: update status: %w", err)
	}

	metrics.OrderStatusChanges.WithLabelValues(string(status)).Inc()
	logger.WithCtx(ctx).Info("order status changed", "order_id", orderID.Hex(), "from", o.Status, "to", status)
	s.notify(ctx, updated, "order_status", "Order #"+orderID.Hex()+" is "+string(status))
	return updated, nil
}

// CancelOrder lets the owner cancel while the order is Pending or Processing.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, userID primitive.ObjectID) (*models.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "Order not found", "orders: load")
	}
	if o.UserID != userID {
		return nil, apperr.Forbidden("Not authorized to cancel this order")
	}
	if !o.Status.Cancellable() {
		return nil, apperr.BadRequest("Order can only be cancelled while Pending or Processing")
	}

	updated, err := s.orders.UpdateStatus(ctx, orderID, o.Status, models.StatusChange{Status: models.StatusCancelled, ChangedBy: &userID})
	if errors.Is(err, repositories.ErrConflict) {
		return nil, apperr.BadRequest("Order can only be cancelled while Pending or Processing")
	}
	if err != nil {
		return nil, fmt.Errorf("orders: cancel: %w", err)
	}
	metrics.OrderStatusChanges.WithLabelValues(string(models.StatusCancelled)).Inc()
	s.notify(ctx, updated, "order_status", "Order #"+orderID.Hex()+" cancelled")
	return updated, nil
}

// ─── Reconciliation ───────────────────────────────────────────────────────────

// ReconcileResult counts what ReconcileDrafts did.
type ReconcileResult struct {
	Confirmed int `json:"confirmed"`
	Deleted   int `json:"deleted"`
}

// ReconcileDrafts settles checkout drafts older than olderThan: a draft
// whose cart was cleared for it is confirmed, any other draft is deleted.
func (s *OrderService) ReconcileDrafts(ctx context.Context, olderThan time.Duration) (ReconcileResult, error) {
	var res ReconcileResult
	drafts, err := s.orders.FindDrafts(ctx, time.Now().UTC().Add(-olderThan))
	if err != nil {
		return res, fmt.Errorf("orders: reconcile: %w", err)
	}

	log := logger.WithCtx(ctx)
	for _, d := range drafts {
		cleared, err := s.carts.HasLastOrder(ctx, d.UserID, d.ID)
		if err != nil {
			return res, fmt.Errorf("orders: reconcile %s: %w", d.ID.Hex(), err)
		}
		if cleared {
			if err := s.orders.Confirm(ctx, d.ID); err != nil {
				return res, fmt.Errorf("orders: reconcile confirm %s: %w", d.ID.Hex(), err)
			}
			res.Confirmed++
			metrics.DraftsReconciled.WithLabelValues("confirmed").Inc()
			log.Info("draft order confirmed", "order_id", d.ID.Hex())
			continue
		}
		if err := s.orders.Delete(ctx, d.ID); err != nil {
			return res, fmt.Errorf("orders: reconcile delete %s: %w", d.ID.Hex(), err)
		}
		res.Deleted++
		metrics.DraftsReconciled.WithLabelValues("deleted").Inc()
		log.Info("draft order deleted", "order_id", d.ID.Hex())
	}
	return res, nil
}

// ─── Notifications ────────────────────────────────────────────────────────────

// notify queues an email to the order owner. Failures are logged only.
func (s *OrderService) notify(ctx context.Context, o *models.Order, tmpl, subject string) {
	if s.jobs == nil || s.users == nil {
		return
	}
	log := logger.WithCtx(ctx)

	u, err := s.users.FindByID(ctx, o.UserID)
	if err != nil {
		log.Warn("orders: notify: load user", "order_id", o.ID.Hex(), "error", err)
		return
	}
	html, err := mail.Render(tmpl, map[string]any{
		"Username": u.Username,
		"OrderID":  o.ID.Hex(),
		"Status":   o.Status,
		"Total":    o.TotalPrice,
		"Lines":    o.ProductsOrdered,
	})
	if err != nil {
		log.Error("orders: notify: render", "error", err)
		return
	}
	if err := s.jobs.Dispatch(ctx, jobs.NewSendMail(u.Email, subject, html)); err != nil {
		log.Warn("orders: notify: dispatch", "order_id", o.ID.Hex(), "error", err)
	}
}
