package services_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/jobs"
	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/apperr"
	"github.com/shashiranjanraj/storefront/pkg/event"
)

type orderFixture struct {
	*cartFixture
	orders   *fakeOrders
	users    *fakeUsers
	delivery *fakeDelivery
	events   *event.Recorder
	jobs     *fakeJobs
	svc      *services.OrderService
	admin    primitive.ObjectID
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	cf := newCartFixture()
	f := &orderFixture{
		cartFixture: cf,
		orders:      newFakeOrders(),
		users:       newFakeUsers(),
		delivery:    newFakeDelivery(),
		events:      &event.Recorder{},
		jobs:        &fakeJobs{},
		admin:       primitive.NewObjectID(),
	}
	f.users.add(models.User{ID: cf.user, Username: "ana", Email: "ana@example.com", EmailVerified: true})
	f.svc = services.NewOrderService(services.OrderDeps{
		Orders:   f.orders,
		Carts:    f.carts,
		Products: f.products,
		Delivery: f.delivery,
		Users:    f.users,
		Events:   f.events,
		Jobs:     f.jobs,
	})
	return f
}

func (f *orderFixture) checkout(t *testing.T, qty int) *models.Order {
	t.Helper()
	ctx := context.Background()
	_, err := f.cartFixture.svc.AddToCart(ctx, f.user, f.product, "M", "Red", qty)
	require.NoError(t, err)
	o, err := f.svc.CreateOrder(ctx, f.user)
	require.NoError(t, err)
	return o
}

func TestCheckoutExampleScenario(t *testing.T) {
	f := newOrderFixture(t)
	o := f.checkout(t, 2)

	require.Len(t, o.ProductsOrdered, 1)
	line := o.ProductsOrdered[0]
	assert.Equal(t, f.product, line.ProductID)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, 200.0, line.Subtotal)
	assert.Equal(t, "P", line.Name)
	assert.Equal(t, 200.0, o.TotalPrice)
	assert.Equal(t, models.StatusPending, o.Status)
	require.Len(t, o.StatusHistory, 1)

	cart := f.carts.get(f.user)
	assert.Empty(t, cart.CartItems)
	assert.Zero(t, cart.TotalPrice)
	require.NotNil(t, cart.LastOrderID)
	assert.Equal(t, o.ID, *cart.LastOrderID)

	stored, ok := f.orders.raw(o.ID)
	require.True(t, ok)
	assert.True(t, stored.Confirmed)

	assert.Equal(t, []string{event.NewOrder}, f.events.Names())
	require.Equal(t, 1, f.jobs.count())
	assert.Equal(t, jobs.SendMailType, f.jobs.jobs[0].Type())
}

func TestCheckoutSnapshotsDeliveryDetails(t *testing.T) {
	f := newOrderFixture(t)
	require.NoError(t, f.delivery.Upsert(context.Background(), &models.DeliveryDetails{UserID: f.user, City: "Lisbon"}))

	o := f.checkout(t, 1)
	require.NotNil(t, o.DeliveryDetails)
	assert.Equal(t, "Lisbon", o.DeliveryDetails.City)
}

func TestCheckoutEmptyOrMissingCart(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)

	_, err := f.svc.CreateOrder(ctx, f.user)
	assert.True(t, apperr.Is(err, http.StatusNotFound))

	_, err = f.cartFixture.svc.AddToCart(ctx, f.user, f.product, "M", "Red", 1)
	require.NoError(t, err)
	_, err = f.cartFixture.svc.ClearCart(ctx, f.user)
	require.NoError(t, err)
	before := f.carts.get(f.user)

	_, err = f.svc.CreateOrder(ctx, f.user)
	assert.True(t, apperr.Is(err, http.StatusNotFound))
	assert.Equal(t, before, f.carts.get(f.user))
	assert.Zero(t, f.orders.count())
	assert.Empty(t, f.events.Names())
}

func TestCheckoutRejectsVanishedProduct(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	_, err := f.cartFixture.svc.AddToCart(ctx, f.user, f.product, "M", "Red", 1)
	require.NoError(t, err)
	require.NoError(t, f.products.Delete(ctx, f.product))

	before := f.carts.get(f.user)
	_, err = f.svc.CreateOrder(ctx, f.user)
	assert.True(t, apperr.Is(err, http.StatusBadRequest))
	assert.Equal(t, before, f.carts.get(f.user))
	assert.Zero(t, f.orders.count())
}

func TestCheckoutAbortsOnConcurrentCartChange(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	_, err := f.cartFixture.svc.AddToCart(ctx, f.user, f.product, "M", "Red", 1)
	require.NoError(t, err)

	f.carts.beforeClear = func() {
		f.carts.beforeClear = nil
		_, err := f.cartFixture.svc.AddToCart(ctx, f.user, f.product, "M", "Red", 1)
		require.NoError(t, err)
	}

	_, err = f.svc.CreateOrder(ctx, f.user)
	assert.True(t, apperr.Is(err, http.StatusConflict))
	assert.Zero(t, f.orders.count(), "draft removed")
	assert.Equal(t, 2, f.carts.get(f.user).CartItems[0].Quantity)
}

func TestCreateDraftFailureLeavesCart(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	_, err := f.cartFixture.svc.AddToCart(ctx, f.user, f.product, "M", "Red", 1)
	require.NoError(t, err)
	f.orders.failCreate = errBoom

	_, err = f.svc.CreateOrder(ctx, f.user)
	assert.ErrorIs(t, err, errBoom)
	assert.Len(t, f.carts.get(f.user).CartItems, 1)
}

func TestOrderReads(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	o := f.checkout(t, 1)

	mine, err := f.svc.GetOrders(ctx, f.user)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = f.svc.GetOrder(ctx, o.ID, primitive.NewObjectID(), false)
	assert.True(t, apperr.Is(err, http.StatusForbidden))
	got, err := f.svc.GetOrder(ctx, o.ID, f.admin, true)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	all, total, err := f.svc.GetAllOrders(ctx, models.StatusPending, 1, 20)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.EqualValues(t, 1, total)

	_, _, err = f.svc.GetAllOrders(ctx, "Lost", 1, 20)
	assert.True(t, apperr.Is(err, http.StatusBadRequest))
}

func TestUpdateOrderStatusOverwrites(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	o := f.checkout(t, 1)
	mails := f.jobs.count()

	_, err := f.svc.UpdateOrderStatus(ctx, o.ID, "Lost", f.admin)
	assert.True(t, apperr.Is(err, http.StatusBadRequest))

	// any valid status replaces any other, including a repeat and a revived Cancelled
	steps := []models.OrderStatus{
		models.StatusDelivered,
		models.StatusCancelled,
		models.StatusPending,
		models.StatusPending,
		models.StatusShipped,
	}
	for _, st := range steps {
		o, err = f.svc.UpdateOrderStatus(ctx, o.ID, st, f.admin)
		require.NoError(t, err, st)
		assert.Equal(t, st, o.Status)
	}
	require.Len(t, o.StatusHistory, 1+len(steps))
	for i, st := range steps {
		assert.Equal(t, st, o.StatusHistory[i+1].Status)
		assert.Equal(t, f.admin, *o.StatusHistory[i+1].ChangedBy)
	}
	assert.Equal(t, mails+len(steps), f.jobs.count())

	_, err = f.svc.UpdateOrderStatus(ctx, primitive.NewObjectID(), models.StatusProcessing, f.admin)
	assert.True(t, apperr.Is(err, http.StatusNotFound))
}

func TestDeliveredFromPendingUnlocksReview(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	o := f.checkout(t, 1)

	_, err := f.svc.UpdateOrderStatus(ctx, o.ID, models.StatusDelivered, f.admin)
	require.NoError(t, err)

	got, err := f.orders.FindDelivered(ctx, o.ID, f.user, f.product)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
}

func TestUpdateOrderStatusLostRace(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	o := f.checkout(t, 1)

	f.orders.beforeUpdate = func() {
		f.orders.beforeUpdate = nil
		_, err := f.svc.UpdateOrderStatus(ctx, o.ID, models.StatusProcessing, f.admin)
		require.NoError(t, err)
	}
	_, err := f.svc.UpdateOrderStatus(ctx, o.ID, models.StatusShipped, f.admin)
	assert.True(t, apperr.Is(err, http.StatusConflict))

	cur, ok := f.orders.raw(o.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusProcessing, cur.Status)
	assert.Len(t, cur.StatusHistory, 2)
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	o := f.checkout(t, 1)

	_, err := f.svc.CancelOrder(ctx, o.ID, primitive.NewObjectID())
	assert.True(t, apperr.Is(err, http.StatusForbidden))

	_, err = f.svc.CancelOrder(ctx, primitive.NewObjectID(), f.user)
	assert.True(t, apperr.Is(err, http.StatusNotFound))

	cancelled, err := f.svc.CancelOrder(ctx, o.ID, f.user)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	_, err = f.svc.CancelOrder(ctx, o.ID, f.user)
	assert.True(t, apperr.Is(err, http.StatusBadRequest))
}

func TestCancelShippedOrderFails(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	o := f.checkout(t, 1)
	for _, st := range []models.OrderStatus{models.StatusProcessing, models.StatusShipped} {
		_, err := f.svc.UpdateOrderStatus(ctx, o.ID, st, f.admin)
		require.NoError(t, err)
	}

	_, err := f.svc.CancelOrder(ctx, o.ID, f.user)
	assert.True(t, apperr.Is(err, http.StatusBadRequest))
}

func TestReconcileDrafts(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	old := time.Now().UTC().Add(-time.Hour)

	// Crash after the cart was cleared: the draft must be confirmed.
	settled := f.orders.put(models.Order{UserID: f.user, Status: models.StatusPending, CreatedAt: old})
	f.carts.carts[f.user] = models.Cart{ID: primitive.NewObjectID(), UserID: f.user, Version: 3, LastOrderID: &settled}

	// Crash before the cart was cleared: the draft must go.
	other := primitive.NewObjectID()
	orphan := f.orders.put(models.Order{UserID: other, Status: models.StatusPending, CreatedAt: old})

	// Too recent to touch.
	fresh := f.orders.put(models.Order{UserID: other, Status: models.StatusPending, CreatedAt: time.Now().UTC()})

	res, err := f.svc.ReconcileDrafts(ctx, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, services.ReconcileResult{Confirmed: 1, Deleted: 1}, res)

	o, ok := f.orders.raw(settled)
	require.True(t, ok)
	assert.True(t, o.Confirmed)
	_, ok = f.orders.raw(orphan)
	assert.False(t, ok)
	_, ok = f.orders.raw(fresh)
	assert.True(t, ok)
}
