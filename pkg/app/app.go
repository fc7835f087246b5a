// Package app wires the storefront together: it opens the backing stores,
// builds the repositories and services, and runs the HTTP server with its
// background workers.
//
//	a, err := app.Boot(ctx)
//	if err != nil { ... }
//	defer a.Close(context.Background())
//	return a.Serve(ctx)
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/shashiranjanraj/storefront/app/jobs"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/pkg/cache"
	"github.com/shashiranjanraj/storefront/pkg/captcha"
	"github.com/shashiranjanraj/storefront/pkg/database"
	"github.com/shashiranjanraj/storefront/pkg/event"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/mail"
	"github.com/shashiranjanraj/storefront/pkg/queue"
	"github.com/shashiranjanraj/storefront/pkg/sse"
	"github.com/shashiranjanraj/storefront/pkg/storage"
	"github.com/shashiranjanraj/storefront/pkg/workerpool"
	"github.com/shashiranjanraj/storefront/pkg/ws"
)

const (
	cachePrefix    = "storefront:"
	uploadWorkers  = 8
	logsCollection = "app_logs"
)

// Application holds every long-lived dependency of the process.
type Application struct {
	Mongo *database.Mongo
	// Redis is nil when the server was unreachable at boot; the cache then
	// degrades to a no-op and the queue runs in memory.
	Redis  *redis.Client
	Disk   storage.Disk
	Repos  *repositories.Set
	Cache  *cache.Store
	Events *event.Dispatcher
	Hub    *ws.Hub
	Stream *sse.Broker
	Queue  *queue.Manager
	Pool   *workerpool.Pool
	Mailer mail.Mailer

	Users     *services.UserService
	Products  *services.ProductService
	Carts     *services.CartService
	Orders    *services.OrderService
	Reviews   *services.ReviewService
	Dashboard *services.DashboardService

	closers []func(context.Context) error
}

// Boot loads the configuration and connects everything. Mongo is required;
// Redis is optional.
func Boot(ctx context.Context) (*Application, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	m, err := database.Connect(ctx)
	if err != nil {
		return nil, err
	}
	a := &Application{Mongo: m}
	a.onClose(m.Disconnect)

	if config.LogToMongo() {
		h := logger.NewMongoHandler(ctx, m.DB, logsCollection)
		logger.Attach(h)
		a.onClose(func(context.Context) error { h.Close(); return nil })
	}

	if rdb, err := cache.Connect(ctx); err != nil {
		logger.Warn("redis unavailable, running without cache", "error", err)
	} else {
		a.Redis = rdb
		a.onClose(func(context.Context) error { return rdb.Close() })
	}

	if a.Disk, err = storage.Open(ctx); err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}

	a.wire()
	return a, nil
}

// wire builds the in-process graph on top of the opened stores.
func (a *Application) wire() {
	db := a.Mongo.DB
	a.Repos = repositories.NewSet(db)
	a.Pool = workerpool.New(uploadWorkers)
	a.onClose(func(context.Context) error { a.Pool.Shutdown(); return nil })

	a.Cache = cache.New(a.Redis, cachePrefix)
	var driver queue.Driver = queue.NewMemoryDriver()
	if a.Redis != nil {
		driver = queue.NewRedisDriver(a.Redis)
	}
	a.Queue = queue.New(driver, queue.Options{Failed: queue.NewMongoFailedStore(db)})
	a.Mailer = mail.FromEnv()
	jobs.Register(a.Queue, a.Mailer)

	a.Events = event.NewDispatcher()
	a.Hub = ws.NewHub(config.CORSOrigins())
	a.Events.ListenAll(a.Hub.Listener())
	a.Stream = sse.NewBroker()
	a.Events.ListenAll(a.Stream.Listener())

	r := a.Repos
	a.Users = services.NewUserService(services.UserDeps{
		Users:    r.Users,
		Delivery: r.Delivery,
		Products: r.Products,
		Captcha:  captcha.FromEnv(),
		Mailer:   a.Mailer,
		Disk:     a.Disk,
		Pool:     a.Pool,
	})
	a.Products = services.NewProductService(services.ProductDeps{
		Products: r.Products,
		Cache:    a.Cache,
		Events:   a.Events,
		Disk:     a.Disk,
		Pool:     a.Pool,
	})
	a.Carts = services.NewCartService(r.Carts, r.Products)
	a.Orders = services.NewOrderService(services.OrderDeps{
		Orders:   r.Orders,
		Carts:    r.Carts,
		Products: r.Products,
		Delivery: r.Delivery,
		Users:    r.Users,
		Tx:       a.Mongo,
		Events:   a.Events,
		Jobs:     a.Queue,
	})
	a.Reviews = services.NewReviewService(r.Reviews, r.Orders, r.Users, a.Disk, a.Pool)
	a.Dashboard = services.NewDashboardService(r.Dashboard, a.Cache)
}

func (a *Application) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close releases everything Boot opened, newest first.
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
