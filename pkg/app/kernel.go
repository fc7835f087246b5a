package app

import (
	"context"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/shashiranjanraj/storefront/app/controllers"
	catalog "github.com/shashiranjanraj/storefront/app/graphql"
	"github.com/shashiranjanraj/storefront/app/routes"
	"github.com/shashiranjanraj/storefront/internal/kernel"
	"github.com/shashiranjanraj/storefront/pkg/graphql"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
	"github.com/shashiranjanraj/storefront/pkg/storage"
)

// Handler builds the HTTP handler: global middleware around every route.
func (a *Application) Handler() (http.Handler, error) {
	h, err := a.Routes()
	if err != nil {
		return nil, err
	}
	opts := kernel.Options{Routes: h}
	if a.Redis != nil {
		opts.Redis = a.Redis
	}
	return kernel.NewHTTPKernel(opts).Handler(), nil
}

// Routes builds the controllers and the auxiliary handlers the route table
// mounts.
func (a *Application) Routes() (routes.Handlers, error) {
	schema, err := catalog.NewSchema(a.Products, a.Reviews)
	if err != nil {
		return routes.Handlers{}, fmt.Errorf("graphql schema: %w", err)
	}

	h := routes.Handlers{
		Users:     controllers.NewUserController(a.Users),
		Products:  controllers.NewProductController(a.Products),
		Carts:     controllers.NewCartController(a.Carts),
		Orders:    controllers.NewOrderController(a.Orders),
		Reviews:   controllers.NewReviewController(a.Reviews),
		Dashboard: controllers.NewDashboardController(a.Dashboard),
		Health:    controllers.NewHealthController(a.checks()),
		WebSocket: a.Hub,
		Events:    a.Stream,
		GraphQL:   graphql.Handler(schema),
		Metrics:   metrics.Handler(),
	}
	if local, ok := a.Disk.(*storage.LocalDisk); ok {
		h.FilesPattern, h.Files = local.Handler()
	}
	return h, nil
}

func (a *Application) checks() map[string]controllers.Check {
	checks := map[string]controllers.Check{
		"mongo": func(ctx context.Context) error {
			return a.Mongo.Client.Ping(ctx, readpref.Primary())
		},
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		}
	}
	return checks
}
