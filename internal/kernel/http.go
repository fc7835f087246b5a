// Package kernel builds the storefront's HTTP handler: the global middleware
// stack wrapped around the route table.
package kernel

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shashiranjanraj/storefront/app/routes"
	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
	"github.com/shashiranjanraj/storefront/pkg/middleware"
	"github.com/shashiranjanraj/storefront/pkg/reqid"
	"github.com/shashiranjanraj/storefront/pkg/router"
)

type Options struct {
	Routes routes.Handlers
	// Redis backs the shared rate limiter. Nil keeps the counters in
	// process memory.
	Redis redis.Cmdable
}

// NewHTTPKernel returns a router with the global middleware applied and
// every route mounted.
func NewHTTPKernel(opts Options) *router.Router {
	r := router.New()

	// Global middleware stack (outermost → innermost):
	//  1. Prometheus metrics, for accurate total latency
	//  2. Recovery
	//  3. Request ID, before anything logs
	//  4. Logger
	//  5. CORS
	//  6. Rate limiter
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.CORSFromConfig()))
	r.Use(rateLimit(opts.Redis))

	routes.Register(r, opts.Routes)
	return r
}

func rateLimit(rdb redis.Cmdable) router.Middleware {
	max, window := config.RateLimit(), time.Minute
	memory := middleware.NewMemoryLimiter(max, window)
	if rdb == nil {
		return middleware.RateLimit(memory, nil)
	}
	return middleware.RateLimit(middleware.NewRedisLimiter(rdb, max, window), memory)
}
