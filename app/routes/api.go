// Package routes maps the storefront API onto the controllers.
package routes

import (
	"net/http"

	"github.com/shashiranjanraj/storefront/app/controllers"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
	"github.com/shashiranjanraj/storefront/pkg/middleware"
	"github.com/shashiranjanraj/storefront/pkg/rbac"
	"github.com/shashiranjanraj/storefront/pkg/router"
)

// Handlers is everything the route table mounts. Nil http.Handlers are
// skipped, so a zero Handlers is enough to print the table.
type Handlers struct {
	Users     *controllers.UserController
	Products  *controllers.ProductController
	Carts     *controllers.CartController
	Orders    *controllers.OrderController
	Reviews   *controllers.ReviewController
	Dashboard *controllers.DashboardController
	Health    *controllers.HealthController

	WebSocket http.Handler
	GraphQL   http.Handler
	Metrics   http.Handler
	// Events streams domain events to admins as server-sent events.
	Events http.Handler
	// Files serves locally stored uploads under FilesPattern.
	Files        http.Handler
	FilesPattern string
}

var (
	authn    = router.Middleware(middleware.Authenticate)
	optional = router.Middleware(middleware.OptionalAuthenticate)
	admin    = router.Middleware(rbac.AdminOnly)
	customer = router.Middleware(rbac.CustomerOnly)
)

// Register mounts every route on r.
func Register(r *router.Router, h Handlers) {
	r.Get("/health", "health", ctx.Wrap(h.Health.Show))
	mount(r, "/ws", "ws", h.WebSocket)
	mount(r, "/metrics", "metrics", h.Metrics)
	mount(r, "/graphql", "graphql", h.GraphQL)
	if h.FilesPattern != "" {
		mount(r, h.FilesPattern, "files", h.Files)
	}

	api := r.Group("/api")
	users(api, h.Users)
	products(api, h.Products)
	carts(api, h.Carts)
	orders(api, h.Orders)
	reviews(api, h.Reviews)
	api.Get("/dashboard/stats", "dashboard.stats", ctx.Wrap(h.Dashboard.Stats), authn, admin)
	if h.Events != nil {
		r.Handle("/api/events", "events.stream", h.Events, authn, admin)
	}
}

func mount(r *router.Router, path, name string, h http.Handler) {
	if h != nil {
		r.Handle(path, name, h)
	}
}

func users(api *router.Group, c *controllers.UserController) {
	g := api.Group("/users")
	g.Post("/register", "users.register", ctx.Wrap(c.Register))
	g.Post("/confirm", "users.confirm", ctx.Wrap(c.Confirm))
	g.Post("/resend-code", "users.resend", ctx.Wrap(c.ResendCode))
	g.Post("/login", "users.login", ctx.Wrap(c.Login))

	me := g.Group("", authn)
	me.Get("/me", "users.me", ctx.Wrap(c.Me))
	me.Put("/me", "users.me.update", ctx.Wrap(c.UpdateMe))
	me.Post("/me/picture", "users.me.picture", ctx.Wrap(c.UploadPicture))
	me.Get("/delivery", "users.delivery", ctx.Wrap(c.Delivery))
	me.Put("/delivery", "users.delivery.save", ctx.Wrap(c.SaveDelivery))
	me.Get("/", "users.index", ctx.Wrap(c.Index), admin)

	w := api.Group("/wishlist", authn, customer)
	w.Get("/", "wishlist.index", ctx.Wrap(c.Wishlist))
	w.Post("/{productId}", "wishlist.add", ctx.Wrap(c.AddToWishlist))
	w.Delete("/{productId}", "wishlist.remove", ctx.Wrap(c.RemoveFromWishlist))
}

func products(api *router.Group, c *controllers.ProductController) {
	g := api.Group("/products")
	g.Get("/", "products.index", ctx.Wrap(c.Index))

	a := g.Group("", authn, admin)
	a.Get("/admin/all", "products.admin", ctx.Wrap(c.AdminIndex))
	a.Get("/export", "products.export", ctx.Wrap(c.Export))
	a.Post("/import", "products.import", ctx.Wrap(c.Import))
	a.Post("/", "products.store", ctx.Wrap(c.Store))
	a.Put("/{id}", "products.update", ctx.Wrap(c.Update))
	a.Put("/{id}/activate", "products.activate", ctx.Wrap(c.Activate))
	a.Put("/{id}/archive", "products.archive", ctx.Wrap(c.Archive))
	a.Put("/{id}/feature", "products.feature", ctx.Wrap(c.Feature))
	a.Post("/{id}/images", "products.images", ctx.Wrap(c.Images))
	a.Delete("/{id}", "products.destroy", ctx.Wrap(c.Destroy))

	g.Get("/{id}", "products.show", ctx.Wrap(c.Show), optional)
}

func carts(api *router.Group, c *controllers.CartController) {
	g := api.Group("/cart", authn, customer)
	g.Get("/", "cart.show", ctx.Wrap(c.Show))
	g.Post("/", "cart.add", ctx.Wrap(c.Add))
	g.Put("/", "cart.update", ctx.Wrap(c.Update))
	g.Delete("/item", "cart.remove", ctx.Wrap(c.RemoveItem))
	g.Delete("/", "cart.clear", ctx.Wrap(c.Clear))
}

func orders(api *router.Group, c *controllers.OrderController) {
	g := api.Group("/orders", authn)
	g.Post("/", "orders.checkout", ctx.Wrap(c.Checkout), customer)
	g.Get("/", "orders.mine", ctx.Wrap(c.Mine))
	g.Get("/all", "orders.all", ctx.Wrap(c.All), admin)
	g.Get("/{id}", "orders.show", ctx.Wrap(c.Show))
	g.Put("/{id}/status", "orders.status", ctx.Wrap(c.UpdateStatus), admin)
	g.Put("/{id}/cancel", "orders.cancel", ctx.Wrap(c.Cancel), customer)
}

func reviews(api *router.Group, c *controllers.ReviewController) {
	g := api.Group("/reviews")
	g.Get("/product/{productId}", "reviews.product", ctx.Wrap(c.ForProduct))

	u := g.Group("", authn)
	u.Post("/", "reviews.store", ctx.Wrap(c.Create), customer)
	u.Get("/mine", "reviews.mine", ctx.Wrap(c.Mine))
	u.Post("/{id}/vote", "reviews.vote", ctx.Wrap(c.Vote))
	u.Post("/{id}/report", "reviews.report", ctx.Wrap(c.Report))
	u.Delete("/{id}", "reviews.destroy", ctx.Wrap(c.Destroy))

	a := g.Group("", authn, admin)
	a.Get("/reported", "reviews.reported", ctx.Wrap(c.Reported))
	a.Post("/{id}/reply", "reviews.reply", ctx.Wrap(c.Reply))
	a.Put("/{id}/hidden", "reviews.hidden", ctx.Wrap(c.SetHidden))
}
