package routes

import (
	"net/http"

	"butikk/admin"
	"butikk/auth"
	"butikk/cart"
	"butikk/catalog"
	"butikk/checkout"
	"butikk/contact"
	"butikk/live"
	"butikk/middleware"
	"butikk/orders"
	"butikk/ratelim"

	"github.com/julienschmidt/httprouter"
)

// Deps carries everything the route groups need, assembled once in main.
type Deps struct {
	Mid       *middleware.Middleware
	RateLim   *ratelim.RateLimiter
	Catalog   *catalog.Handler
	CatAdmin  *catalog.Admin
	Admin     *admin.Handler
	Cart      *cart.Handler
	Checkout  *checkout.Handler
	Orders    *orders.Handler
	Contact   *contact.Handler
	Auth      *auth.Handler
	Hub       *live.Hub
	UploadDir string
}

// Register wires every route group onto the router.
func Register(router *httprouter.Router, d *Deps) {
	AddAuthRoutes(router, d)
	AddCatalogRoutes(router, d)
	AddCartRoutes(router, d)
	AddCheckoutRoutes(router, d)
	AddOrderRoutes(router, d)
	AddContactRoutes(router, d)
	AddLiveRoutes(router, d)
	AddAdminRoutes(router, d)
	AddStaticRoutes(router, d)
}

func AddAuthRoutes(router *httprouter.Router, d *Deps) {
	router.POST("/api/auth/register", d.RateLim.Limit(d.Auth.Register))
	router.POST("/api/auth/login", d.RateLim.Limit(d.Auth.Login))
	router.POST("/api/auth/refresh", d.RateLim.Limit(d.Auth.Refresh))
	router.POST("/api/auth/logout",
		middleware.Chain(d.RateLim.Limit, d.Mid.Authenticate)(d.Auth.Logout))
}

func AddCatalogRoutes(router *httprouter.Router, d *Deps) {
	router.GET("/api/catalog/products", d.RateLim.Limit(d.Catalog.ListProducts))
	router.GET("/api/catalog/products/:productid", d.RateLim.Limit(d.Catalog.GetProduct))
}

func AddCartRoutes(router *httprouter.Router, d *Deps) {
	authed := middleware.Chain(d.RateLim.Limit, d.Mid.Authenticate)
	router.GET("/api/cart", authed(d.Cart.GetCart))
	router.POST("/api/cart", authed(d.Cart.AddToCart))
	router.PUT("/api/cart/:productid", authed(d.Cart.UpdateItem))
	router.DELETE("/api/cart/:productid", authed(d.Cart.RemoveItem))
	router.DELETE("/api/cart", authed(d.Cart.ClearCart))
}

func AddCheckoutRoutes(router *httprouter.Router, d *Deps) {
	// Guests may check out with an inline item list, so auth is optional.
	router.POST("/api/checkout/session",
		middleware.Chain(d.RateLim.Limit, d.Mid.OptionalAuth)(d.Checkout.CreateSession))
}

func AddOrderRoutes(router *httprouter.Router, d *Deps) {
	// Webhook authenticates by signature, never by bearer token. It is also
	// exempt from rate limiting so provider retries are never refused.
	router.POST("/api/payments/webhook", d.Orders.Webhook)

	router.POST("/api/orders/ensure",
		middleware.Chain(d.RateLim.Limit, d.Mid.OptionalAuth)(d.Orders.EnsureOrder))

	authed := middleware.Chain(d.RateLim.Limit, d.Mid.Authenticate)
	router.GET("/api/orders", authed(d.Orders.ListMine))
	router.GET("/api/orders/:orderid", authed(d.Orders.GetOrder))
	router.GET("/api/orders/:orderid/receipt", authed(d.Orders.Receipt))
}

func AddContactRoutes(router *httprouter.Router, d *Deps) {
	router.POST("/api/contact", d.RateLim.Limit(d.Contact.Submit))
}

func AddLiveRoutes(router *httprouter.Router, d *Deps) {
	router.GET("/ws/:room", live.WebSocketHandler(d.Hub))
}

// AddAdminRoutes registers the back-office surface behind the admin gate.
func AddAdminRoutes(router *httprouter.Router, d *Deps) {
	gated := middleware.Chain(d.RateLim.Limit, d.Mid.AdminGate)

	router.GET("/api/admin/dashboard", gated(d.Admin.Dashboard))

	router.POST("/api/admin/products", gated(d.CatAdmin.CreateProduct))
	router.GET("/api/admin/products/:productid", gated(d.CatAdmin.GetProduct))
	router.PUT("/api/admin/products/:productid", gated(d.CatAdmin.UpdateProduct))
	router.DELETE("/api/admin/products/:productid", gated(d.CatAdmin.DeleteProduct))

	router.GET("/api/admin/orders", gated(d.Orders.AdminList))
	router.GET("/api/admin/orders/:orderid", gated(d.Orders.AdminGet))
	router.PUT("/api/admin/orders/:orderid/status", gated(d.Orders.UpdateStatus))

	router.GET("/api/admin/messages", gated(d.Contact.AdminList))
	router.PUT("/api/admin/messages/:messageid/status", gated(d.Contact.UpdateStatus))
	router.POST("/api/admin/messages/:messageid/respond", gated(d.Contact.Respond))
}

// AddStaticRoutes serves uploaded product images.
func AddStaticRoutes(router *httprouter.Router, d *Deps) {
	router.ServeFiles("/uploads/*filepath", http.Dir(d.UploadDir))
}
