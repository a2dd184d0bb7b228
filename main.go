package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"butikk/admin"
	"butikk/auth"
	"butikk/cart"
	"butikk/catalog"
	"butikk/checkout"
	"butikk/config"
	"butikk/contact"
	"butikk/db"
	"butikk/email"
	"butikk/live"
	"butikk/middleware"
	"butikk/orders"
	"butikk/payments"
	"butikk/ratelim"
	"butikk/rdx"
	"butikk/routes"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request method, path, remote address, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s from %s – %v", r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
	})
}

// Index is a simple health check handler.
// listenAddr normalizes the configured port into a server address. An empty
// PORT (set but blank) falls back to the default.
func listenAddr(port string) string {
	if port == "" {
		port = "8080"
	}
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	cancel()
	if err != nil {
		log.Fatalf("mongo connect: %v", err)
	}
	ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	if err := store.EnsureIndexes(ctx); err != nil {
		log.Fatalf("mongo indexes: %v", err)
	}
	cancel()

	cache := rdx.New(cfg.RedisAddr)
	pay := payments.NewClient(cfg.Payments)
	mail := email.New(cfg.SMTP)

	hub := live.NewHub()
	go hub.Run()

	reconciler := &orders.Reconciler{
		Sessions:  pay,
		Inventory: &orders.MongoInventory{Products: store.ProductsCollection},
		Orders: &orders.MongoOrders{
			Orders:     store.OrdersCollection,
			UserOrders: store.UserOrdersCollection,
		},
		Cleaners: []orders.CartCleaner{
			&orders.CollectionCartCleaner{Carts: store.CartCollection},
			&orders.LegacyUserCartCleaner{Users: store.UserCollection},
			&orders.RedisCartCleaner{Cache: cache},
		},
		Mail: &email.Mailer{Sender: mail},
		Live: hub,
	}

	lister := &catalog.Lister{Products: store.ProductsCollection}
	cartHandler := &cart.Handler{
		Carts:    store.CartCollection,
		Products: store.ProductsCollection,
	}
	deps := &routes.Deps{
		Mid:     middleware.New([]byte(cfg.JWTSecret), cfg.AdminSecret),
		RateLim: ratelim.NewRateLimiter(10, 25),
		Catalog: &catalog.Handler{
			Lister:   lister,
			Products: store.ProductsCollection,
			Cache:    cache,
		},
		Admin: &admin.Handler{Store: store},
		CatAdmin: &catalog.Admin{
			Products:  store.ProductsCollection,
			Pay:       pay,
			Cache:     cache,
			Live:      hub,
			UploadDir: cfg.UploadDir,
			Currency:  cfg.Payments.Currency,
		},
		Cart: cartHandler,
		Checkout: &checkout.Handler{
			Cart:     cartHandler,
			Products: store.ProductsCollection,
			Pay:      pay,
			BaseURL:  cfg.BaseURL,
			Currency: cfg.Payments.Currency,
		},
		Orders: &orders.Handler{
			Reconciler:    reconciler,
			Orders:        store.OrdersCollection,
			UserOrders:    store.UserOrdersCollection,
			Cache:         cache,
			WebhookSecret: cfg.Payments.WebhookSecret,
			ReceiptSecret: []byte(cfg.JWTSecret),
			Live:          hub,
		},
		Contact: &contact.Handler{
			Messages: store.MessagesCollection,
			Mail:     mail,
		},
		Auth: &auth.Handler{
			Users:     store.UserCollection,
			JWTSecret: []byte(cfg.JWTSecret),
		},
		Hub:       hub,
		UploadDir: cfg.UploadDir,
	}

	router := httprouter.New()
	router.GET("/health", Index)
	routes.Register(router, deps)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.BaseURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Admin-Secret"},
		AllowCredentials: true,
	}).Handler(router)

	handler := loggingMiddleware(securityHeaders(corsHandler))

	server := &http.Server{
		Addr:              listenAddr(cfg.Port),
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	server.RegisterOnShutdown(hub.Stop)

	go func() {
		log.Printf("butikk listening on %s", listenAddr(cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("shutdown signal received")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	if err := store.Close(shutdownCtx); err != nil {
		log.Printf("mongo disconnect: %v", err)
	}
	log.Println("server stopped")
}
