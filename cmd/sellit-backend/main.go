package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aaravmahajanofficial/sellit-backend/internal/api/handlers"
	"github.com/aaravmahajanofficial/sellit-backend/internal/api/middleware"
	"github.com/aaravmahajanofficial/sellit-backend/internal/cache"
	"github.com/aaravmahajanofficial/sellit-backend/internal/config"
	"github.com/aaravmahajanofficial/sellit-backend/internal/health"
	"github.com/aaravmahajanofficial/sellit-backend/internal/metrics"
	"github.com/aaravmahajanofficial/sellit-backend/internal/observability"
	repository "github.com/aaravmahajanofficial/sellit-backend/internal/repositories"
	service "github.com/aaravmahajanofficial/sellit-backend/internal/services"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {

	// Logger setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load config
	cfg := config.MustLoad()

	shutdownTracer, err := observability.InitTracer(context.Background(), cfg)
	if err != nil {
		slog.Error("❌ Error initializing tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Database setup
	repos, err := repository.New(cfg)
	if err != nil {
		slog.Error("❌ Error accessing the database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		if err := repos.Close(); err != nil {
			slog.Error("⚠️ Error closing database connection", slog.String("error", err.Error()))
		} else {
			slog.Info("✅ Database connection closed")
		}
	}()

	// Redis setup
	redisClient, err := repository.NewRedisClient(cfg)
	if err != nil {
		slog.Error("❌ Error accessing the redis instance", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		if err := redisClient.Close(); err != nil {
			slog.Error("⚠️ Error closing redis connection", slog.String("error", err.Error()))
		}
	}()

	jwtKey := []byte(cfg.Security.JWTKey)
	tokenTTL := time.Duration(cfg.Security.JWTExpiryHours) * time.Hour

	rateLimiter := repository.NewRateLimitRepo(redisClient, cfg)
	productCache := cache.NewRedisCache(redisClient, &cfg.Cache)

	userService := service.NewUserService(repos.User, repos.Product, rateLimiter, repos.Transactions, productCache, jwtKey, tokenTTL)
	productService := service.NewProductService(repos.Product, repos.Cart, repos.Transactions, productCache, cfg.Cache.ProductTTL)
	cartService := service.NewCartService(repos.Cart, repos.Product, repos.Transactions)

	userHandler := handlers.NewUserHandler(userService)
	productHandler := handlers.NewProductHandler(productService)
	cartHandler := handlers.NewCartHandler(cartService)
	authMiddleware := middleware.NewAuthMiddleware(jwtKey)

	healthHandler, err := health.NewHealthHandler(cfg, &health.Endpoints{DB: repos.DB, RedisClient: redisClient})
	if err != nil {
		slog.Error("❌ Error creating health checks", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("storage initialized", slog.String("env", cfg.Env), slog.String("version", cfg.Version))

	// Setup router
	routerMux := http.NewServeMux()
	routerMux.HandleFunc("GET /{$}", handlers.Home())
	routerMux.HandleFunc("POST /signup", userHandler.Register())
	routerMux.HandleFunc("POST /login", userHandler.Login())

	routerMux.HandleFunc("GET /api/user/profile", authMiddleware.Authenticate(userHandler.Profile()))
	routerMux.HandleFunc("PUT /api/user/profile", authMiddleware.Authenticate(userHandler.UpdateProfile()))
	routerMux.HandleFunc("PUT /api/user/password", authMiddleware.Authenticate(userHandler.ChangePassword()))
	routerMux.HandleFunc("DELETE /api/user/account", authMiddleware.Authenticate(userHandler.DeleteAccount()))

	routerMux.HandleFunc("POST /api/products", authMiddleware.Authenticate(productHandler.CreateProduct()))
	routerMux.HandleFunc("GET /api/products", productHandler.ListProducts())
	routerMux.HandleFunc("GET /api/products/{product_id}", productHandler.GetProduct())
	routerMux.HandleFunc("PUT /api/products/{product_id}", authMiddleware.Authenticate(productHandler.UpdateProduct()))
	routerMux.HandleFunc("DELETE /api/products/{product_id}", authMiddleware.Authenticate(productHandler.DeleteProduct()))
	routerMux.HandleFunc("GET /api/seller/products", authMiddleware.Authenticate(productHandler.ListSellerProducts()))
	routerMux.HandleFunc("GET /api/search/products", productHandler.SearchProducts())

	routerMux.HandleFunc("GET /api/cart", authMiddleware.Authenticate(cartHandler.GetCart()))
	routerMux.HandleFunc("DELETE /api/cart", authMiddleware.Authenticate(cartHandler.ClearCart()))
	routerMux.HandleFunc("POST /api/cart/items", authMiddleware.Authenticate(cartHandler.AddItem()))
	routerMux.HandleFunc("PUT /api/cart/items/{item_id}", authMiddleware.Authenticate(cartHandler.UpdateItem()))
	routerMux.HandleFunc("DELETE /api/cart/items/{item_id}", authMiddleware.Authenticate(cartHandler.RemoveItem()))

	routerMux.Handle("GET /health", healthHandler.Handler())
	routerMux.Handle("GET /metrics", metrics.Handler())

	// Middleware chaining, innermost first. Metrics must sit directly on the mux
	// to see the matched pattern.
	var handler http.Handler = chimw.Recoverer(routerMux)
	handler = metrics.Middleware(handler)
	handler = middleware.CORS(cfg.CORS)(handler)
	handler = middleware.Logging(handler)
	handler = otelhttp.NewHandler(handler, "sellit-backend")

	// Setup http server
	server := http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	slog.Info("🚀 Server is starting...", slog.String("address", cfg.Addr))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("❌ Failed to start server", slog.String("error", err.Error()))
			done <- syscall.SIGTERM
		}
	}()

	<-done

	slog.Warn("🛑 Shutdown signal received. Preparing to stop the server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("⚠️ Server shutdown encountered an issue", slog.String("error", err.Error()))
	} else {
		slog.Info("✅ Server shut down gracefully. All connections closed.")
	}

	if err := shutdownTracer(shutdownCtx); err != nil {
		slog.Error("⚠️ Tracer shutdown encountered an issue", slog.String("error", err.Error()))
	}

}
