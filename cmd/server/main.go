package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/udonggeum-storefront/config"
	"github.com/ikkim/udonggeum-storefront/internal/app/controller"
	"github.com/ikkim/udonggeum-storefront/internal/app/repository"
	"github.com/ikkim/udonggeum-storefront/internal/app/service"
	"github.com/ikkim/udonggeum-storefront/internal/cart"
	"github.com/ikkim/udonggeum-storefront/internal/db"
	"github.com/ikkim/udonggeum-storefront/internal/events"
	"github.com/ikkim/udonggeum-storefront/internal/middleware"
	"github.com/ikkim/udonggeum-storefront/internal/router"
	"github.com/ikkim/udonggeum-storefront/internal/scheduler"
	"github.com/ikkim/udonggeum-storefront/internal/storage"
	ws "github.com/ikkim/udonggeum-storefront/internal/websocket"
	"github.com/ikkim/udonggeum-storefront/pkg/logger"
	"github.com/ikkim/udonggeum-storefront/pkg/payment"
	redisstore "github.com/ikkim/udonggeum-storefront/pkg/redis"
	"github.com/ikkim/udonggeum-storefront/pkg/shipping"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting UDONGGEUM Storefront Server", map[string]interface{}{
		"environment":  cfg.Server.Environment,
		"port":         cfg.Server.Port,
		"log_level":    logLevel,
		"cart_backend": cfg.Cart.Backend,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Seed catalog facets (optional)
	if err := db.Seed(); err != nil {
		logger.Warn("Failed to seed database", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Initialize Redis. Required for the redis cart backend, otherwise it
	// only backs token revocation.
	var blacklist *redisstore.Blacklist
	if err := redisstore.Init(&cfg.Redis); err != nil {
		if cfg.Cart.Backend == "redis" {
			logger.Fatal("Redis is required for the redis cart backend", err)
		}
		logger.Warn("Redis unavailable, token revocation disabled", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		blacklist = redisstore.NewBlacklist(redisstore.GetClient())
		defer func() {
			if err := redisstore.Close(); err != nil {
				logger.Error("Failed to close Redis connection", err)
			}
		}()
	}

	// Initialize external gateways
	payments, err := payment.NewClient(payment.Config{
		SecretKey: cfg.Payment.SecretKey,
		BaseURL:   cfg.Payment.BaseURL,
		Timeout:   cfg.Payment.Timeout,
	})
	if err != nil {
		logger.Fatal("Failed to initialize payment gateway", err)
	}
	shippingClient, err := shipping.NewClient(shipping.Config{
		APIKey:  cfg.Shipping.APIKey,
		BaseURL: cfg.Shipping.BaseURL,
		Timeout: cfg.Shipping.Timeout,
	})
	if err != nil {
		logger.Fatal("Failed to initialize shipping client", err)
	}

	publisher := newPublisher(cfg.AMQP)
	if closer, ok := publisher.(*events.RabbitPublisher); ok {
		defer closer.Close()
	}

	// Catalog images come from S3 when credentials are configured
	var s3Storage *storage.S3Storage
	urls := storage.NewURLBuilder(cfg.S3.BaseURL, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.PlaceholderImage)
	if cfg.S3.Bucket != "" && cfg.S3.AccessKeyID != "" {
		s3Storage = storage.NewS3Storage(ctx, cfg.S3)
		urls = s3Storage.URLs()
	} else {
		logger.Warn("S3 credentials not configured, image uploads disabled")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	variantRepo := repository.NewVariantRepository(db.GetDB())
	orderRepo := repository.NewOrderRepository(db.GetDB())
	wishlistRepo := repository.NewWishlistRepository(db.GetDB())

	var purger scheduler.CartPurger
	storageFor := func(sessionID string) cart.Storage {
		return repository.NewDBCartStorage(db.GetDB(), sessionID)
	}
	if cfg.Cart.Backend == "redis" {
		storageFor = func(sessionID string) cart.Storage {
			return repository.NewRedisCartStorage(redisstore.GetClient(), sessionID, cfg.Cart.Retention)
		}
	} else {
		purger = repository.NewCartRecordRepository(db.GetDB())
	}

	// Live cart updates
	hub := ws.NewHub(nil)
	go hub.Run(ctx)

	// Initialize services
	var revoker service.TokenRevoker
	var revocations middleware.RevocationChecker
	if blacklist != nil {
		revoker = blacklist
		revocations = blacklist
	}
	authService := service.NewAuthService(
		userRepo,
		revoker,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	productService := service.NewProductService(productRepo, urls)
	cartService := service.NewCartService(storageFor, productRepo, variantRepo, urls, payments, shippingClient, hub)
	checkoutService := service.NewCheckoutService(cartService, orderRepo, variantRepo, payments, shippingClient, publisher, db.GetDB())
	wishlistService := service.NewWishlistService(wishlistRepo, productRepo)

	hub.SetMessageHandler(func(sessionID string, msg ws.ClientMessage) {
		if _, err := cartService.SetPopUp(ctx, sessionID, msg.Visible); err != nil {
			logger.Error("Failed to toggle cart pop-up", err, map[string]interface{}{
				"cart_session": sessionID,
			})
		}
	})

	// Initialize controllers
	authController := controller.NewAuthController(authService, cartService)
	productController := controller.NewProductController(productService)
	cartController := controller.NewCartController(cartService, authService, hub, cfg.CORS.AllowedOrigins)
	checkoutController := controller.NewCheckoutController(checkoutService, authService)
	wishlistController := controller.NewWishlistController(wishlistService)
	var uploadController *controller.UploadController
	if s3Storage != nil {
		uploadController = controller.NewUploadController(s3Storage)
	}

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, revocations)

	// Start cart cleanup
	cleanup := scheduler.NewCartCleanupScheduler(purger, cartService, cfg.Cart.PurgeSchedule, cfg.Cart.Retention, cfg.Cart.IdleTimeout)
	if err := cleanup.Start(); err != nil {
		logger.Fatal("Failed to start cart cleanup scheduler", err)
	}
	defer cleanup.Stop()

	// Setup router
	r := router.NewRouter(
		authController,
		productController,
		cartController,
		checkoutController,
		wishlistController,
		uploadController,
		authMiddleware,
		cfg,
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r.Setup(),
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	cancel()
	logger.Info("Server stopped successfully")
}

// newPublisher connects to RabbitMQ when configured and falls back to
// logging checkout events.
func newPublisher(cfg config.AMQPConfig) events.Publisher {
	if cfg.URL == "" {
		logger.Warn("AMQP_URL not set, checkout events are only logged")
		return events.LogPublisher{}
	}
	conn, err := events.Dial(cfg.URL)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ, checkout events are only logged", err)
		return events.LogPublisher{}
	}
	publisher, err := events.NewRabbitPublisher(conn, cfg.Exchange)
	if err != nil {
		logger.Error("Failed to open RabbitMQ publisher", err)
		conn.Close()
		return events.LogPublisher{}
	}
	logger.Info("RabbitMQ publisher ready", map[string]interface{}{
		"exchange": cfg.Exchange,
	})
	return publisher
}
