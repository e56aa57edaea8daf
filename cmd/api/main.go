package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Meghwin-Dave/Discount-Buddy/config"
	httpHandler "github.com/Meghwin-Dave/Discount-Buddy/internal/adapter/http/handler"
	pgStorage "github.com/Meghwin-Dave/Discount-Buddy/internal/adapter/storage/postgres"
	redisStorage "github.com/Meghwin-Dave/Discount-Buddy/internal/adapter/storage/redis"
	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/ports"
	"github.com/Meghwin-Dave/Discount-Buddy/internal/service"
	"github.com/Meghwin-Dave/Discount-Buddy/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Discount Buddy API")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Run schema migrations
	if err := pgStorage.RunMigrations(pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}
	log.Info().Msg("Migrations applied")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	userRepo := pgStorage.NewUserRepo(pool)
	merchantRepo := pgStorage.NewMerchantRepo(pool)
	restaurantRepo := pgStorage.NewRestaurantRepo(pool)
	dealRepo := pgStorage.NewDealRepo(pool)
	voucherRepo := pgStorage.NewVoucherRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	listingCache := redisStorage.NewListingCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	clock := service.NewSystemClock()

	// Initialize business services
	authSvc := service.NewAuthService(userRepo, merchantRepo, walletRepo, hashSvc, tokenSvc)
	walletSvc := service.NewWalletService(walletRepo, transactor, log)
	redemptionSvc := service.NewRedemptionService(
		dealRepo,
		voucherRepo,
		walletRepo,
		walletSvc,
		transactor,
		clock,
		log,
	)
	catalogSvc := service.NewCatalogService(
		restaurantRepo,
		dealRepo,
		voucherRepo,
		merchantRepo,
		listingCache,
		clock,
		cfg.Cache.DealListingTTL,
		cfg.Cache.VoucherListingTTL,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		CatalogSvc:     catalogSvc,
		RedemptionSvc:  redemptionSvc,
		WalletSvc:      walletSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
