package handler

import (
	"github.com/Meghwin-Dave/Discount-Buddy/internal/adapter/http/middleware"
	redisStore "github.com/Meghwin-Dave/Discount-Buddy/internal/adapter/storage/redis"
	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/domain"
	"github.com/Meghwin-Dave/Discount-Buddy/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	CatalogSvc     ports.CatalogService
	RedemptionSvc  ports.RedemptionService
	WalletSvc      ports.WalletService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	authHandler := NewAuthHandler(deps.AuthSvc)
	restaurantHandler := NewRestaurantHandler(deps.CatalogSvc)
	dealHandler := NewDealHandler(deps.CatalogSvc, deps.RedemptionSvc)
	voucherHandler := NewVoucherHandler(deps.CatalogSvc, deps.RedemptionSvc)
	walletHandler := NewWalletHandler(deps.WalletSvc)

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	v1.GET("/restaurants", rl("listings"), restaurantHandler.List)
	v1.GET("/restaurants/:id", rl("listings"), restaurantHandler.Get)
	v1.GET("/deals/active", rl("listings"), dealHandler.ListActive)
	v1.GET("/deals/:id", rl("listings"), dealHandler.Get)
	v1.GET("/vouchers/active", rl("listings"), voucherHandler.ListActive)
	v1.GET("/vouchers/:id", rl("listings"), voucherHandler.Get)

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	users := v1.Group("/users", jwtAuth)
	{
		users.GET("/me", authHandler.Me)
	}

	// Redemption routes (customers and admins)
	redeem := middleware.Authorize(domain.CapabilityRedeem)
	deals := v1.Group("/deals", jwtAuth, redeem)
	{
		deals.POST("/:id/use", rl("redeem"), dealHandler.Redeem)
		deals.GET("/uses", dealHandler.ListUses)
	}
	vouchers := v1.Group("/vouchers", jwtAuth, redeem)
	{
		vouchers.POST("/:id/purchase", rl("redeem"), voucherHandler.Purchase)
		vouchers.GET("/redemptions", voucherHandler.ListRedemptions)
	}

	// Merchant catalog management
	manage := middleware.Authorize(domain.CapabilityManageCatalog)
	merchant := v1.Group("/merchant", jwtAuth, manage, rl("catalog"))
	{
		merchant.GET("/restaurants", restaurantHandler.ListMine)
		merchant.POST("/restaurants", restaurantHandler.Create)
		merchant.PUT("/restaurants/:id", restaurantHandler.Update)
		merchant.DELETE("/restaurants/:id", restaurantHandler.Delete)

		merchant.POST("/deals", dealHandler.Create)
		merchant.PUT("/deals/:id", dealHandler.Update)
		merchant.DELETE("/deals/:id", dealHandler.Delete)

		merchant.POST("/vouchers", voucherHandler.Create)
		merchant.PUT("/vouchers/:id", voucherHandler.Update)
		merchant.DELETE("/vouchers/:id", voucherHandler.Delete)
	}

	// Wallet (any authenticated account)
	walletCap := middleware.Authorize(domain.CapabilityWallet)
	wallet := v1.Group("/wallet", jwtAuth, walletCap)
	{
		wallet.GET("", rl("wallet"), walletHandler.Get)
		wallet.GET("/transactions", rl("wallet"), walletHandler.ListTransactions)
		wallet.POST("/topup", rl("wallet_topup"), walletHandler.Topup)
	}

	return r
}
