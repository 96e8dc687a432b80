package handler

import (
	"creator-payout-service/internal/adapter/http/middleware"
	redisStore "creator-payout-service/internal/adapter/storage/redis"
	"creator-payout-service/internal/core/domain"
	"creator-payout-service/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	PinSvc         ports.PinService
	OTPSvc         ports.OTPService
	WithdrawalSvc  ports.WithdrawalService
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
	r.Use(middleware.RequestID())
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

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Creator routes ---
	creatorAuth := middleware.JWTAuth(deps.TokenSvc, middleware.RoleCreator, deps.Logger)

	securityHandler := NewSecurityHandler(deps.PinSvc, deps.OTPSvc)
	security := v1.Group("/security", creatorAuth)
	{
		security.POST("/:action", rl("security"), securityHandler.Action)
	}

	withdrawalHandler := NewWithdrawalHandler(deps.WithdrawalSvc)
	withdrawals := v1.Group("/withdrawals", creatorAuth)
	{
		withdrawals.POST("", rl("withdrawals"), withdrawalHandler.Submit)
		withdrawals.GET("", rl("withdrawals"), withdrawalHandler.ListOwn)
		withdrawals.GET("/balance", rl("withdrawals"), withdrawalHandler.Balance)
	}

	// --- Admin routes ---
	adminAuth := middleware.JWTAuth(deps.TokenSvc, middleware.RoleAdmin, deps.Logger)
	managePerm := middleware.RequirePermission(domain.PermManageWithdrawals)

	adminHandler := NewAdminHandler(deps.WithdrawalSvc)
	admin := v1.Group("/admin/withdrawals", adminAuth, managePerm)
	{
		admin.GET("", rl("admin"), adminHandler.List)
		admin.POST("/:id/approve", rl("admin"), adminHandler.Approve)
		admin.POST("/:id/reject", rl("admin"), adminHandler.Reject)
		admin.POST("/:id/complete", rl("admin"), adminHandler.Complete)
	}

	return r
}
