package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zqshi/thinkcraft-auth/internal/infra/config"
	"github.com/zqshi/thinkcraft-auth/internal/transport/http/handlers"
	"github.com/zqshi/thinkcraft-auth/internal/transport/http/middleware"
	"github.com/zqshi/thinkcraft-auth/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Verification *usecase.VerificationService
	Accounts     *usecase.AccountService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Metrics  *middleware.HTTPMetrics
	Services ServiceSet
	Database DatabaseChecker
	Cache    CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(deps.Metrics.Handler())
	r.Use(middleware.CORS(deps.Config.App.AllowedOrigins))

	authMiddleware := middleware.RequireAuth(deps.Services.Auth)

	checks := map[string]handlers.HealthChecker{}
	if deps.Database != nil {
		checks["postgres"] = deps.Database.Ping
	}
	if deps.Cache != nil {
		checks["redis"] = deps.Cache.HealthCheck
	}
	healthHandler := handlers.NewHealthHandler(checks)

	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/readyz", healthHandler.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		verificationHandler := handlers.NewVerificationHandler(deps.Services.Verification)
		authHandler := handlers.NewAuthHandler(deps.Services.Auth)
		accountHandler := handlers.NewAccountHandler(deps.Services.Accounts)

		authGroup := api.Group("/auth")
		authGroup.POST("/send-code", verificationHandler.SendCode)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/reset-password", accountHandler.ResetPassword)
		authGroup.POST("/logout", authMiddleware, authHandler.Logout)

		accountGroup := api.Group("/account")
		accountGroup.Use(authMiddleware)
		accountGroup.GET("", accountHandler.Get)
		accountGroup.POST("/bind-phone", accountHandler.BindPhone)
		accountGroup.POST("/change-phone", accountHandler.ChangePhone)
		accountGroup.POST("/change-password", accountHandler.ChangePassword)
		accountGroup.POST("/delete", accountHandler.Delete)

		adminGroup := api.Group("/admin")
		adminGroup.Use(authMiddleware)
		adminGroup.POST("/accounts/:id/lock", accountHandler.Lock)
		adminGroup.POST("/accounts/:id/unlock", accountHandler.Unlock)
	}

	return r
}
