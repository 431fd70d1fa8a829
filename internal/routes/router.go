package routes

import (
	"context"
	"device-finance-backoffice/internal/config"
	"device-finance-backoffice/internal/delivery/http/handler"
	"device-finance-backoffice/internal/logger"
	"device-finance-backoffice/internal/middleware"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
)

// SetupRoutes builds the HTTP surface. ctx bounds background work owned by
// the router, such as rate limiter sweeps.
func SetupRoutes(ctx context.Context, cfg *config.Config, svc *Services, checks map[string]handler.HealthCheck) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Order: recovery, request ID, logging, security headers, CORS, request size limit, general rate limit, metrics
	router.Use(ginzap.RecoveryWithZap(logger.Logger, true))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(&cfg.CORS))
	router.Use(middleware.RequestSizeLimitMiddleware(middleware.MaxRequestSize))
	router.Use(middleware.RateLimitMiddleware(
		middleware.NewRateLimiter(ctx, cfg.RateLimit.GeneralRPS, cfg.RateLimit.GeneralBurst),
		middleware.ByClientIP,
	))

	prom := ginprometheus.NewPrometheus("gin")
	prom.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
		// Route templates keep label cardinality bounded.
		if route := c.FullPath(); route != "" {
			return route
		}
		return "unmatched"
	}
	prom.Use(router)

	authHandler := handler.NewAuthHandler(svc.Auth)
	codeHandler := handler.NewCodeHandler(svc.Codes)
	deviceHandler := handler.NewDeviceHandler(svc.Devices)
	paymentHandler := handler.NewPaymentHandler(svc.Payments)
	securityHandler := handler.NewSecurityHandler(svc.Security)

	handler.NewHealthHandler(checks).RegisterRoutes(router)

	v1 := router.Group("/api/v1")
	{
		handler.NewHealthHandler(checks).RegisterRoutes(v1)
		authHandler.RegisterRoutes(v1)

		// Devices call these without credentials; they get a tighter per-device budget.
		deviceAPI := v1.Group("")
		deviceAPI.Use(middleware.RateLimitMiddleware(
			middleware.NewRateLimiter(ctx, cfg.RateLimit.DeviceRPS, cfg.RateLimit.DeviceBurst),
			middleware.ByDeviceAndIP,
		))
		{
			deviceHandler.RegisterDeviceRoutes(deviceAPI)
			securityHandler.RegisterDeviceRoutes(deviceAPI)
		}

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(&cfg.JWT), middleware.StaffOnly())
		{
			codeHandler.RegisterRoutes(protected)
			deviceHandler.RegisterRoutes(protected)
			securityHandler.RegisterRoutes(protected)
			paymentHandler.RegisterRoutes(protected)

			admin := protected.Group("/admin")
			admin.Use(middleware.SuperAdminOnly())
			{
				codeHandler.RegisterAdminRoutes(admin)
				authHandler.RegisterAdminRoutes(admin)
			}
		}
	}

	logger.Info("All routes initialized")
	return router
}
