package middleware

import (
	"device-finance-backoffice/internal/config"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware serves the staff console. A "*" origin allows any origin
// without credentials, since browsers refuse that combination.
func CORSMiddleware(cfg *config.CORSConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:  cfg.AllowedMethods,
		AllowHeaders:  cfg.AllowedHeaders,
		ExposeHeaders: cfg.ExposedHeaders,
		MaxAge:        time.Duration(cfg.MaxAge) * time.Second,
	}

	if slices.Contains(cfg.AllowedOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = cfg.AllowCredentials
	}

	if !slices.Contains(corsConfig.ExposeHeaders, RequestIDHeader) {
		corsConfig.ExposeHeaders = append(slices.Clone(corsConfig.ExposeHeaders), RequestIDHeader)
	}

	return cors.New(corsConfig)
}
