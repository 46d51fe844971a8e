package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/priceprobe/api/handler"
	"github.com/use-agent/priceprobe/api/middleware"
	"github.com/use-agent/priceprobe/checker"
	"github.com/use-agent/priceprobe/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health sits outside auth so monitoring probes always work. ctx bounds the
// rate limiter's background janitor.
func NewRouter(ctx context.Context, ck *checker.Checker, sessions handler.SessionSource, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(ck, sessions, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	protected.POST("/price-check", handler.PriceCheck(ck, cfg.Webhook.Secret))

	return r
}
