package api

import (
	"github.com/RishiKendai/cheatcheck/internal/config"
	"github.com/RishiKendai/cheatcheck/internal/metrics"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	cfg *config.Config,
	submissions SubmissionReader,
	statuses StatusTracker,
) *gin.Engine {
	router := gin.Default()

	// Create handler
	handler := NewHandler(cfg, submissions, statuses)

	// Create rate limiter
	rateLimiter := NewRateLimiter(cfg.RateLimitRPS, max(1, int(cfg.RateLimitRPS*2)))

	// Middleware
	router.Use(metrics.GinMiddleware())
	router.Use(ErrorHandlerMiddleware())

	// Health endpoint (no auth)
	router.GET("/health", handler.Health)

	// API routes (with auth and rate limiting)
	api := router.Group("/api/v1")
	api.Use(JWTAuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer))
	api.Use(RateLimitMiddleware(rateLimiter))
	{
		api.POST("/compare", handler.Compare)
		api.POST("/drives/:driveId/compare", handler.CompareDrive)
		api.GET("/drives/:driveId/status", handler.DriveStatus)
	}

	return router
}
