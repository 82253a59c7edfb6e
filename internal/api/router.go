// Package api serves the liquidity simulator over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"liquidity-mcs/internal/config"
	"liquidity-mcs/internal/runner"
)

// NewRouter builds the gin engine with the /api/v1 routes.
func NewRouter(cfg *config.AppConfig, sim runner.Simulator) *gin.Engine {
	if cfg.HTTP.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(Logger())
	router.Use(ErrorHandler())

	h := NewSimulationHandler(cfg, runner.New(sim))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		api.POST("/simulate", h.Simulate)
		api.POST("/validate", h.Validate)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: ErrorDetail{Code: "NOT_FOUND", Message: "Not found"}})
	})
	return router
}

// Handler wraps the router with CORS for the configured origins.
func Handler(cfg *config.AppConfig, router http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: cfg.HTTP.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)
}
