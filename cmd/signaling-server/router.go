package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	healthHandler "signaling-relay/internal/handler/http/health"
	turnHandler "signaling-relay/internal/handler/http/turn"
	"signaling-relay/internal/middleware"
	"signaling-relay/pkg/auth"
	"signaling-relay/pkg/config"
	"signaling-relay/pkg/metrics"
)

type routerDeps struct {
	cfg         *config.Config
	metrics     *metrics.Metrics
	verifier    auth.Verifier
	relay       healthHandler.StatsProvider
	credentials turnHandler.CredentialService
	hub         wsServer
}

type wsServer interface {
	ServeWS(c *gin.Context)
}

// newRouter wires every HTTP route and wraps the engine with CORS
func newRouter(d routerDeps) http.Handler {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.NewPrometheusMiddleware(d.metrics).Handler())

	if d.cfg.Signaling.HealthCheckEnabled {
		router.GET("/health", healthHandler.NewHandler(d.relay).Health)
	}
	router.GET("/metrics", middleware.MetricsHandler(d.metrics))

	requireAuth := middleware.AuthMiddleware(d.verifier)

	router.POST("/turn-credentials", requireAuth, turnHandler.NewHandler(d.credentials).GetCredentials)

	// The WebSocket upgrade shares the listener with the REST routes
	router.GET("/ws", requireAuth, d.hub.ServeWS)
	router.GET("/socket", requireAuth, d.hub.ServeWS)

	return corsOptions(d.cfg.Signaling).Handler(router)
}

func corsOptions(cfg config.SignalingConfig) *cors.Cors {
	opts := cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         86400,
	}
	if cfg.AllowsAllOrigins() {
		opts.AllowedOrigins = []string{"*"}
	} else {
		opts.AllowedOrigins = cfg.AllowedOrigins
		opts.AllowCredentials = true
	}
	return cors.New(opts)
}
