package main

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"recipehub/internal/auth"
	"recipehub/internal/recipe"
	"recipehub/internal/saved"
	synchub "recipehub/internal/sync"
	"recipehub/pkg/logging"
	"recipehub/pkg/utils"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipehub_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recipehub_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

type app struct {
	db     *sql.DB
	rdb    *redis.Client // optional
	cfg    utils.ServerConfig
	tokens auth.TokenService
	hub    *synchub.Hub
	log    zerolog.Logger
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func newRouter(a app) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logging.GinMiddleware(a.log), metricsMiddleware())
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := a.hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := a.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "db_error": err.Error()})
			return
		}

		cache := "disabled"
		if a.rdb != nil {
			cache = "ok"
			if err := a.rdb.Ping(ctx).Err(); err != nil {
				// the API keeps serving from the database without the cache
				cache = err.Error()
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"db":         "ok",
			"cache":      cache,
			"ws_users":   stats.Users,
			"ws_clients": stats.Clients,
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.Static("/images", a.cfg.ContentDir)

	// Recipes (public)
	recipeRepo := recipe.NewRepo(a.db)
	recipeHandler := recipe.NewHandler(recipeRepo, recipe.NewSearchCache(a.rdb, recipe.DefaultCacheTTL),
		a.cfg.ImageBaseURL, a.log.With().Str("component", "recipe").Logger())
	recipeHandler.RegisterRoutes(router.Group("/recipes"))

	// Auth
	authRepo := auth.NewRepo(a.db)
	authHandler := auth.NewHandler(authRepo, a.tokens, a.log.With().Str("component", "auth").Logger())
	authHandler.RegisterRoutes(router.Group("/auth"))

	// Protected routes
	protected := router.Group("/users")
	protected.Use(auth.AuthMiddleware(a.tokens, authRepo))
	authHandler.RegisterUserRoutes(protected)

	savedHandler := saved.NewHandler(saved.NewRepo(a.db), recipeRepo, a.hub, a.log.With().Str("component", "saved").Logger())
	savedHandler.RegisterRoutes(protected)

	router.GET("/ws", synchub.WSHandler(a.hub, a.tokens, authRepo, a.cfg.CORSOrigins, a.log.With().Str("component", "ws").Logger()))

	return router
}

// withCORS wraps the router for browser clients.
func withCORS(h http.Handler, origins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}).Handler(h)
}
