// Package node assembles the HTTP surface of a hotel booking ledger node:
// the operator dashboard, the JSON API, health and metrics endpoints.
package node

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/hotelledger/internal/config"
	"github.com/jmerrifield20/hotelledger/internal/node/handler"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// NewRouter builds the Gin engine serving l. Background goroutines started
// by middleware stop when ctx is cancelled.
func NewRouter(ctx context.Context, cfg *config.Config, l handler.BookingLedger, logger *zap.Logger) (*gin.Engine, error) {
	loc, err := cfg.Server.Location()
	if err != nil {
		return nil, err
	}
	tmpl, err := handler.ParseTemplates()
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handler.RequestID())

	origins := cfg.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", handler.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", handler.RequestIDHeader},
		AllowCredentials: !containsWildcard(origins),
		MaxAge:           12 * time.Hour,
	}))

	router.Use(handler.SecurityHeaders())
	router.Use(handler.BodyLimit(maxBodyBytes))

	if rps := cfg.Server.RateLimitRPS; rps > 0 {
		router.Use(handler.RateLimiter(ctx, rps, rps*2))
	}

	router.Use(handler.RequestLogger(logger))

	if cfg.Metrics.Enabled {
		router.Use(handler.PrometheusMiddleware())
		router.GET(cfg.Metrics.Path, handler.MetricsHandler())
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler.NewDashboardHandler(l, tmpl, loc, logger).Register(router)

	ledgerHandler := handler.NewLedgerHandler(l, logger)
	if cfg.Server.AllowTamper {
		logger.Warn("tamper endpoint enabled; do not expose this node publicly")
		ledgerHandler.EnableTamper()
	}
	v1 := router.Group("/api/v1")
	ledgerHandler.Register(v1)

	return router, nil
}

// NewServer wraps the router in an http.Server listening on the configured port.
func NewServer(cfg *config.Config, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
