// Package handler assembles the HTTP engine: middleware chain, probes,
// metrics endpoint and the versioned API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/config"
	v1 "github.com/Kipyegorop/hospital-emr-sub000/internal/handler/v1"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/middleware"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/metrics"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Deps struct {
	Config   *config.Config
	Log      *zap.Logger
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
	Tokens   middleware.TokenValidator
	// Ready is nil when there is nothing external to probe.
	Ready    ReadinessCheck
	Services v1.Services
}

const readyTimeout = 2 * time.Second

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(
		middleware.RequestID(),
		middleware.Recovery(d.Log),
		middleware.Logger(d.Log),
		middleware.SecurityHeaders(),
		middleware.CORS(d.Config.CORS),
		middleware.Metrics(d.Metrics),
		middleware.Tracing(d.Config.Tracing.ServiceName),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				d.Log.Warn("readiness check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler(d.Gatherer)))

	api := r.Group("/api/v1",
		middleware.RateLimit(d.Config.RateLimit),
		middleware.Authenticate(d.Tokens),
	)
	v1.NewHandler(d.Services, d.Config.Blob.MaxUploadBytes).RegisterRoutes(api)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, v1.ErrorResponse{Error: "route not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, v1.ErrorResponse{Error: "method not allowed"})
	})
	return r
}
