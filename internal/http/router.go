package http

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.ccmp.io/winds-api/internal/metrics"
	"go.ccmp.io/winds-api/internal/usecase"
)

// SetupRouter creates and configures the Gin router.
func SetupRouter(pointUC *usecase.PointUseCase, compareUC *usecase.CompareUseCase, maskUC *usecase.MaskUseCase, collector *metrics.Collector) *gin.Engine {

	router := gin.Default()

	// Setup CORS middleware.
	corsConfig := cors.DefaultConfig()

	// Get allowed origins from environment variable.
	// Default to allow all origins if not specified.
	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(allowedOrigins, ",")
	} else {
		corsConfig.AllowAllOrigins = true
	}

	router.Use(cors.New(corsConfig))
	router.Use(requestMetrics(collector))

	// Create handler.
	handler := NewHandler(pointUC, compareUC, maskUC, collector)

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.GET("/buoys", handler.GetBuoys)

	winds := v1.Group("/winds")
	winds.GET("/speed", handler.GetWinds)
	winds.GET("/climatology", handler.GetClimatology)
	winds.GET("/compare", handler.GetCompare)
	winds.GET("/masks", handler.GetMask)
	winds.GET("/histogram", handler.GetHistogram)

	// Health check.
	router.GET("/health", handler.HealthCheck)

	// Prometheus metrics.
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// requestMetrics records per-request counters and latency.
func requestMetrics(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		collector.RequestsTotal.WithLabelValues(route, c.Request.Method, status).Inc()
		collector.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		if c.Writer.Status() >= 500 {
			collector.ErrorsTotal.WithLabelValues(route).Inc()
		}
	}
}
