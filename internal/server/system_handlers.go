package server

import (
	"context"
	"net/http"
	"time"

	"sessionbook/internal/api"
	"sessionbook/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const healthTimeout = 2 * time.Second

// HealthCheck probes one dependency, such as a database ping.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200 {object} api.HealthResponse
// @Failure      503 {object} api.HealthResponse
// @Router       /health [get]
func Health(checks ...HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		for _, hc := range checks {
			if err := hc.Check(ctx); err != nil {
				logger.Warn("Health check failed", "dependency", hc.Name, "error", err)
				c.JSON(http.StatusServiceUnavailable, api.HealthResponse{Status: hc.Name + " unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, api.HealthResponse{Status: "ok"})
	}
}

// @Summary      Prometheus metrics
// @Tags         system
// @Produce      text/plain
// @Success      200 {string} string
// @Router       /metrics [get]
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
