package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gearstack/cmms-api/internal/service"
)

// Metrics records per-request duration and count, labelled by the route
// template so path parameters don't explode cardinality.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	if metrics == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
