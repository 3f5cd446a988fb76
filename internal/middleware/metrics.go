// Package middleware holds gin middleware specific to the scheduler server,
// grounded on the teacher's internal/middleware/metrics.go.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classsched/internal/metrics"
)

// Metrics records per-request duration and status against svc.
func Metrics(svc *metrics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if svc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		svc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
