package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ppiankov/controlgap/internal/logging"
	"github.com/ppiankov/controlgap/internal/worker"
)

// Logger logs every request once it has been handled
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		if len(c.Errors) > 0 {
			for _, e := range c.Errors.Errors() {
				logging.Error("Request error",
					zap.String("path", path),
					zap.String("query", query),
					zap.String("ip", c.ClientIP()),
					zap.String("error", e),
				)
			}
			return
		}

		logging.Info("Request processed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
			zap.String("user-agent", c.Request.UserAgent()),
		)
	}
}

// RateLimiter rejects clients that exceed their per-IP token bucket
func RateLimiter(limiter *worker.Limiter, requestsPerSecond float64, burst int) gin.HandlerFunc {
	limit := strconv.FormatFloat(requestsPerSecond, 'f', -1, 64)
	return func(c *gin.Context) {
		key := c.ClientIP()

		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Burst", strconv.Itoa(burst))

		if !limiter.Allow(key) {
			logging.Warn("Rate limit exceeded",
				zap.String("ip", key),
				zap.Float64("rps", requestsPerSecond),
				zap.Int("burst", burst))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}
