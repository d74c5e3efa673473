package router

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/launchloop/internal/api/dto"
	"github.com/gin-gonic/gin"
)

// SecretHeader carries the shared secret on authenticated routes
const SecretHeader = "X-Worker-Secret"

// HealthPath is the unauthenticated liveness route
const HealthPath = "/health"

// LoggerMiddleware logs each request at a level derived from its status.
// Health probes are logged at debug.
func LoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		attrs := []slog.Attr{
			slog.Int("status", status),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", c.Request.URL.RawQuery),
			slog.String("ip", c.ClientIP()),
			slog.Duration("latency", time.Since(start)),
		}
		if id := c.Param("id"); id != "" {
			attrs = append(attrs, slog.String("id", id))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("error", c.Errors.String()))
		}

		logger.LogAttrs(c.Request.Context(), requestLevel(path, status), "HTTP Request", attrs...)
	}
}

func requestLevel(path string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	case path == HealthPath:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// SharedSecretMiddleware rejects requests whose X-Worker-Secret header does
// not match secret. An empty secret rejects everything.
func SharedSecretMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(SecretHeader)
		if secret == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
			return
		}
		c.Next()
	}
}
