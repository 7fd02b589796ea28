// file: internal/server/middleware/logging.go
// version: 1.0.0
// guid: f1ea1499-fa2c-453b-bf0c-01ffc77e7096

package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// RequestIDHeader carries the request ID in both directions.
	RequestIDHeader = "X-Request-ID"
	// LoggerKey is the gin context key holding the request-scoped logger.
	LoggerKey = "logger"
)

// RequestLogging logs each request with a request ID and stores a
// request-scoped logger in the gin context.
func RequestLogging(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Generate or use existing request ID
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header(RequestIDHeader, requestID)

		reqLogger := logger.With().Str("request_id", requestID).Logger()
		c.Set(LoggerKey, reqLogger)

		c.Next()

		status := c.Writer.Status()
		event := reqLogger.Info()
		if status >= 500 {
			event = reqLogger.Error()
		} else if status >= 400 {
			event = reqLogger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Str("remote_addr", c.ClientIP()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	}
}
