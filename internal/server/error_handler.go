// file: internal/server/error_handler.go
// version: 2.0.0
// guid: ec8aa354-0632-42ae-91b8-de56938ca2b3

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/album-enricher/internal/server/middleware"
	"github.com/rs/zerolog"
)

// ErrorResponse provides a consistent error response format
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Status int    `json:"status"`
}

// SuccessResponse provides a consistent success response format
type SuccessResponse struct {
	Data  any `json:"data,omitempty"`
	Count int `json:"count,omitempty"`
}

// RespondWithError sends a standardized error response and logs the error
func RespondWithError(c *gin.Context, statusCode int, message string, code string) {
	logErrorWithContext(c, statusCode, message)

	c.JSON(statusCode, ErrorResponse{
		Error:  message,
		Code:   code,
		Status: statusCode,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error response
func RespondWithBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, message, "BAD_REQUEST")
}

// RespondWithNotFound sends a 404 Not Found error response
func RespondWithNotFound(c *gin.Context, resourceType string, id string) {
	message := resourceType + " not found"
	if id != "" {
		message = message + ": " + id
	}
	RespondWithError(c, http.StatusNotFound, message, "NOT_FOUND")
}

// RespondWithInternalError sends a 500 Internal Server Error response
func RespondWithInternalError(c *gin.Context, message string) {
	RespondWithError(c, http.StatusInternalServerError, message, "INTERNAL_ERROR")
}

// RespondWithConflict sends a 409 Conflict error response
func RespondWithConflict(c *gin.Context, message string) {
	RespondWithError(c, http.StatusConflict, message, "CONFLICT")
}

// RespondWithOK sends a 200 OK response
func RespondWithOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, SuccessResponse{Data: data})
}

// RespondWithList sends a 200 OK response carrying a list and its length
func RespondWithList(c *gin.Context, items any, count int) {
	c.JSON(http.StatusOK, SuccessResponse{Data: items, Count: count})
}

// requestLogger returns the logger attached by the logging middleware.
func requestLogger(c *gin.Context) zerolog.Logger {
	if v, ok := c.Get(middleware.LoggerKey); ok {
		if l, ok := v.(zerolog.Logger); ok {
			return l
		}
	}
	return zerolog.Nop()
}

// logErrorWithContext logs an error with request context for debugging
func logErrorWithContext(c *gin.Context, statusCode int, message string) {
	logger := requestLogger(c)
	event := logger.Warn()
	if statusCode >= 500 {
		event = logger.Error()
	}
	event.
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Int("status", statusCode).
		Str("client_ip", c.ClientIP()).
		Msg(message)
}
