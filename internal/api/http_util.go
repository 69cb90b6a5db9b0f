package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ppiankov/controlgap/internal/engine"
	"github.com/ppiankov/controlgap/internal/logging"
)

// RespondWithError logs err and writes a JSON error body
func RespondWithError(c *gin.Context, code int, message string, err error) {
	logging.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.JSON(code, gin.H{"error": message})
}

// statusFor maps engine errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case engine.IsNotFound(err):
		return http.StatusNotFound
	case engine.IsInvalidInput(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondWithEngineError picks the status from err. Client errors echo the
// cause; server errors keep the generic message.
func respondWithEngineError(c *gin.Context, message string, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		RespondWithError(c, code, message, err)
		return
	}
	logging.Warn(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.JSON(code, gin.H{"error": err.Error()})
}
