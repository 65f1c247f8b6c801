package httpapi

import (
	"log/slog"
	"math/rand"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

// requestIDKey is the gin context key the RequestID middleware sets and
// Logger/Recovery read back, grounded on the teacher's middleware.RequestID
// (internal/transport/http/middleware/middleware.go).
const requestIDKey = "request_id"

// RequestID stamps every request with an ID from the incoming X-Request-ID
// header, or mints a fresh ULID when the caller didn't send one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
			id = ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
		}
		c.Header("X-Request-ID", id)
		c.Set(requestIDKey, id)
		c.Next()
	}
}

// Logger replaces the teacher's logrus-based request logger with a
// slog.Logger equivalent, logging one structured line per request.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		logger.Info("http request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"ip", c.ClientIP(),
			"request_id", c.GetString(requestIDKey),
		)
	}
}

// Recovery replaces the teacher's logrus-based panic handler with a
// slog.Logger equivalent, responding with a generic 500 instead of
// letting the panic reach net/http's default recoverer.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		requestID := c.GetString(requestIDKey)
		logger.Error("panic recovered",
			"error", recovered,
			"stack", string(debug.Stack()),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"request_id", requestID,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"type":       "INTERNAL_ERROR",
			"message":    "internal server error",
			"request_id": requestID,
		})
	})
}
