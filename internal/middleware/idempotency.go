package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"homeservices/internal/redis"
)

const (
	idempotencyHeader  = "Idempotency-Key"
	idempotencyTTL     = 24 * time.Hour
	idempotencyLockTTL = 30 * time.Second
)

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response of a repeated Idempotency-Key.
// Keys are scoped to the caller and route. A request whose key is still being processed gets 409.
// Store failures degrade to normal processing.
func IdempotencyMiddleware(store redis.IdempotencyStoreInterface, locks redis.LockStoreInterface, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		scoped := idempotencyScope(c) + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key

		if replayStored(c, store, scoped, logger) {
			return
		}

		acquired, err := locks.Acquire(ctx, "idempotency:"+scoped, idempotencyLockTTL)
		if err != nil {
			logger.Warn("idempotency lock unavailable", "error", err)
			c.Next()
			return
		}
		if !acquired {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "a request with this idempotency key is in progress"})
			return
		}
		defer func() {
			if err := locks.Release(ctx, "idempotency:"+scoped); err != nil {
				logger.Warn("failed to release idempotency lock", "error", err)
			}
		}()

		// The previous holder may have finished between the first lookup and the lock.
		if replayStored(c, store, scoped, logger) {
			return
		}

		w := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = w

		c.Next()

		if status := c.Writer.Status(); status >= 200 && status < 500 {
			response := &redis.StoredResponse{
				StatusCode: status,
				Body:       w.body.Bytes(),
				Headers:    extractResponseHeaders(c),
			}
			if err := store.Save(ctx, scoped, response, idempotencyTTL); err != nil {
				logger.Warn("failed to store idempotent response", "error", err)
			}
		}
	}
}

// idempotencyScope identifies the caller owning a key. Registration routes run
// before authentication, so anonymous callers are told apart by client IP.
func idempotencyScope(c *gin.Context) string {
	if actor := ActorFrom(c); actor.ID != "" {
		return "actor:" + actor.ID
	}
	return "anon:" + c.ClientIP()
}

// replayStored writes the stored response for key and aborts. It reports whether it did.
func replayStored(c *gin.Context, store redis.IdempotencyStoreInterface, key string, logger *slog.Logger) bool {
	stored, err := store.Get(c.Request.Context(), key)
	if err != nil {
		logger.Warn("idempotency store unavailable", "error", err)
		return false
	}
	if stored == nil {
		return false
	}

	for k, v := range stored.Headers {
		for _, val := range v {
			c.Header(k, val)
		}
	}
	c.Header("Idempotent-Replayed", "true")
	c.Data(stored.StatusCode, "application/json", stored.Body)
	c.Abort()
	return true
}

// extractResponseHeaders extracts headers to store.
func extractResponseHeaders(c *gin.Context) http.Header {
	headers := make(http.Header)
	if ct := c.Writer.Header().Get("Content-Type"); ct != "" {
		headers.Set("Content-Type", ct)
	}
	return headers
}
