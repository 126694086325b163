package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/banper/backend/internal/infrastructure/cache"
	"github.com/banper/backend/internal/infrastructure/logger"
	"github.com/banper/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader carries the client-chosen key of a retryable POST
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotentReplayHeader marks a response served from the store
	IdempotentReplayHeader = "Idempotent-Replay"

	ErrCodeIdempotencyInFlight = "ERR_IDEMPOTENCY_IN_FLIGHT"
	ErrCodeIdempotencyKey      = "ERR_IDEMPOTENCY_KEY"

	maxIdempotencyKeyLen = 255
)

type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response of a POST whose Idempotency-Key was
// already completed for the same tenant, program and path. Requests without the header
// pass through. Responses with a 5xx status are not stored so the client can
// retry. It must run after Scope.
func Idempotency(store cache.IdempotencyStore, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(IdempotencyKeyHeader)
		if c.Request.Method != http.MethodPost || header == "" {
			c.Next()
			return
		}
		if len(header) > maxIdempotencyKeyLen {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(
				ErrCodeIdempotencyKey, "Idempotency-Key must be at most "+strconv.Itoa(maxIdempotencyKeyLen)+" characters", GetRequestID(c)))
			return
		}

		key := c.Request.URL.Path + "|" + header
		if scope, ok := GetScope(c); ok {
			key = scope.TenantID.String() + "|" + scope.ProgramID.String() + "|" + key
		}

		ctx := c.Request.Context()
		log := logger.FromContext(ctx)

		stored, err := store.Reserve(ctx, key, ttl)
		switch {
		case errors.Is(err, cache.ErrKeyInFlight):
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponse(
				ErrCodeIdempotencyInFlight, "A request with this Idempotency-Key is still being processed", GetRequestID(c)))
			return
		case err != nil:
			// the store is an optimization; serve the request without it
			log.Warn("Idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		case stored != nil:
			c.Header(IdempotentReplayHeader, "true")
			c.Data(stored.Status, stored.ContentType, stored.Body)
			c.Abort()
			return
		}

		// a panicking handler must not leave the key in flight until it expires
		defer func() {
			if r := recover(); r != nil {
				if err := store.Release(context.WithoutCancel(ctx), key); err != nil {
					log.Warn("Failed to release idempotency key", zap.Error(err))
				}
				panic(r)
			}
		}()

		writer := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()

		status := writer.Status()
		if status >= http.StatusInternalServerError {
			if err := store.Release(ctx, key); err != nil {
				log.Warn("Failed to release idempotency key", zap.Error(err))
			}
			return
		}
		resp := cache.StoredResponse{
			Status:      status,
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body.Bytes(),
		}
		if err := store.Complete(ctx, key, resp, ttl); err != nil {
			log.Warn("Failed to store idempotent response", zap.Error(err))
		}
	}
}
