package api

import (
	"log/slog"
	"strings"
	"time"

	"github.com/Caolboy/LABERS-HOST/internal/apperrors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxUserID       = "user_id"
	ctxRequestID    = "request_id"
	headerRequestID = "X-Request-ID"
)

type TokenParser interface {
	ParseToken(token string) (int64, error)
}

// RequireAuth accepts "Authorization: Bearer <token>" and stores the user id
// on the context.
func RequireAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respondError(c, apperrors.Unauthorized("Unauthenticated."))
			return
		}
		id, err := tokens.ParseToken(strings.TrimSpace(token))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Set(ctxUserID, id)
		c.Next()
	}
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// RequestLogger logs one line per request, plus any errors handlers attached.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString(ctxRequestID),
		}
		if len(c.Errors) > 0 {
			logger.ErrorContext(c.Request.Context(), "request failed", append(attrs, "error", c.Errors.String())...)
			return
		}
		logger.InfoContext(c.Request.Context(), "request", attrs...)
	}
}

// Recovery turns panics into the generic 500 envelope.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.ErrorContext(c.Request.Context(), "panic recovered", "panic", recovered, "request_id", c.GetString(ctxRequestID))
		respondError(c, apperrors.Internal(genericFailure, nil))
	})
}
