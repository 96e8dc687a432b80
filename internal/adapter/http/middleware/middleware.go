package middleware

import (
	"net/http"
	"strings"
	"time"

	"creator-payout-service/internal/core/domain"
	"creator-payout-service/internal/core/ports"
	"creator-payout-service/pkg/apperror"
	"creator-payout-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// Context keys
	CtxAccountID   = "account_id"
	CtxRole        = "role"
	CtxPermissions = "permissions"
	CtxRequestID   = "request_id"

	RoleCreator = "creator"
	RoleAdmin   = "admin"
)

// RequestID assigns a request ID to every request for log correlation
// and response envelopes.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(CtxRequestID, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// JWTAuth validates the bearer token and requires the given role.
func JWTAuth(tokenSvc ports.TokenService, role string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		claims, err := tokenSvc.ValidateAccess(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}
		if claims.Role != role {
			response.Error(c, apperror.ErrPermissionDenied())
			c.Abort()
			return
		}

		c.Set(CtxAccountID, claims.SubjectID)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxPermissions, claims.Permissions)
		c.Next()
	}
}

// RequirePermission gates admin routes on a permission flag. A full
// admin (every flag) always passes via the derived predicate.
func RequirePermission(perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := c.Get(CtxPermissions)
		if !ok {
			response.Error(c, apperror.ErrPermissionDenied())
			c.Abort()
			return
		}
		perms, _ := raw.([]string)
		admin := domain.Admin{Permissions: perms}
		if !admin.Has(perm) && !admin.IsSuper() {
			response.Error(c, apperror.ErrPermissionDenied())
			c.Abort()
			return
		}
		c.Next()
	}
}

// AccountID returns the authenticated account UUID from the context.
func AccountID(c *gin.Context) (uuid.UUID, bool) {
	raw, ok := c.Get(CtxAccountID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := raw.(uuid.UUID)
	return id, ok
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(CtxRequestID)).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// MaxBodySize returns middleware that limits the request body size.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
