package api

import (
	"alcyxob/plan-tracker/internal/auth"
	"alcyxob/plan-tracker/internal/domain"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Constants for context keys
const (
	ContextIdentityKey  = "identity"
	ContextRequestIDKey = "requestID"
)

const requestIDMaxLen = 64

// jwtClaims is the payload issued by the identity provider. The role claim
// is left untyped and resolved by auth.ResolveRole.
type jwtClaims struct {
	UserID string `json:"uid"`
	Role   any    `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware verifies the bearer token and stores the caller's
// domain.Identity in the context.
func AuthMiddleware(jwtSecret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header is missing")
			return
		}

		// Expecting "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}

		claims := &jwtClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortWithError(c, http.StatusUnauthorized, "Token has expired")
			} else {
				abortWithError(c, http.StatusUnauthorized, fmt.Sprintf("Invalid token: %v", err))
			}
			return
		}

		userID := claims.UserID
		if userID == "" {
			userID = claims.Subject
		}
		if !token.Valid || userID == "" {
			abortWithError(c, http.StatusUnauthorized, "Invalid token or missing claims")
			return
		}
		if claims.ExpiresAt == nil {
			abortWithError(c, http.StatusUnauthorized, "Token has no expiry")
			return
		}
		if issuer != "" && !claims.VerifyIssuer(issuer, true) {
			abortWithError(c, http.StatusUnauthorized, "Token issuer is not trusted")
			return
		}

		c.Set(ContextIdentityKey, domain.Identity{UserID: userID, Role: auth.ResolveRole(claims.Role)})
		c.Next()
	}
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// RoleMiddleware rejects callers whose role is not in allowedRoles.
// Must run AFTER AuthMiddleware.
func RoleMiddleware(allowedRoles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, ok := identityFrom(c)
		if !ok {
			abortWithError(c, http.StatusInternalServerError, "Identity not found in context")
			return
		}
		if !auth.Authorize(who.Role, allowedRoles...) {
			abortWithError(c, http.StatusForbidden, fmt.Sprintf("Access denied: Role '%s' does not have permission", who.Role))
			return
		}
		c.Next()
	}
}

// RequestID tags each request with X-Request-ID, generating one when absent.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" || len(rid) > requestIDMaxLen {
			rid = uuid.NewString()
		}
		c.Set(ContextRequestIDKey, rid)
		c.Header("X-Request-ID", rid)
		c.Next()
	}
}

// RequestLogger writes one structured line per request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("requestId", c.GetString(ContextRequestIDKey)),
			zap.Duration("latency", time.Since(start)),
		}
		if who, ok := identityFrom(c); ok {
			fields = append(fields, zap.String("userId", who.UserID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.ByType(gin.ErrorTypePrivate).String()))
		}

		switch {
		case status >= 500:
			logger.Error("request failed", fields...)
		case status >= 400:
			logger.Warn("request rejected", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	}
}

// RequestTimeout bounds the request context, and so every store, lock and
// storage call made while handling it.
func RequestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func identityFrom(c *gin.Context) (domain.Identity, bool) {
	raw, exists := c.Get(ContextIdentityKey)
	if !exists {
		return domain.Identity{}, false
	}
	who, ok := raw.(domain.Identity)
	return who, ok
}

// mustIdentity aborts with 500 when AuthMiddleware did not run.
func mustIdentity(c *gin.Context) (domain.Identity, bool) {
	who, ok := identityFrom(c)
	if !ok {
		abortWithError(c, http.StatusInternalServerError, "Identity not found in context")
	}
	return who, ok
}
