package middleware

import (
	"context"
	"strings"

	"constructure/internal/auth"
	"constructure/internal/domain"
	"constructure/internal/errors"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
)

type UserProvider interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

type Auth struct {
	UserService UserProvider
	Tokens      *auth.TokenManager
}

// Authenticate requires a valid bearer access token whose version still
// matches the user's current token version.
func (m *Auth) Authenticate() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			ctx.Error(errors.Unauthorized("Access token required", nil))
			ctx.Abort()
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := m.Tokens.VerifyAccessToken(token)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid or expired token", err))
			ctx.Abort()
			return
		}

		user, err := m.UserService.GetUserByID(ctx.Request.Context(), claims.UserID)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid token", err))
			ctx.Abort()
			return
		}

		if !user.IsActive {
			ctx.Error(errors.Unauthorized("Account is disabled", nil))
			ctx.Abort()
			return
		}

		// Check token version
		if user.TokenVersion != claims.TokenVersion {
			ctx.Error(errors.Unauthorized("Token has been revoked", nil))
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserID, user.ID)
		ctx.Set(ContextUserEmail, user.Email)
		ctx.Next()
	}
}

// UserID returns the authenticated user's id, empty when the request is anonymous
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
