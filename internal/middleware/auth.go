package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"callmate-backend/pkg/jwt"
	"callmate-backend/pkg/response"
)

// Context keys set by AuthMiddleware for downstream handlers
const (
	CtxUserID  = "user_id"
	CtxRole    = "role"
	CtxTokenID = "token_id"
	CtxToken   = "token"
)

// RevocationChecker reports whether a token id is on the revocation list
type RevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthMiddleware validates the Bearer token and places the verified caller
// identity (user id, role) in the Gin context. revocationChecker may be
// nil; when it errors the check fails open so a Redis outage does not take
// authentication down with it.
func AuthMiddleware(jwtManager *jwt.JWTManager, revocationChecker RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		tokenString := parts[1]

		claims, err := jwtManager.ValidateToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "Invalid token")
			c.Abort()
			return
		}

		if !containsAudience(claims.Audience, jwt.Audience) {
			response.Unauthorized(c, "Invalid token audience")
			c.Abort()
			return
		}

		if revocationChecker != nil {
			revoked, err := revocationChecker.IsTokenRevoked(c.Request.Context(), claims.ID)
			if err == nil && revoked {
				response.Unauthorized(c, "Token revoked")
				c.Abort()
				return
			}
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxTokenID, claims.ID)
		c.Set(CtxToken, tokenString)
		c.Next()
	}
}

func containsAudience(aud []string, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
