package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/dynamic-recipe/backend/internal/types"
)

// UserIDKey is the gin context key holding the authenticated user's id
const UserIDKey = "user_id"

// TokenValidator is an interface for validating JWT tokens
type TokenValidator interface {
	ValidateToken(token string) (*types.TokenClaims, error)
}

// CurrentUserID returns the id AuthMiddleware resolved, or "" for an anonymous request
func CurrentUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// AuthMiddleware resolves the bearer token to the owner of the recipe
// collection the request works on
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "sign in to use your recipe collection"})
			return
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "authorization header must be a bearer token"})
			return
		}

		claims, err := validator.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "session is invalid or expired, sign in again"})
			return
		}
		owner, err := claims.Owner()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "session is invalid or expired, sign in again"})
			return
		}

		c.Set(UserIDKey, owner)
		c.Set("email", claims.Email)
		c.Next()
	}
}
