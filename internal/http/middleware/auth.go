package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smallwares/backoffice/internal/jwt"
)

const sessionClaimsKey = "sessionClaims"

// Auth validates the Authorization header and attaches session claims.
type Auth struct {
	JWT *jwt.Generator
}

// RequireSession ensures the request carries a valid bearer session token.
func (m *Auth) RequireSession(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		abortUnauthenticated(c, "Authorization header required.")
		return
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		abortUnauthenticated(c, "Bearer token required.")
		return
	}

	claims, err := m.JWT.Validate(parts[1])
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			abortUnauthenticated(c, "Session token expired.")
			return
		}
		abortUnauthenticated(c, "Invalid session token.")
		return
	}

	c.Set(sessionClaimsKey, claims)
	c.Next()
}

// GetSessionClaims exposes the verified session claims to handlers.
func GetSessionClaims(c *gin.Context) (*jwt.SessionClaims, bool) {
	value, ok := c.Get(sessionClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*jwt.SessionClaims)
	return claims, ok
}

func abortUnauthenticated(c *gin.Context, description string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "unauthenticated",
		"message": description,
	})
}
