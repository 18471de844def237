package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docuvault-io/docuvault-api/internal/models"
	appErrors "github.com/docuvault-io/docuvault-api/pkg/errors"
	"github.com/docuvault-io/docuvault-api/pkg/response"
)

// ContextUserKey is the gin context key storing verified token claims.
const ContextUserKey = "currentUser"

// AccessVerifier validates access tokens for protected routes.
type AccessVerifier interface {
	VerifyAccess(token string) (*models.TokenClaims, error)
}

// Auth protects routes by requiring a valid access token, read from the
// access cookie first and a bearer header second.
func Auth(verifier AccessVerifier, accessCookie string) gin.HandlerFunc {
	if accessCookie == "" {
		accessCookie = "access_token"
	}
	return func(c *gin.Context) {
		token := extractToken(c, accessCookie)
		if token == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := verifier.VerifyAccess(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// CurrentClaims returns the verified claims attached by Auth.
func CurrentClaims(c *gin.Context) (*models.TokenClaims, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.TokenClaims)
	return claims, ok
}

// CurrentUserID returns the authenticated user's id, or empty.
func CurrentUserID(c *gin.Context) string {
	claims, ok := CurrentClaims(c)
	if !ok {
		return ""
	}
	return claims.Subject
}

func extractToken(c *gin.Context, accessCookie string) string {
	if cookie, err := c.Cookie(accessCookie); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
