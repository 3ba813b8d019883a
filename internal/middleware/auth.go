package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"drivio/internal/auth"
	"drivio/internal/domain"
	"drivio/internal/logger"
)

const identityKey = "identity"

// Auth resolves the bearer token to an identity and aborts with 401 when it
// is missing or invalid. Websocket clients may pass the token as ?token=.
func Auth(verifier auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			logger.FromContext(c.Request.Context()).WithError(err).Debug("token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(identityKey, *identity)

		ctx := c.Request.Context()
		entry := logger.FromContext(ctx).WithField("user_id", identity.ID).WithField("role", identity.Role)
		c.Request = c.Request.WithContext(logger.WithContext(ctx, entry))

		c.Next()
	}
}

// IdentityFrom returns the identity set by Auth.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := v.(domain.Identity)
	return identity, ok
}

// RequireRole aborts with 403 unless the caller has role.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		if identity.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "only " + string(role) + "s may do this"})
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		const prefix = "Bearer "
		if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
			return strings.TrimSpace(header[len(prefix):])
		}
		return ""
	}
	return c.Query("token")
}
