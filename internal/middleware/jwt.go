package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pyqhub/papers-api/internal/service"
	appErrors "github.com/pyqhub/papers-api/pkg/errors"
	"github.com/pyqhub/papers-api/pkg/response"
)

// ContextAdminKey is the gin context key storing admin token claims.
const ContextAdminKey = "currentAdmin"

// AdminAuth protects routes by requiring a valid admin access token. A
// missing token yields 401, a token that fails verification yields 403.
func AdminAuth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextAdminKey, claims)
		c.Next()
	}
}
