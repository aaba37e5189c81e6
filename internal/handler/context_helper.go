package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pyqhub/papers-api/internal/middleware"
	"github.com/pyqhub/papers-api/internal/models"
	appErrors "github.com/pyqhub/papers-api/pkg/errors"
)

func adminFromContext(c *gin.Context) *models.AdminClaims {
	value, exists := c.Get(middleware.ContextAdminKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.AdminClaims)
	if !ok {
		return nil
	}
	return claims
}

// bindError maps a body-bind failure to the API error taxonomy. A body cut
// off by the size cap surfaces as 413 instead of a generic validation error.
func bindError(err error, msg string) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return appErrors.Clone(appErrors.ErrPayloadTooLarge, "request body too large")
	}
	return appErrors.Clone(appErrors.ErrValidation, msg)
}
