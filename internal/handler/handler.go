package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/clinica/intranet-api/internal/middleware"
	apperrors "github.com/clinica/intranet-api/pkg/errors"
	"github.com/clinica/intranet-api/pkg/validator"
)

// RouteRegistrar is implemented by every route handler.
type RouteRegistrar interface {
	RegisterRoutes(*gin.RouterGroup)
}

// BindJSON binds the request body into dst. On failure the error is attached to
// the context and false is returned.
func BindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		_ = c.Error(middleware.BindingError(err))
		return false
	}
	return true
}

// PathID parses a positive integer path parameter.
func PathID(c *gin.Context, name string) (int64, bool) {
	id, ok := validator.SanitizeInt(c.Param(name), validator.Min(1))
	if !ok {
		_ = c.Error(apperrors.InvalidParam(name))
		return 0, false
	}
	return id, true
}
