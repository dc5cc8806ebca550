package middleware

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/clinica/intranet-api/pkg/errors"
	sanitize "github.com/clinica/intranet-api/pkg/validator"
)

// paramValue reads a request parameter from the path first, then the query.
func paramValue(c *gin.Context, name string) (string, bool) {
	if v := c.Param(name); v != "" {
		return v, true
	}
	return c.GetQuery(name)
}

func rejectParam(c *gin.Context, name string) {
	_ = c.Error(apperrors.InvalidParam(name))
	c.Abort()
}

// RequireParams rejects the request when any of names is absent or blank.
func RequireParams(names ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range names {
			v, ok := paramValue(c, name)
			if !ok || strings.TrimSpace(v) == "" {
				rejectParam(c, name)
				return
			}
		}
		c.Next()
	}
}

// ValidateStringParam sanitizes a string parameter and stores the trimmed value
// in the context under name.
func ValidateStringParam(name string, maxLength int) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, _ := paramValue(c, name)
		v, ok := sanitize.SanitizeString(raw, maxLength)
		if !ok {
			rejectParam(c, name)
			return
		}
		c.Set(name, v)
		c.Next()
	}
}

// ValidateNumberParam sanitizes a numeric parameter and stores it in the context
// under name as a float64.
func ValidateNumberParam(name string, opts ...sanitize.NumberOption) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, _ := paramValue(c, name)
		v, ok := sanitize.SanitizeNumber(raw, opts...)
		if !ok {
			rejectParam(c, name)
			return
		}
		c.Set(name, v)
		c.Next()
	}
}

var registerOnce sync.Once

// UseJSONFieldNames makes binding errors report json field names instead of Go
// struct field names.
func UseJSONFieldNames() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(func(fld reflect.StructField) string {
				name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
				if name == "-" || name == "" {
					return fld.Name
				}
				return name
			})
		}
	})
}

// BindingError converts a ShouldBindJSON failure into a 400. Validation failures
// name the first offending field.
func BindingError(err error) *apperrors.AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperrors.InvalidParam(verrs[0].Field())
	}
	return apperrors.BadRequest("invalid request body", err)
}
