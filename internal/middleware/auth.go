package middleware

import (
	"crypto/subtle"
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "github.com/clinica/intranet-api/pkg/errors"
)

const HeaderAPIToken = "x-api-token"

var ErrInvalidToken = errors.New("missing or invalid api token")

// APIToken rejects requests whose x-api-token header does not match token. An
// empty token disables the check.
func APIToken(token string) gin.HandlerFunc {
	expected := []byte(token)
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		got := []byte(c.GetHeader(HeaderAPIToken))
		if subtle.ConstantTimeCompare(got, expected) != 1 {
			_ = c.Error(apperrors.Unauthorized(ErrInvalidToken))
			c.Abort()
			return
		}
		c.Next()
	}
}
