package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/clinica/intranet-api/pkg/errors"
)

const internalErrorMessage = "internal server error"

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// ErrorHandler renders the last error attached with c.Error. AppErrors keep
// their status and message; anything else is a 500 with a generic message.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil {
			return
		}

		status, message := http.StatusInternalServerError, internalErrorMessage
		if appErr, ok := apperrors.As(last.Err); ok {
			status = appErr.StatusCode()
			if status != http.StatusInternalServerError {
				message = appErr.Message
			}
		}

		traceID := c.GetString(ContextRequestID)
		event := log.Warn()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Strs("errors", c.Errors.Errors()).
			Int("status", status).
			Str("route", c.FullPath()).
			Str("method", c.Request.Method).
			Str("trace_id", traceID).
			Msg("request failed")

		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(status, ErrorResponse{
			Code:    status,
			Message: message,
			TraceID: traceID,
		})
	}
}
