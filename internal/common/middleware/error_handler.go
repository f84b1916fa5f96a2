package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"nodeproof-backend/internal/common/errors"
)

// RequestID attaches a request identifier to every request.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// ErrorHandler recovers panics into structured error responses.
func ErrorHandler(logger zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID := GetRequestID(c)

		logger.Error().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Interface("panic", recovered).
			Str("stack", string(debug.Stack())).
			Msg("Panic recovered")

		appErr := errors.New(errors.ErrCodeInternal, "Internal server error").
			WithDetail("panic", fmt.Sprintf("%v", recovered))

		RespondError(c, appErr)
	})
}

// ErrorResponse is the JSON envelope for failures.
type ErrorResponse struct {
	Success   bool             `json:"success"`
	Error     *errors.AppError `json:"error"`
	Timestamp time.Time        `json:"timestamp"`
	RequestID string           `json:"request_id"`
}

// RespondError writes an error with the HTTP status derived from its code.
func RespondError(c *gin.Context, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Wrap(err, errors.ErrCodeInternal, "Internal server error")
	}
	appErr.WithRequestID(GetRequestID(c))

	c.AbortWithStatusJSON(httpStatusFor(appErr.Code), ErrorResponse{
		Success:   false,
		Error:     appErr,
		Timestamp: time.Now().UTC(),
		RequestID: appErr.RequestID,
	})
}

// GetRequestID returns the request's identifier, if one is set.
func GetRequestID(c *gin.Context) string {
	if id, ok := c.Get("request_id"); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

func httpStatusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeValidation, errors.ErrCodeBadRequest, errors.ErrCodeInvalidMethod,
		errors.ErrCodeProofFormatInvalid, errors.ErrCodeAddressFormatInvalid:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeChallengeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrCodeForbidden:
		return http.StatusForbidden
	case errors.ErrCodeConflict, errors.ErrCodeDuplicatePending, errors.ErrCodeAlreadyVerified,
		errors.ErrCodeNodeAlreadyClaimed, errors.ErrCodeInvalidState, errors.ErrCodeChallengeNotPending:
		return http.StatusConflict
	case errors.ErrCodeRateLimit:
		return http.StatusTooManyRequests
	case errors.ErrCodeChallengeExpired:
		return http.StatusGone
	case errors.ErrCodeSignatureInvalid, errors.ErrCodeDNSRecordMissing, errors.ErrCodeDNSIPMismatch:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeStorageError, errors.ErrCodeQueueError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
