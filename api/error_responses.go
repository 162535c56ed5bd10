package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ludo-technologies/simrec/domain"
)

// Codes used by the API in addition to the domain error codes.
const (
	ErrorCodeInvalidJSON    = "INVALID_JSON"
	ErrorCodeInvalidQuery   = "INVALID_QUERY"
	ErrorCodeReloadRunning  = "RELOAD_IN_PROGRESS"
	ErrorCodeInternalError  = "INTERNAL_ERROR"
	ErrorCodeReloadDisabled = "RELOAD_DISABLED"
)

// APIError is the body of every error response.
type APIError struct {
	Error     string    `json:"error"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// SendError writes a standardized error response and aborts the request.
func SendError(c *gin.Context, statusCode int, code, message string) {
	resp := &APIError{
		Error:     "Request failed",
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
	if id, ok := c.Get(requestIDKey); ok {
		if s, ok := id.(string); ok {
			resp.RequestID = s
		}
	}
	c.AbortWithStatusJSON(statusCode, resp)
}

// SendDomainError maps a service error onto an HTTP status by its code.
func SendDomainError(c *gin.Context, err error) {
	code := domain.ErrorCode(err)
	if code == "" {
		_ = c.Error(err)
		SendError(c, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
		return
	}

	var de domain.DomainError
	message := err.Error()
	if errors.As(err, &de) {
		message = de.Message
	}
	SendError(c, StatusForCode(code), code, message)
}

// StatusForCode returns the HTTP status for a domain error code.
func StatusForCode(code string) int {
	switch code {
	case domain.ErrCodeEmptyInput,
		domain.ErrCodeInvalidInput,
		domain.ErrCodeInvalidConfig,
		domain.ErrCodeInvalidK,
		domain.ErrCodeUnsupportedFormat,
		domain.ErrCodeParseError:
		return http.StatusBadRequest
	case domain.ErrCodeUnknownEntity, domain.ErrCodeFileNotFound:
		return http.StatusNotFound
	case domain.ErrCodeNotReady:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
