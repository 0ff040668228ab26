// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"errors"
	"net/http"

	"deskcrm_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

const (
	// CodeRateLimited is returned when a client exceeds its request budget.
	CodeRateLimited = "RATE_LIMITED"

	msgInternalError = "internal server error"
)

// Envelope is the uniform response body for every endpoint.
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	ErrorCode string      `json:"error_code,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

// JSON sends a successful envelope with the given status code.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, Envelope{Success: true, Data: payload})
}

// OK sends a 200 OK envelope with the given payload.
func OK(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusOK, payload)
}

// Message sends a 200 OK envelope carrying only a message.
func Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message})
}

// Error sends a failed envelope. The error code is derived from the status.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, Envelope{
		Success:   false,
		Message:   message,
		ErrorCode: codeForStatus(status),
		Details:   details,
	})
}

// Abort is Error followed by aborting the handler chain.
func Abort(c *gin.Context, status int, message string) {
	Error(c, status, message, nil)
	c.Abort()
}

// HandleError maps domain errors to HTTP responses.
// A typed *apperr.Error uses its Kind for the status and error code. Any other
// error is logged with the request's correlation fields and reported as a
// generic 500 without internal detail.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) && domainErr.Kind != apperr.KindInternal && domainErr.Kind != apperr.KindUnknown {
		c.JSON(domainErr.HTTPStatus(), Envelope{
			Success:   false,
			Message:   domainErr.Message,
			ErrorCode: domainErr.Code(),
			Details:   domainErr.Details,
		})
		return true
	}

	if log := RequestLog(c); log != nil {
		log.HTTPError(c.Request.Method, c.Request.URL.Path, http.StatusInternalServerError, err, c.ClientIP())
	}
	c.JSON(http.StatusInternalServerError, Envelope{
		Success:   false,
		Message:   msgInternalError,
		ErrorCode: apperr.CodeStorageError,
	})
	return true
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return apperr.CodeValidationFailed
	case http.StatusUnauthorized:
		return apperr.CodeAuthenticationRequired
	case http.StatusForbidden:
		return apperr.CodeForbidden
	case http.StatusNotFound:
		return apperr.CodeNotFound
	case http.StatusConflict:
		return apperr.CodeConflict
	case http.StatusTooManyRequests:
		return CodeRateLimited
	default:
		return apperr.CodeStorageError
	}
}
