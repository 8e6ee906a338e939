package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeNoToken            = "NO_TOKEN"
	CodeTokenRevoked       = "TOKEN_REVOKED"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeRefreshRequired    = "REFRESH_REQUIRED"
	CodeInvalidRefresh     = "INVALID_REFRESH"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeDuplicate          = "DUPLICATE"
	CodeCSRFMissing        = "CSRF_MISSING"
	CodeCSRFInvalid        = "INVALID_CSRF"
	CodeCSRFMismatch       = "CSRF_MISMATCH"
	CodeRateLimited        = "RATE_LIMITED"
	CodeValidation         = "VALIDATION_ERROR"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeNotFound           = "NOT_FOUND"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeInternal           = "INTERNAL_ERROR"
)

func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, gin.H{
		"status": "success",
		"data":   data,
	})
}

// SuccessMessage writes a success body with a human readable message. data may be nil.
func SuccessMessage(c *gin.Context, statusCode int, message string, data any) {
	body := gin.H{
		"status":  "success",
		"message": message,
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(statusCode, body)
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"status":  "error",
		"code":    code,
		"message": message,
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"status":  "error",
		"code":    code,
		"message": message,
		"details": details,
	})
}

// Abort writes an error body and stops the handler chain.
func Abort(c *gin.Context, statusCode int, code string, message string) {
	c.AbortWithStatusJSON(statusCode, gin.H{
		"status":  "error",
		"code":    code,
		"message": message,
	})
}

// Internal records err on the context for the request logger and writes a
// generic 500 that leaks nothing about the cause.
func Internal(c *gin.Context, err error) {
	_ = c.Error(err)
	Abort(c, http.StatusInternalServerError, CodeInternal, "Internal server error")
}
