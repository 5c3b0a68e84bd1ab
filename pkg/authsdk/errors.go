package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/townhall-app/townhall/pkg/httpx"
)

// ============================================================================
// Error Codes
// ============================================================================

const (
	ErrorCodeBadRequest          = "bad_request"
	ErrorCodeValidation          = "validation_error"
	ErrorCodeEmailTaken          = "email_taken"
	ErrorCodeNotFound            = "not_found"
	ErrorCodeOTPExpired          = "otp_expired"
	ErrorCodeOTPInvalid          = "otp_invalid"
	ErrorCodeAlreadyVerified     = "already_verified"
	ErrorCodeNotVerified         = "not_verified"
	ErrorCodeInvalidCredentials  = "invalid_credentials"
	ErrorCodeInvalidRefreshToken = "invalid_refresh_token"
	ErrorCodeUnauthorized        = "unauthorized"
	ErrorCodeForbidden           = "forbidden"
	ErrorCodeRoleMismatch        = "role_mismatch"
	ErrorCodeRateLimited         = "rate_limited"
	ErrorCodeServerError         = "server_error"
)

// ============================================================================
// APIError
// ============================================================================

// APIError is an error response from the service. The server writes it with
// WriteError; the client returns it for any non-2xx response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on status and code so a decoded response compares equal to the
// predefined error it was written from.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode && e.Code == t.Code
}

// WithMessage returns a copy of e carrying msg.
func (e *APIError) WithMessage(msg string) *APIError {
	cp := *e
	cp.Message = msg
	return &cp
}

func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, ErrorResponse{
		Message: e.Message,
		Error:   e.Code,
		Fields:  e.Fields,
	})
}

func NewAPIError(statusCode int, code, message string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Message: message}
}

// ============================================================================
// Predefined Errors
// ============================================================================

var (
	ErrBadRequest          = NewAPIError(http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body")
	ErrValidation          = NewAPIError(http.StatusBadRequest, ErrorCodeValidation, "Validation Failed")
	ErrEmailTaken          = NewAPIError(http.StatusBadRequest, ErrorCodeEmailTaken, "Account already exists")
	ErrAccountNotFound     = NewAPIError(http.StatusNotFound, ErrorCodeNotFound, "Account not found")
	ErrOTPExpired          = NewAPIError(http.StatusBadRequest, ErrorCodeOTPExpired, "OTP has expired or is invalid")
	ErrOTPInvalid          = NewAPIError(http.StatusBadRequest, ErrorCodeOTPInvalid, "Invalid OTP")
	ErrAlreadyVerified     = NewAPIError(http.StatusBadRequest, ErrorCodeAlreadyVerified, "Account is already verified")
	ErrNotVerified         = NewAPIError(http.StatusUnauthorized, ErrorCodeNotVerified, "Please verify your email first")
	ErrInvalidCredentials  = NewAPIError(http.StatusUnauthorized, ErrorCodeInvalidCredentials, "Invalid credentials")
	ErrRefreshRequired     = NewAPIError(http.StatusUnauthorized, ErrorCodeInvalidRefreshToken, "Refresh token required")
	ErrInvalidRefreshToken = NewAPIError(http.StatusUnauthorized, ErrorCodeInvalidRefreshToken, "Invalid or expired refresh token")
	ErrUnauthorized        = NewAPIError(http.StatusUnauthorized, ErrorCodeUnauthorized, "Authentication required")
	ErrForbidden           = NewAPIError(http.StatusForbidden, ErrorCodeForbidden, "Insufficient role")
	ErrRoleMismatch        = NewAPIError(http.StatusForbidden, ErrorCodeRoleMismatch, "Account exists with a different role")
	ErrRateLimited         = NewAPIError(http.StatusTooManyRequests, ErrorCodeRateLimited, "Too many requests. Please try again later.")
	ErrServerError         = NewAPIError(http.StatusInternalServerError, ErrorCodeServerError, "Internal server error")
)

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// parseErrorResponse turns a non-2xx response body into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       errResp.Error,
			Message:    errResp.Message,
			Fields:     errResp.Fields,
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       ErrorCodeServerError,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
