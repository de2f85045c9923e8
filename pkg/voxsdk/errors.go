package voxsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/voxgate/pkg/httpx"
)

// Error codes carried in the "error" field of every failure body.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeInvalidUsername    = "invalid_username"
	ErrorCodeInvalidSecret      = "invalid_secret"
	ErrorCodeInvalidAudio       = "invalid_audio"
	ErrorCodeInsufficientSignal = "insufficient_signal"
	ErrorCodeUsernameTaken      = "username_taken"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeRateLimitExceeded  = "rate_limit_exceeded"
	ErrorCodeServerError        = "server_error"
	ErrorCodeServiceUnavailable = "service_unavailable"
)

// APIError is a failure response from the service. It is used by the server
// to write responses and by the client to report them.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches any *APIError with the same code, so a response parsed by the
// client compares equal to the predefined error of that kind.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// WriteError writes e as the response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteError(w, e.StatusCode, e.Code, e.Description)
}

// WithDescription returns a copy of e with a more specific description.
func (e *APIError) WithDescription(desc string) *APIError {
	c := *e
	c.Description = desc
	return &c
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request body is malformed",
	}
	ErrInvalidUsername = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidUsername,
		Description: "username must be 1-64 bytes of printable UTF-8 without surrounding whitespace",
	}
	ErrInvalidSecret = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidSecret,
		Description: "password must not be empty",
	}
	ErrInvalidAudio = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidAudio,
		Description: "audio could not be decoded",
	}
	ErrInsufficientSignal = &APIError{
		StatusCode:  http.StatusUnprocessableEntity,
		Code:        ErrorCodeInsufficientSignal,
		Description: "audio is silent or too short",
	}
	ErrUsernameTaken = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeUsernameTaken,
		Description: "username is already enrolled",
	}
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password.
	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid username or password",
	}
	ErrRateLimitExceeded = &APIError{
		StatusCode:  http.StatusTooManyRequests,
		Code:        ErrorCodeRateLimitExceeded,
		Description: "too many requests",
	}
	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
	ErrServiceUnavailable = &APIError{
		StatusCode:  http.StatusServiceUnavailable,
		Code:        ErrorCodeServiceUnavailable,
		Description: "a backing service is unavailable",
	}
)

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp httpx.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
