package api

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a failure reported by the upload API. Code is the backend's
// machine-readable error code and may be empty.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Message != "":
		return e.Message
	case e.Code != "":
		return e.Code
	case e.Status > 0:
		return fmt.Sprintf("api error: %d", e.Status)
	}
	return "api error"
}

// Retryable reports whether sending the same request again may succeed.
func (e *APIError) Retryable() bool {
	if e == nil {
		return false
	}
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

// CodeOf returns the API error code carried anywhere in err's chain.
func CodeOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}
