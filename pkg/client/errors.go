package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// HTTPError represents a non-2xx HTTP response from the backend.
// Status is the canonical status name (e.g. "FAILED_PRECONDITION") and
// Message the provider's message, which for accounts calls is a code such as
// "EMAIL_EXISTS".
type HTTPError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Code returns the leading error code of Message. Accounts errors look like
// "TOO_MANY_ATTEMPTS_TRY_LATER : Access to this account ...".
func (e *HTTPError) Code() string {
	code, _, _ := strings.Cut(e.Message, ":")
	return strings.TrimSpace(code)
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// HasCode reports whether err is an HTTPError whose message code or canonical
// status is one of codes.
func HasCode(err error, codes ...string) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	got := httpErr.Code()
	for _, c := range codes {
		if got == c || httpErr.Status == c {
			return true
		}
	}
	return false
}

func parseError(statusCode int, body []byte) error {
	var apiErr struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) != nil || len(apiErr.Error) == 0 {
		return &HTTPError{StatusCode: statusCode, Message: strings.TrimSpace(string(body))}
	}

	var detailed struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	}
	if json.Unmarshal(apiErr.Error, &detailed) == nil && detailed.Message != "" {
		return &HTTPError{StatusCode: statusCode, Status: detailed.Status, Message: detailed.Message}
	}

	// The token endpoint sometimes answers {"error": "invalid_grant", ...}.
	var plain string
	if json.Unmarshal(apiErr.Error, &plain) == nil && plain != "" {
		return &HTTPError{StatusCode: statusCode, Message: plain}
	}
	return &HTTPError{StatusCode: statusCode, Message: strings.TrimSpace(string(body))}
}
