package tasksdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/taskboard/pkg/httpx"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("taskboard: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("taskboard: HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// parseErrorResponse turns an error body into an *APIError. Bodies that
// are not the standard envelope keep the raw text as the message.
func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var env httpx.ErrorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Details = env.Error.Details
		return apiErr
	}

	apiErr.Message = http.StatusText(resp.StatusCode)
	if len(body) > 0 {
		apiErr.Message = string(body)
	}
	return apiErr
}
