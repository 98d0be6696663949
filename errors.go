package igvf

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrConfig is the sentinel for construction-time configuration mistakes.
// Use errors.Is(err, ErrConfig) to distinguish them from I/O failures, which
// are always returned as data (an ErrorObject inside a Result), never as Go
// errors.
var ErrConfig = errors.New("igvf: invalid client configuration")

// ConfigError reports an invalid combination of construction parameters,
// such as supplying both cookie and session authentication. It represents a
// programming mistake in the calling code, so it surfaces synchronously from
// New rather than through the Result channel.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("igvf: invalid client configuration: %s", e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// ErrorObject is the canonical shape of any failure surfaced to a caller.
// Two provenances populate it: structured error responses from the data
// provider (re-tagged at the parse boundary), and locally synthesized
// network errors for requests that never got a response.
//
// IsError is the explicit discriminant, set exactly once where the upstream
// response is decoded; downstream code checks the boolean rather than
// re-inspecting the @type array.
type ErrorObject struct {
	IsError     bool     `json:"isError"`
	Type        []string `json:"@type"`
	Code        int      `json:"code"`
	Status      string   `json:"status"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Detail      string   `json:"detail,omitempty"`
}

// Error implements the error interface so an ErrorObject can flow through
// ordinary Go error plumbing at call sites that want it to.
func (e *ErrorObject) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Detail != "" && e.Detail != e.Description {
		return fmt.Sprintf("igvf: %d %s: %s (%s)", e.Code, e.Title, e.Description, e.Detail)
	}
	return fmt.Sprintf("igvf: %d %s: %s", e.Code, e.Title, e.Description)
}

// NetworkError returns the fixed error object used for transport-level
// failures: the upstream never produced a response, so the client
// synthesizes a service-unavailable error locally. The underlying cause is
// logged for diagnostics but deliberately not included in the payload.
func NetworkError() *ErrorObject {
	return &ErrorObject{
		IsError:     true,
		Type:        []string{"NetworkError", "Error"},
		Code:        http.StatusServiceUnavailable,
		Status:      "error",
		Title:       "Unknown error",
		Description: "An unknown error occurred.",
		Detail:      "An unknown error occurred.",
	}
}

// decodeErrorBody turns a non-2xx response body into an ErrorObject,
// re-tagging whatever shape the data provider returned. Bodies that fail to
// parse as JSON produce an error object synthesized from the HTTP status.
func decodeErrorBody(statusCode int, body []byte) *ErrorObject {
	errObj := &ErrorObject{}
	if err := json.Unmarshal(body, errObj); err != nil {
		errObj = &ErrorObject{
			Status:      "error",
			Title:       http.StatusText(statusCode),
			Description: http.StatusText(statusCode),
		}
	}
	errObj.IsError = true
	if errObj.Code == 0 {
		errObj.Code = statusCode
	}
	if !containsString(errObj.Type, "Error") {
		errObj.Type = append(errObj.Type, "Error")
	}
	return errObj
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
